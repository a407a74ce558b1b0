package handlers

import (
	"errors"
	"net/http"
	"time"

	"mediadeck/services"
	"mediadeck/types"
	"mediadeck/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlaybackHandler handles the play/stop toggle and its live feed
type PlaybackHandler struct {
	controller services.PlaybackController
	hub        websocket.Hub
}

// NewPlaybackHandler creates a new playback handler
func NewPlaybackHandler(controller services.PlaybackController, hub websocket.Hub) *PlaybackHandler {
	return &PlaybackHandler{
		controller: controller,
		hub:        hub,
	}
}

// ToggleRequest names the tapped track
type ToggleRequest struct {
	Track string `json:"track" binding:"required"`
}

// GetState returns the active track, if any
func (h *PlaybackHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.State())
}

// Toggle applies a tap on a track
func (h *PlaybackHandler) Toggle(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid toggle request",
			"details": err.Error(),
		})
		return
	}

	state, err := h.controller.Toggle(c.Request.Context(), req.Track)
	if err != nil {
		if errors.Is(err, services.ErrUnknownTrack) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Track not found",
				"track": req.Track,
			})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Toggle not applied",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, state)
}

// HandleWebSocket streams playback changes. The current state is sent first.
func (h *PlaybackHandler) HandleWebSocket(c *gin.Context) {
	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade")
		return
	}

	state := h.controller.State()
	client := websocket.NewClient(h.hub, conn, websocket.TopicPlayback)
	client.Queue(types.PlaybackMessage{
		ID:        uuid.New().String(),
		Type:      "state",
		Active:    state.Active,
		Message:   "connected",
		Timestamp: time.Now(),
	})

	h.hub.RegisterClient(client)
	client.StartPumps()
}
