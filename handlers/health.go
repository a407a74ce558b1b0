package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	libraryLocation string
	trackCount      func() int
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(libraryLocation string, trackCount func() int) *HealthHandler {
	return &HealthHandler{libraryLocation: libraryLocation, trackCount: trackCount}
}

// HealthCheck returns the health status of the service
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "mediadeck",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
	})
}

// APIStatus returns the status of the API
func (h *HealthHandler) APIStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":          "Mediadeck API is running",
		"library_location": h.libraryLocation,
		"tracks":           h.trackCount(),
	})
}
