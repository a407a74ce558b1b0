package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sync"

	"mediadeck/services"
	"mediadeck/types"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// PhotoHandler holds the currently picked photo. Each upload replaces it.
type PhotoHandler struct {
	photos   services.PhotoService
	maxBytes int64

	mu      sync.RWMutex
	current *types.PhotoView
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photos services.PhotoService, maxBytes int64) *PhotoHandler {
	return &PhotoHandler{photos: photos, maxBytes: maxBytes}
}

// Pick decodes the uploaded "image" file and makes it the current photo.
// Undecodable files still replace the selection, with placeholders.
func (h *PhotoHandler) Pick(c *gin.Context) {
	if c.Request.ContentLength > h.maxBytes {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	header, err := c.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing image upload",
			"details": err.Error(),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to open upload",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read upload",
			"details": err.Error(),
		})
		return
	}

	view := h.photos.Decode(bytes.NewReader(data))
	view.Name = filepath.Base(header.Filename)

	h.mu.Lock()
	h.current = view
	h.mu.Unlock()

	log.WithFields(log.Fields{
		"name":     view.Name,
		"decoded":  view.Image != nil,
		"location": view.Location != nil,
	}).Info("photo picked")

	c.JSON(http.StatusOK, view)
}

func (h *PhotoHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":   "Image upload too large",
		"details": fmt.Sprintf("uploads are limited to %d bytes", h.maxBytes),
	})
}

func (h *PhotoHandler) selected() *types.PhotoView {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Current returns the current photo's metadata
func (h *PhotoHandler) Current(c *gin.Context) {
	view := h.selected()
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No photo selected"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Preview returns the scaled JPEG of the current photo
func (h *PhotoHandler) Preview(c *gin.Context) {
	view := h.selected()
	if view == nil || view.Image == nil || len(view.Image.Preview) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No image to preview"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", view.Image.Preview)
}

// Map redirects to a map centred on the current photo's location
func (h *PhotoHandler) Map(c *gin.Context) {
	view := h.selected()
	if view == nil || view.Location == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No location for the current photo"})
		return
	}
	c.Redirect(http.StatusFound, view.Location.MapURL())
}
