package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mediadeck/services"
	"mediadeck/types"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// TrackHandler serves the startup track list and streams tracks
type TrackHandler struct {
	library services.Library
	root    string
	tracks  []types.AudioFile
}

// NewTrackHandler creates a new track handler over the tracks found at root
func NewTrackHandler(library services.Library, root string, tracks []types.AudioFile) *TrackHandler {
	return &TrackHandler{
		library: library,
		root:    root,
		tracks:  tracks,
	}
}

// ListTracks returns the tracks discovered at startup
func (h *TrackHandler) ListTracks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tracks": h.tracks,
		"count":  len(h.tracks),
	})
}

// StreamTrack streams an audio file with support for range requests
func (h *TrackHandler) StreamTrack(c *gin.Context) {
	requestedPath := strings.TrimPrefix(c.Param("filepath"), "/")

	if err := h.library.ValidateFilePath(requestedPath); err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "path security violation",
			"details": err.Error(),
		})
		return
	}

	if !h.known(requestedPath) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "track not found",
			"path":  requestedPath,
		})
		return
	}

	fs := h.library.Fs()
	fullPath := filepath.Join(h.root, filepath.FromSlash(requestedPath))

	fileInfo, err := fs.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "track not found",
				"path":  requestedPath,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "file access error",
			"details": err.Error(),
		})
		return
	}
	if fileInfo.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "path is a directory, not a file",
		})
		return
	}

	file, err := fs.Open(fullPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to open file",
			"details": err.Error(),
		})
		return
	}
	defer file.Close()

	c.Header("Content-Type", h.library.GetContentType(requestedPath))
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")

	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		h.handleRangeRequest(c, file, fileInfo.Size(), rangeHeader)
		return
	}

	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		log.WithError(err).WithField("path", requestedPath).Warn("stream track")
	}
}

func (h *TrackHandler) known(path string) bool {
	for _, t := range h.tracks {
		if t.Path == path {
			return true
		}
	}
	return false
}

// parseRange parses a single "bytes=start-end" range against size
func parseRange(rangeHeader string, size int64) (start, end int64, ok bool) {
	if !strings.HasPrefix(rangeHeader, "bytes=") {
		return 0, 0, false
	}
	bounds := strings.Split(strings.TrimPrefix(rangeHeader, "bytes="), "-")
	if len(bounds) != 2 || (bounds[0] == "" && bounds[1] == "") {
		return 0, 0, false
	}

	var err error
	switch {
	case bounds[0] == "":
		// suffix range: the last N bytes
		n, err := strconv.ParseInt(bounds[1], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		start, end = size-n, size-1
	default:
		start, err = strconv.ParseInt(bounds[0], 10, 64)
		if err != nil || start < 0 {
			return 0, 0, false
		}
		end = size - 1
		if bounds[1] != "" {
			end, err = strconv.ParseInt(bounds[1], 10, 64)
			if err != nil || end < start {
				return 0, 0, false
			}
		}
	}

	if start >= size {
		return 0, 0, false
	}
	if end >= size {
		end = size - 1
	}
	return start, end, true
}

// handleRangeRequest handles HTTP range requests for efficient seeking
func (h *TrackHandler) handleRangeRequest(c *gin.Context, file afero.File, fileSize int64, rangeHeader string) {
	start, end, ok := parseRange(rangeHeader, fileSize)
	if !ok {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to seek file",
		})
		return
	}

	contentLength := end - start + 1
	c.Header("Content-Length", strconv.FormatInt(contentLength, 10))
	c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	c.Status(http.StatusPartialContent)

	if _, err := io.CopyN(c.Writer, file, contentLength); err != nil {
		log.WithError(err).Warn("stream range")
	}
}
