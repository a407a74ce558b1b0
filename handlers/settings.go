package handlers

import (
	"errors"
	"net/http"
	"os"

	"mediadeck/config"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles settings-related endpoints
type SettingsHandler struct {
	current string
}

// NewSettingsHandler creates a new settings handler. current is the library
// location the server scanned at startup.
func NewSettingsHandler(current string) *SettingsHandler {
	return &SettingsHandler{current: current}
}

// validatePath checks that path exists and is a readable directory
func validatePath(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := config.LoadSettings()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load settings",
			"details": err.Error(),
		})
		return
	}
	if settings.LibraryLocation == "" {
		settings.LibraryLocation = h.current
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings saves the user settings. The track list is read once at
// startup, so a new library location applies on the next restart.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var newSettings config.UserSettings
	if err := c.ShouldBindJSON(&newSettings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid settings format",
			"details": err.Error(),
		})
		return
	}

	if err := validatePath(newSettings.LibraryLocation); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid library location",
			"details": err.Error(),
		})
		return
	}

	if err := config.SaveSettings(&newSettings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to save settings",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Settings updated successfully",
		"settings":        newSettings,
		"restartRequired": newSettings.LibraryLocation != h.current,
	})
}
