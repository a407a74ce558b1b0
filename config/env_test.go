package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateSettings points the settings file at a temp path so the user's real
// settings never leak into a test.
func isolateSettings(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "settings.json")
	t.Setenv("SETTINGS_FILE", path)
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateSettings(t)
	t.Setenv("LIBRARY_LOCATION", "/srv/music")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "/srv/music", cfg.LibraryLocation)
	assert.Equal(t, []string{".mp3"}, cfg.Extensions())
	assert.False(t, cfg.StopPreviousOnSwitch)
	assert.False(t, cfg.SignedGPSRefs)
	assert.Equal(t, uint(400), cfg.PreviewSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.PlayerCommand)
}

func TestLoad_Overrides(t *testing.T) {
	isolateSettings(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AUDIO_EXTENSIONS", "flac, MP3")
	t.Setenv("STOP_PREVIOUS_ON_SWITCH", "true")
	t.Setenv("SIGNED_GPS_REFS", "true")
	t.Setenv("PLAYER_COMMAND", "mpv --no-video {file}")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, []string{".flac", ".mp3"}, cfg.Extensions())
	assert.True(t, cfg.StopPreviousOnSwitch)
	assert.True(t, cfg.SignedGPSRefs)
	assert.Equal(t, "mpv --no-video {file}", cfg.PlayerCommand)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ValidationError(t *testing.T) {
	isolateSettings(t)
	t.Setenv("LOG_LEVEL", "chatty")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_SettingsFileWins(t *testing.T) {
	path := isolateSettings(t)
	t.Setenv("LIBRARY_LOCATION", "/from/env")

	require.NoError(t, os.WriteFile(path, []byte(`{"libraryLocation": "/from/settings"}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/settings", cfg.LibraryLocation)
}

func TestSettingsRoundTrip(t *testing.T) {
	isolateSettings(t)

	settings, err := LoadSettings()
	require.NoError(t, err)
	assert.Empty(t, settings.LibraryLocation)

	require.NoError(t, SaveSettings(&UserSettings{LibraryLocation: "/music"}))

	settings, err = LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "/music", settings.LibraryLocation)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: "http://a, ,http://b"}
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins())
}
