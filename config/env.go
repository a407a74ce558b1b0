package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration, read from the environment
type Config struct {
	ServerPort           int    `mapstructure:"SERVER_PORT" validate:"min=1,max=65535"`
	LibraryLocation      string `mapstructure:"LIBRARY_LOCATION"`
	AudioExtensions      string `mapstructure:"AUDIO_EXTENSIONS" validate:"required"`
	PlayerCommand        string `mapstructure:"PLAYER_COMMAND"`
	StopPreviousOnSwitch bool   `mapstructure:"STOP_PREVIOUS_ON_SWITCH"`
	SignedGPSRefs        bool   `mapstructure:"SIGNED_GPS_REFS"`
	PreviewSize          uint   `mapstructure:"PREVIEW_SIZE" validate:"min=16,max=4096"`
	MaxUploadBytes       int64  `mapstructure:"MAX_UPLOAD_BYTES" validate:"min=1024"`
	LogLevel             string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error fatal"`
	LogFormat            string `mapstructure:"LOG_FORMAT" validate:"oneof=text json"`
	CORSOrigins          string `mapstructure:"CORS_ORIGINS"`
	GinMode              string `mapstructure:"GIN_MODE"`
}

var envKeys = []string{
	"SERVER_PORT",
	"LIBRARY_LOCATION",
	"AUDIO_EXTENSIONS",
	"PLAYER_COMMAND",
	"STOP_PREVIOUS_ON_SWITCH",
	"SIGNED_GPS_REFS",
	"PREVIEW_SIZE",
	"MAX_UPLOAD_BYTES",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"CORS_ORIGINS",
	"GIN_MODE",
}

// Load reads the configuration from the environment, applies defaults and the
// user's settings file, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("AUDIO_EXTENSIONS", ".mp3")
	v.SetDefault("PREVIEW_SIZE", 400)
	v.SetDefault("MAX_UPLOAD_BYTES", 32<<20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("GIN_MODE", "release")

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.LibraryLocation == "" {
		cfg.LibraryLocation = DefaultLibraryLocation()
	}
	if location := userLibraryLocation(); location != "" {
		cfg.LibraryLocation = location
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Extensions returns the configured audio extensions, lowercased and dot-prefixed,
// in priority order.
func (c *Config) Extensions() []string {
	var exts []string
	for _, raw := range strings.Split(c.AudioExtensions, ",") {
		ext := strings.ToLower(strings.TrimSpace(raw))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}

// Origins returns the allowed CORS origins
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DefaultLibraryLocation returns the OS-appropriate music folder
func DefaultLibraryLocation() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "music")
	}
	return filepath.Join(homeDir, "Music")
}

// UserSettings represents the user's personal settings
type UserSettings struct {
	LibraryLocation string `json:"libraryLocation"`
}

// SettingsFilePath returns the path to the settings file
func SettingsFilePath() string {
	if path := os.Getenv("SETTINGS_FILE"); path != "" {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".mediadeck-settings.json")
}

// LoadSettings reads the settings file. A missing file is not an error.
func LoadSettings() (*UserSettings, error) {
	data, err := os.ReadFile(SettingsFilePath())
	if os.IsNotExist(err) {
		return &UserSettings{}, nil
	}
	if err != nil {
		return nil, err
	}

	var settings UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return &settings, nil
}

// SaveSettings writes the settings file
func SaveSettings(settings *UserSettings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(SettingsFilePath(), data, 0644)
}

// userLibraryLocation loads the user's preferred library location, falling back
// to the environment when the settings file is absent or unreadable.
func userLibraryLocation() string {
	settings, err := LoadSettings()
	if err != nil {
		return ""
	}
	return settings.LibraryLocation
}
