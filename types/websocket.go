package types

import "time"

// PlaybackMessage represents a WebSocket playback update message
type PlaybackMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`            // "state", "play", "stop"
	Track     string    `json:"track,omitempty"` // track the engine was asked to play or stop
	Active    string    `json:"active"`          // currently selected track, empty when none
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
