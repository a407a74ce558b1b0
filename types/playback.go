package types

// PlaybackAction is the engine call a toggle produced
type PlaybackAction string

const (
	PlaybackActionPlay PlaybackAction = "play"
	PlaybackActionStop PlaybackAction = "stop"
)

// PlaybackState is the selection after a toggle has been applied
type PlaybackState struct {
	Active  string         `json:"active"`
	Playing bool           `json:"playing"`
	Action  PlaybackAction `json:"action,omitempty"`
	Track   string         `json:"track,omitempty"`
	// Stopped lists tracks the engine was told to stop as a side effect of a switch.
	Stopped []string `json:"stopped,omitempty"`
}
