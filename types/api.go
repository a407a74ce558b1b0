package types

// AudioFile represents a discovered audio file
type AudioFile struct {
	Filename string         `json:"filename"`
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Format   string         `json:"format"` // "mp3", "flac", etc.
	Metadata *AudioMetadata `json:"metadata,omitempty"`
}

// AudioMetadata represents metadata for an audio file
type AudioMetadata struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
}
