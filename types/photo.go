package types

import (
	"fmt"
	"image"
	"time"
)

// Tag is a single named EXIF property rendered for display
type Tag struct {
	Group string `json:"group"` // "image", "exif" or "gps"
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GPS holds the coordinates carried by an image's GPS property group.
// A nil field means the tag was missing or could not be parsed.
type GPS struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Location is a point in signed decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location collapses the group into a point, substituting 0.0 for missing values.
func (g *GPS) Location() *Location {
	if g == nil {
		return nil
	}
	loc := &Location{}
	if g.Latitude != nil {
		loc.Latitude = *g.Latitude
	}
	if g.Longitude != nil {
		loc.Longitude = *g.Longitude
	}
	return loc
}

// MapURL returns an OpenStreetMap link centred on the location at street scale
func (l Location) MapURL() string {
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=16/%.6f/%.6f",
		l.Latitude, l.Longitude, l.Latitude, l.Longitude)
}

// ImageInfo describes a decoded image ready for display
type ImageInfo struct {
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Format  string      `json:"format"`
	Preview []byte      `json:"-"`
	Bitmap  image.Image `json:"-"`
}

// PhotoView is everything the viewer shows for one picked image.
// A nil Image or Location means the matching placeholder should be shown.
type PhotoView struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	Image    *ImageInfo `json:"image,omitempty"`
	Metadata string     `json:"metadata"`
	Tags     []Tag      `json:"tags,omitempty"`
	GPS      *GPS       `json:"gps,omitempty"`
	Location *Location  `json:"location,omitempty"`
	MapURL   string     `json:"mapUrl,omitempty"`
	TakenAt  *time.Time `json:"takenAt,omitempty"`
	PickedAt time.Time  `json:"pickedAt"`
}
