package domain

import (
	"image"
	"time"
)

// Snapshot is a single still frame captured from the camera feed. Its pixel
// buffer is an independent copy, decoupled from the live preview buffer that
// the feed keeps overwriting; the holder owns it until it lets it go.
type Snapshot struct {
	Image  *image.RGBA
	Width  int
	Height int
	Taken  time.Time
}

// PhotoRecord is a saved gallery entry: the photo, the description the user
// attached, and the analysis text that came back for it.
type PhotoRecord struct {
	ID           int64
	StorageKey   string
	MimeType     string
	Description  string
	ResponseText string
	CreatedAt    time.Time
}
