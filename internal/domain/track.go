package domain

import (
	"context"
	"time"
)

// TrackMetadata is a single search hit, consumed immediately and never cached.
type TrackMetadata struct {
	Artist     string
	Title      string
	Album      string
	Duration   time.Duration
	URI        string
	ArtworkURL string
}

// DisplayName renders "Artist - Title".
func (t TrackMetadata) DisplayName() string {
	return t.Artist + " - " + t.Title
}

// TrackSearcher is the music search collaborator.
type TrackSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]TrackMetadata, error)
}
