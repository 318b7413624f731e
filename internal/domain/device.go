package domain

import (
	"context"
	"time"
)

// PlaybackState is the aggregate transport state of a device.
type PlaybackState struct {
	kind stateKind
	raw  string
}

type stateKind int

const (
	stateUnknown stateKind = iota
	stateStopped
	statePlaying
	statePaused
	stateTransitioning
	stateNoMedia
)

var (
	StateStopped       = PlaybackState{kind: stateStopped, raw: "stopped"}
	StatePlaying       = PlaybackState{kind: statePlaying, raw: "playing"}
	StatePaused        = PlaybackState{kind: statePaused, raw: "paused"}
	StateTransitioning = PlaybackState{kind: stateTransitioning, raw: "transitioning"}
	StateNoMedia       = PlaybackState{kind: stateNoMedia, raw: "no_media"}
)

// UnknownState keeps an unrecognized backend state around verbatim.
func UnknownState(raw string) PlaybackState {
	return PlaybackState{kind: stateUnknown, raw: raw}
}

func (s PlaybackState) String() string { return s.raw }

func (s PlaybackState) IsStopped() bool { return s.kind == stateStopped }
func (s PlaybackState) IsPlaying() bool { return s.kind == statePlaying }
func (s PlaybackState) IsPaused() bool  { return s.kind == statePaused }

// QueueItem summarizes one queued track.
type QueueItem struct {
	Title  string
	Artist string
	Album  string
	URI    string
}

// QueueSnapshot is read fresh from the primary device on every request.
type QueueSnapshot struct {
	Items []QueueItem
	Total int
}

// CurrentTrack is what the device reports as playing. QueuePosition is
// one-based; zero means the track is not from the queue.
type CurrentTrack struct {
	Title         string
	Artist        string
	Album         string
	Duration      time.Duration
	Position      time.Duration
	QueuePosition int
}

// EnqueueResult is returned by a successful enqueue.
type EnqueueResult struct {
	FirstTrackNumberEnqueued int
	NumTracksAdded           int
	NewQueueLength           int
}

// Device is a playback endpoint. Address is only used to label reports.
type Device interface {
	Address() string
	Play(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Enqueue(ctx context.Context, uri string) (EnqueueResult, error)
	Flush(ctx context.Context) error
	// RemoveTrack removes the track at the one-based queue position.
	RemoveTrack(ctx context.Context, position int) error
	Queue(ctx context.Context) (QueueSnapshot, error)
	CurrentTrack(ctx context.Context) (*CurrentTrack, error)
	State(ctx context.Context) (PlaybackState, error)
}
