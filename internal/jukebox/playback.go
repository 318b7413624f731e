package jukebox

import (
	"context"
	"fmt"

	"jukebot/internal/devices"
	"jukebot/internal/domain"
)

const pausedPrompt = "Sonos is currently PAUSED. Type `resume` to start playing..."

// addTrack resolves one track and queues it according to what the primary
// speaker is doing.
func (j *Jukebox) addTrack(ctx context.Context, req *Request) {
	tracks, msg := j.resolver.Resolve(ctx, req.Args, req.User, 1)
	if msg != "" {
		req.Reply(msg)
		return
	}
	track := tracks[0]

	state, err := j.pool.Primary().State(ctx)
	if err != nil {
		j.logger.Error("reading playback state failed", "device", j.pool.Primary().Address(), "err", err)
		req.Reply("Sorry, I could not reach the speaker to find out what it is doing.")
		return
	}
	j.logger.Info("adding track", "track", track.DisplayName(), "state", state.String())

	switch {
	case state.IsStopped():
		j.startFresh(ctx, req, track)
	case state.IsPlaying():
		j.enqueueAndReport(ctx, req, track)
	case state.IsPaused():
		if j.enqueueAndReport(ctx, req, track) && req.Channel.Admin {
			req.Reply(pausedPrompt)
		}
	default:
		req.Reply(unexpectedState(state))
	}
}

// startFresh replaces the queue of a stopped speaker with track and starts
// playback once the enqueue has finished everywhere.
func (j *Jukebox) startFresh(ctx context.Context, req *Request, track domain.TrackMetadata) {
	flushed := j.pool.Broadcast(ctx, "flush", func(ctx context.Context, d domain.Device) error {
		return d.Flush(ctx)
	})
	if devices.AllFailed(flushed) {
		req.Reply("Sorry, I could not clear the queue.\n" + failureReport("clear the queue", flushed))
		return
	}

	if !j.enqueueAndReport(ctx, req, track) {
		return
	}

	if err := sleep(ctx, j.settleDelay); err != nil {
		return
	}
	played := j.pool.Broadcast(ctx, "play", func(ctx context.Context, d domain.Device) error {
		return d.Play(ctx)
	})
	req.Reply(failureReport("play", played))
}

// enqueueAndReport adds track on every device and reports the primary's (or
// the first successful device's) queue position. It returns false when no
// device accepted the track.
func (j *Jukebox) enqueueAndReport(ctx context.Context, req *Request, track domain.TrackMetadata) bool {
	results := devices.Collect(ctx, j.pool, "enqueue", func(ctx context.Context, d domain.Device) (domain.EnqueueResult, error) {
		return d.Enqueue(ctx, track.URI)
	})

	first, ok := devices.FirstSuccess(results)
	if !ok {
		j.logger.Error("enqueue failed on every device", "uri", track.URI)
		req.Reply("Error! No spotify account?")
		return false
	}

	req.Replyf("Sure %s, Added %s to the queue!\n%s\nPosition in queue is %d",
		req.User, track.DisplayName(), track.ArtworkURL, first.Value.FirstTrackNumberEnqueued)
	return true
}

func unexpectedState(s domain.PlaybackState) string {
	switch s {
	case domain.StateTransitioning:
		return fmt.Sprintf("Sonos says it is '%s'. We've got no idea what that means either...", s)
	case domain.StateNoMedia:
		return fmt.Sprintf("Sonos reports '%s'. Any idea what that means?", s)
	default:
		return fmt.Sprintf("Sonos reports its state as '%s'. Any idea what that means? I've got nothing.", s)
	}
}
