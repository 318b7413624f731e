package jukebox

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"jukebot/internal/devices"
	"jukebot/internal/domain"
	"jukebot/internal/moderation"
)

const removeUsage = "Usage: `remove <index>`, where index is the number shown by `list`."

// failureReport renders one line per failed device, or "" if none failed.
func failureReport(op string, outcomes []devices.Outcome) string {
	var lines []string
	for _, o := range devices.Failures(outcomes) {
		lines = append(lines, fmt.Sprintf("%s: could not %s (%v)", o.Device.Address(), op, o.Err))
	}
	return strings.Join(lines, "\n")
}

func joinLines(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// reportState replies with the primary's state followed by any failures.
func (j *Jukebox) reportState(ctx context.Context, req *Request, failures string) {
	state, err := j.pool.Primary().State(ctx)
	if err != nil {
		j.logger.Error("reading playback state failed", "device", j.pool.Primary().Address(), "err", err)
		req.Reply(joinLines("Could not read the Sonos state.", failures))
		return
	}
	req.Reply(joinLines(fmt.Sprintf("Sonos state is '%s'", state), failures))
}

func (j *Jukebox) play(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "play", func(ctx context.Context, d domain.Device) error { return d.Play(ctx) })
	j.reportState(ctx, req, failureReport("play", out))
}

func (j *Jukebox) stop(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "stop", func(ctx context.Context, d domain.Device) error { return d.Stop(ctx) })
	j.reportState(ctx, req, failureReport("stop", out))
}

func (j *Jukebox) pause(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "pause", func(ctx context.Context, d domain.Device) error { return d.Pause(ctx) })
	j.reportState(ctx, req, failureReport("pause", out))
}

func (j *Jukebox) resume(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "resume", func(ctx context.Context, d domain.Device) error { return d.Resume(ctx) })
	if err := sleep(ctx, j.settleDelay); err != nil {
		return
	}
	j.reportState(ctx, req, failureReport("resume", out))
}

func (j *Jukebox) next(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "next", func(ctx context.Context, d domain.Device) error { return d.Next(ctx) })
	req.Reply(failureReport("skip to the next track", out))
}

func (j *Jukebox) previous(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "previous", func(ctx context.Context, d domain.Device) error { return d.Previous(ctx) })
	req.Reply(failureReport("go back to the previous track", out))
}

func (j *Jukebox) flush(ctx context.Context, req *Request) {
	out := j.pool.Broadcast(ctx, "flush", func(ctx context.Context, d domain.Device) error { return d.Flush(ctx) })
	if devices.AllFailed(out) {
		req.Reply(failureReport("clear the queue", out))
		return
	}
	req.Reply(joinLines("Sonos queue is clear.", failureReport("clear the queue", out)))
}

// remove takes the zero-based index shown by list; speakers count from one.
func (j *Jukebox) remove(ctx context.Context, req *Request) {
	if len(req.Args) == 0 {
		req.Reply(removeUsage)
		return
	}
	index, err := strconv.Atoi(req.Args[0])
	if err != nil || index < 0 || index >= math.MaxInt {
		req.Reply(removeUsage)
		return
	}

	position := index + 1
	out := j.pool.Broadcast(ctx, "remove", func(ctx context.Context, d domain.Device) error {
		return d.RemoveTrack(ctx, position)
	})
	failures := failureReport("remove track "+strconv.Itoa(index), out)
	if devices.AllFailed(out) {
		req.Reply(failures)
		return
	}
	req.Reply(joinLines(fmt.Sprintf("Removed track with index: %d", index), failures))
}

func (j *Jukebox) blacklist(ctx context.Context, req *Request) {
	req.Reply(j.gate.HandleBlacklist(ctx, moderation.BlacklistRequest{
		Args:      req.Args,
		Directory: j.directory(req.Transport),
		Transport: req.Transport,
		Channel:   req.Channel.Name,
		User:      req.User,
	}))
}
