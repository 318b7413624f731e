package jukebox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"jukebot/internal/domain"
)

func (j *Jukebox) search(ctx context.Context, req *Request) {
	tracks, msg := j.resolver.Resolve(ctx, req.Args, req.User, j.searchLimit)
	if msg != "" {
		req.Reply(msg)
		return
	}

	names := lo.Map(tracks, func(t domain.TrackMetadata, _ int) string { return t.DisplayName() })
	req.Replyf("%s, I found the following track(s):\n```\n%s\n```\nIf you want to play it, use the `add` command..",
		req.User, strings.Join(names, "\n"))
}

func (j *Jukebox) current(ctx context.Context, req *Request) {
	cur, err := j.pool.Primary().CurrentTrack(ctx)
	if err != nil {
		j.logger.Error("reading current track failed", "device", j.pool.Primary().Address(), "err", err)
		req.Reply("Sorry, I could not ask the speaker what is playing.")
		return
	}
	if cur == nil || cur.Title == "" {
		req.Reply("Nothing is playing right now.")
		return
	}
	req.Replyf("We're rocking out to *%s* - *%s* (%s/%s)",
		cur.Artist, cur.Title, clock(cur.Position), clock(cur.Duration))
}

func (j *Jukebox) list(ctx context.Context, req *Request) {
	snap, ok := j.readQueue(ctx, req)
	if !ok {
		return
	}
	var title string
	if cur := j.readCurrent(ctx); cur != nil {
		title = cur.Title
	}
	for _, msg := range RenderFullQueue(snap, title) {
		req.Reply(msg)
	}
}

func (j *Jukebox) upNext(ctx context.Context, req *Request) {
	snap, ok := j.readQueue(ctx, req)
	if !ok {
		return
	}
	index := -1
	if cur := j.readCurrent(ctx); cur != nil && cur.QueuePosition > 0 {
		index = cur.QueuePosition - 1
	}
	req.Reply(RenderUpcoming(snap, index))
}

func (j *Jukebox) help(ctx context.Context, req *Request) {
	req.Reply(HelpText(req.Channel.Admin))
}

func (j *Jukebox) readQueue(ctx context.Context, req *Request) (domain.QueueSnapshot, bool) {
	snap, err := j.pool.Primary().Queue(ctx)
	if err != nil {
		j.logger.Error("reading queue failed", "device", j.pool.Primary().Address(), "err", err)
		req.Reply("Sorry, I could not fetch the queue from the speaker.")
		return domain.QueueSnapshot{}, false
	}
	return snap, true
}

// readCurrent is best effort: a listing is still useful without a marker.
func (j *Jukebox) readCurrent(ctx context.Context) *domain.CurrentTrack {
	cur, err := j.pool.Primary().CurrentTrack(ctx)
	if err != nil {
		j.logger.Warn("reading current track failed", "device", j.pool.Primary().Address(), "err", err)
		return nil
	}
	return cur
}

// clock renders d as mm:ss.
func clock(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
