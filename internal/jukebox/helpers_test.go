package jukebox

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"jukebot/internal/devices"
	"jukebot/internal/domain"
	"jukebot/internal/moderation"
	"jukebot/internal/search"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// recorder keeps the order of device calls across all fake devices.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

var readOps = map[string]bool{"state": true, "queue": true, "current": true}

// mutations returns the calls that change device state.
func (r *recorder) mutations() []string {
	var out []string
	for _, c := range r.list() {
		if !readOps[c[strings.Index(c, ":")+1:]] {
			out = append(out, c)
		}
	}
	return out
}

type fakeDevice struct {
	addr         string
	rec          *recorder
	state        domain.PlaybackState
	stateErr     error
	errs         map[string]error
	enqueueDelay time.Duration
	position     int
	queue        domain.QueueSnapshot
	current      *domain.CurrentTrack
	removed      []int
}

func (d *fakeDevice) op(name string) error {
	d.rec.add(d.addr + ":" + name)
	return d.errs[name]
}

func (d *fakeDevice) Address() string                    { return d.addr }
func (d *fakeDevice) Play(ctx context.Context) error     { return d.op("play") }
func (d *fakeDevice) Resume(ctx context.Context) error   { return d.op("resume") }
func (d *fakeDevice) Stop(ctx context.Context) error     { return d.op("stop") }
func (d *fakeDevice) Pause(ctx context.Context) error    { return d.op("pause") }
func (d *fakeDevice) Next(ctx context.Context) error     { return d.op("next") }
func (d *fakeDevice) Previous(ctx context.Context) error { return d.op("previous") }
func (d *fakeDevice) Flush(ctx context.Context) error    { return d.op("flush") }

func (d *fakeDevice) Enqueue(ctx context.Context, uri string) (domain.EnqueueResult, error) {
	time.Sleep(d.enqueueDelay)
	if err := d.op("enqueue"); err != nil {
		return domain.EnqueueResult{}, err
	}
	return domain.EnqueueResult{FirstTrackNumberEnqueued: d.position, NumTracksAdded: 1, NewQueueLength: d.position}, nil
}

func (d *fakeDevice) RemoveTrack(ctx context.Context, position int) error {
	d.removed = append(d.removed, position)
	return d.op("remove")
}

func (d *fakeDevice) Queue(ctx context.Context) (domain.QueueSnapshot, error) {
	return d.queue, d.op("queue")
}

func (d *fakeDevice) CurrentTrack(ctx context.Context) (*domain.CurrentTrack, error) {
	return d.current, d.op("current")
}

func (d *fakeDevice) State(ctx context.Context) (domain.PlaybackState, error) {
	d.rec.add(d.addr + ":state")
	return d.state, d.stateErr
}

type fakeSearcher struct {
	tracks []domain.TrackMetadata
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]domain.TrackMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.tracks) > limit {
		return f.tracks[:limit], nil
	}
	return f.tracks, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *memAudit) LogAudit(ctx context.Context, e domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type fakeDirectory map[string]string

func (d fakeDirectory) ResolveUser(ctx context.Context, arg string) (string, bool) {
	u, ok := d[arg]
	return u, ok
}

var testTrack = domain.TrackMetadata{
	Artist:     "Daft Punk",
	Title:      "One More Time",
	URI:        "spotify:track:0DiWol3AO6WpXZgp0goxAV",
	ArtworkURL: "https://i.scdn.co/image/small",
}

type harness struct {
	jb       *Jukebox
	rec      *recorder
	devs     []*fakeDevice
	searcher *fakeSearcher
	audit    *memAudit
}

func newHarness(t *testing.T, n int, blacklist ...string) *harness {
	t.Helper()
	h := &harness{
		rec:      &recorder{},
		searcher: &fakeSearcher{tracks: []domain.TrackMetadata{testTrack}},
		audit:    &memAudit{},
	}
	var devs []domain.Device
	for i := 0; i < n; i++ {
		d := &fakeDevice{
			addr:     string(rune('a' + i)),
			rec:      h.rec,
			state:    domain.StatePlaying,
			errs:     map[string]error{},
			position: 5 + i,
		}
		h.devs = append(h.devs, d)
		devs = append(devs, d)
	}
	pool, err := devices.NewPool(testLogger(), devs...)
	if err != nil {
		t.Fatal(err)
	}
	h.jb = New(Config{
		Pool:         pool,
		Resolver:     search.NewResolver(h.searcher, testLogger()),
		Gate:         moderation.NewGate(moderation.GateConfig{Blacklist: moderation.NewBlacklist(blacklist), Audit: h.audit, Logger: testLogger()}),
		Audit:        h.audit,
		Logger:       testLogger(),
		AdminChannel: "music-admin",
		SearchLimit:  3,
	})
	h.jb.RegisterDirectory("slack", fakeDirectory{"<@U2>": "<@U2>"})
	return h
}

func (h *harness) say(text string, admin bool) []string {
	return h.sayAs("<@U1>", text, admin)
}

func (h *harness) sayAs(user, text string, admin bool) []string {
	name := "music"
	if admin {
		name = "music-admin"
	}
	u := Utterance{
		Text:      text,
		Channel:   ChannelIdentity{ID: "C1", Name: name, Admin: admin},
		User:      user,
		Transport: "slack",
	}
	var (
		mu      sync.Mutex
		replies []string
	)
	h.jb.Handle(context.Background(), u, func(s string) {
		mu.Lock()
		defer mu.Unlock()
		replies = append(replies, s)
	})
	return replies
}

func mustPool(t *testing.T, devs ...domain.Device) *devices.Pool {
	t.Helper()
	p, err := devices.NewPool(testLogger(), devs...)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
