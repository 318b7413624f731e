package jukebox

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"jukebot/internal/domain"
)

// chanBus is a minimal MessageBus for driving the loop.
type chanBus struct {
	in  chan domain.InboundMessage
	mu  sync.Mutex
	out []domain.OutboundMessage
}

func newChanBus() *chanBus { return &chanBus{in: make(chan domain.InboundMessage, 10)} }

func (b *chanBus) Publish(msg domain.InboundMessage)                { b.in <- msg }
func (b *chanBus) Subscribe() <-chan domain.InboundMessage          { return b.in }
func (b *chanBus) OnOutbound(name string, h domain.OutboundHandler) {}
func (b *chanBus) Close()                                           { close(b.in) }

func (b *chanBus) SendOutbound(msg domain.OutboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.out = append(b.out, msg)
}

func (b *chanBus) sent() []domain.OutboundMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.OutboundMessage(nil), b.out...)
}

func inbound(text string) domain.InboundMessage {
	return domain.InboundMessage{
		Channel:   "slack",
		Type:      domain.MessageTypeMessage,
		ChatID:    "C1",
		ChatName:  "music",
		SenderID:  "U1",
		Sender:    "<@U1>",
		Content:   text,
		Timestamp: time.Now(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestValidateInbound(t *testing.T) {
	if err := ValidateInbound(inbound("help")); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}

	bad := inbound("  ")
	bad.Type = "message_changed"
	bad.ChatName = ""
	err := ValidateInbound(bad)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"not a message", "no text", "channel"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %q", err, want)
		}
	}
}

func TestLoop_RepliesThroughBus(t *testing.T) {
	h := newHarness(t, 1)
	b := newChanBus()
	loop := NewLoop(LoopConfig{Jukebox: h.jb, Bus: b, Logger: testLogger(), Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	edited := inbound("help")
	edited.Type = "message_changed"
	b.Publish(edited)
	b.Publish(inbound("help"))

	waitFor(t, func() bool { return len(b.sent()) == 1 })
	out := b.sent()[0]
	if out.Channel != "slack" || out.ChatID != "C1" || !strings.HasPrefix(out.Content, "Current commands!") {
		t.Fatalf("unexpected outbound: %+v", out)
	}
}

// panicDevice blows up when asked for its queue.
type panicDevice struct{ *fakeDevice }

func (p panicDevice) Queue(ctx context.Context) (domain.QueueSnapshot, error) { panic("boom") }

func TestLoop_SurvivesPanickingHandler(t *testing.T) {
	h := newHarness(t, 1)
	h.jb.pool = mustPool(t, panicDevice{h.devs[0]})

	b := newChanBus()
	loop := NewLoop(LoopConfig{Jukebox: h.jb, Bus: b, Logger: testLogger(), Concurrency: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	b.Publish(inbound("list"))
	b.Publish(inbound("help"))

	waitFor(t, func() bool { return len(b.sent()) == 1 })
	if !strings.HasPrefix(b.sent()[0].Content, "Current commands!") {
		t.Fatalf("unexpected outbound: %+v", b.sent())
	}
}
