package bus

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"testing"

	"jukebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSendOutbound_DeliversToHandler(t *testing.T) {
	var console bytes.Buffer
	b := New(10, &console, testLogger())

	var got []domain.OutboundMessage
	b.OnOutbound("slack", func(msg domain.OutboundMessage) error {
		got = append(got, msg)
		return nil
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "slack", ChatID: "C1", Content: "hello"})

	if len(got) != 1 || got[0].ChatID != "C1" {
		t.Fatalf("expected one delivery to C1, got %v", got)
	}
	if console.Len() != 0 {
		t.Fatalf("console should be empty, got %q", console.String())
	}
}

func TestSendOutbound_NoHandlerFallsBackToConsole(t *testing.T) {
	var console bytes.Buffer
	b := New(10, &console, testLogger())

	b.SendOutbound(domain.OutboundMessage{Channel: "cli", ChatID: "direct", Content: "queue is clear"})

	if console.String() != "queue is clear\n" {
		t.Fatalf("expected console output, got %q", console.String())
	}
}

func TestSendOutbound_NotConnectedFallsBackToConsole(t *testing.T) {
	var console bytes.Buffer
	b := New(10, &console, testLogger())
	b.OnOutbound("slack", func(msg domain.OutboundMessage) error {
		return domain.ErrNotConnected
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "slack", ChatID: "C1", Content: "offline"})

	if console.String() != "offline\n" {
		t.Fatalf("expected console fallback, got %q", console.String())
	}
}

func TestSendOutbound_OtherErrorIsNotEchoed(t *testing.T) {
	var console bytes.Buffer
	b := New(10, &console, testLogger())
	b.OnOutbound("slack", func(msg domain.OutboundMessage) error {
		return errors.New("rate limited")
	})

	b.SendOutbound(domain.OutboundMessage{Channel: "slack", ChatID: "C1", Content: "x"})

	if console.Len() != 0 {
		t.Fatalf("delivery errors other than not-connected should only be logged, got %q", console.String())
	}
}

func TestSendOutbound_EmptyContentIgnored(t *testing.T) {
	var console bytes.Buffer
	b := New(10, &console, testLogger())
	b.SendOutbound(domain.OutboundMessage{Channel: "cli"})
	if console.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", console.String())
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := New(2, nil, testLogger())
	b.Publish(domain.InboundMessage{Channel: "cli", Content: "help"})

	msg := <-b.Subscribe()
	if msg.Content != "help" {
		t.Fatalf("expected 'help', got %q", msg.Content)
	}

	b.Close()
	b.Publish(domain.InboundMessage{Channel: "cli", Content: "late"})
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("expected closed inbound channel")
	}
}
