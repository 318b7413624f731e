package jukebox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"jukebot/internal/domain"
	"jukebot/internal/metrics"
)

const defaultConcurrency = 5

// Loop feeds inbound chat events from the bus to the jukebox.
type Loop struct {
	jukebox     *Jukebox
	bus         domain.MessageBus
	logger      *slog.Logger
	concurrency int
}

type LoopConfig struct {
	Jukebox     *Jukebox
	Bus         domain.MessageBus
	Logger      *slog.Logger
	Concurrency int // max messages handled at once (default 5)
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loop{
		jukebox:     cfg.Jukebox,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound messages until ctx is done or the bus closes. Each
// message is handled on its own goroutine, at most concurrency at a time.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("jukebox loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("jukebox loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, jukebox loop stopping")
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				l.processMessage(ctx, m)
			}(msg)
		}
	}
}

// processMessage never lets a failure escape: a panicking handler is logged
// and the loop carries on with the next message.
func (l *Loop) processMessage(ctx context.Context, msg domain.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("command handler panicked",
				"channel", msg.Channel,
				"chat", msg.ChatName,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := ValidateInbound(msg); err != nil {
		l.logger.Debug("dropping inbound event", "channel", msg.Channel, "err", err)
		metrics.MessagesDropped.Inc()
		return
	}

	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	u := l.jukebox.Utterance(msg)
	l.jukebox.Handle(ctx, u, func(text string) {
		l.bus.SendOutbound(domain.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  msg.ChatID,
			Content: text,
		})
	})
}

// ValidateInbound reports every reason an event cannot be handled.
func ValidateInbound(msg domain.InboundMessage) error {
	var errs []error
	if msg.Type != domain.MessageTypeMessage {
		errs = append(errs, fmt.Errorf("event type %q is not a message", msg.Type))
	}
	if strings.TrimSpace(msg.Content) == "" {
		errs = append(errs, errors.New("message has no text"))
	}
	if msg.ChatID == "" || msg.ChatName == "" {
		errs = append(errs, errors.New("channel could not be resolved"))
	}
	return errors.Join(errs...)
}
