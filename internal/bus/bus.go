package bus

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"jukebot/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based message bus for in-process communication.
// Outbound text for a transport that is missing or not connected is written to
// the console sink instead of being lost.
type InMemoryBus struct {
	inbound  chan domain.InboundMessage
	handlers map[string]domain.OutboundHandler
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger

	consoleMu sync.Mutex
	console   io.Writer
}

// New creates a new InMemoryBus with the given buffer size. A nil console
// writes to stdout.
func New(bufferSize int, console io.Writer, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if console == nil {
		console = os.Stdout
	}
	return &InMemoryBus{
		inbound:  make(chan domain.InboundMessage, bufferSize),
		handlers: make(map[string]domain.OutboundHandler),
		console:  console,
		logger:   logger,
	}
}

// Blocks up to 10 seconds if the bus is full instead of dropping.
func (b *InMemoryBus) Publish(msg domain.InboundMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.inbound <- msg:
	default:
		b.logger.Warn("inbound bus full, waiting...", "channel", msg.Channel, "sender", msg.SenderID)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- msg:
			b.logger.Info("message delivered after wait", "channel", msg.Channel)
		case <-timer.C:
			b.logger.Error("message dropped: bus full for 10s",
				"channel", msg.Channel,
				"sender", msg.SenderID,
			)
		}
	}
}

func (b *InMemoryBus) Subscribe() <-chan domain.InboundMessage {
	return b.inbound
}

func (b *InMemoryBus) SendOutbound(msg domain.OutboundMessage) {
	if msg.Content == "" {
		return
	}

	b.mu.RLock()
	handler, ok := b.handlers[msg.Channel]
	b.mu.RUnlock()

	if !ok {
		b.logger.Debug("no handler registered for channel, writing to console", "channel", msg.Channel)
		b.writeConsole(msg)
		return
	}

	if err := handler(msg); err != nil {
		if errors.Is(err, domain.ErrNotConnected) {
			b.logger.Warn("transport not connected, writing to console", "channel", msg.Channel)
			b.writeConsole(msg)
			return
		}
		b.logger.Error("outbound delivery failed", "channel", msg.Channel, "chat_id", msg.ChatID, "err", err)
	}
}

func (b *InMemoryBus) writeConsole(msg domain.OutboundMessage) {
	b.consoleMu.Lock()
	defer b.consoleMu.Unlock()
	if _, err := fmt.Fprintln(b.console, msg.Content); err != nil {
		b.logger.Error("console write failed", "err", err)
	}
}

func (b *InMemoryBus) OnOutbound(channelName string, handler domain.OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channelName] = handler
}

func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
