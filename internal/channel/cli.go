package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"jukebot/internal/domain"
)

// CLIUser is the identity every REPL line is sent as.
const CLIUser = "cli test"

// CLI implements domain.Channel for an interactive terminal session. Every
// line is treated as a message typed in the admin channel.
type CLI struct {
	bus          domain.MessageBus
	logger       *slog.Logger
	adminChannel string
	in           io.Reader
	out          io.Writer
}

type CLIConfig struct {
	AdminChannel string
	Logger       *slog.Logger
	In           io.Reader
	Out          io.Writer
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	return &CLI{
		logger:       cfg.Logger,
		adminChannel: strings.TrimPrefix(cfg.AdminChannel, "#"),
		in:           cfg.In,
		out:          cfg.Out,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the REPL and blocks until EOF, /quit, or ctx is done.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", func(msg domain.OutboundMessage) error {
		return c.Send(ctx, msg.ChatID, msg.Content)
	})

	_, _ = fmt.Fprintln(c.out, "jukebot console. Type a command and press Enter. Type /quit to exit.")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		c.bus.Publish(domain.InboundMessage{
			Channel:   "cli",
			Type:      domain.MessageTypeMessage,
			ChatID:    c.adminChannel,
			ChatName:  c.adminChannel,
			SenderID:  CLIUser,
			Sender:    CLIUser,
			Content:   line,
			Timestamp: time.Now(),
		})
	}
}

// ResolveUser accepts any mention-shaped argument; the console has no
// user list of its own.
func (c *CLI) ResolveUser(ctx context.Context, arg string) (string, bool) {
	id, ok := mentionID(arg)
	if !ok {
		return "", false
	}
	return "<@" + id + ">", true
}

// Stop is a no-op; the REPL exits when Start returns.
func (c *CLI) Stop() error { return nil }

func (c *CLI) Send(ctx context.Context, chatID string, content string) error {
	_, err := fmt.Fprintln(c.out, content)
	return err
}
