package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"jukebot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen = 4000
	telegramDMName    = "direct-message"
)

// Telegram implements domain.Channel and domain.UserDirectory for a Telegram
// bot. Group titles act as channel names; users are addressed as @username.
type Telegram struct {
	token     string
	bot       *tgbotapi.BotAPI
	bus       domain.MessageBus
	logger    *slog.Logger
	connected atomic.Bool

	// Telegram has no user lookup by name, so the directory only knows
	// users that have written something since startup.
	seenMu sync.RWMutex
	seen   map[string]string // lowercase username -> identity
}

type TelegramConfig struct {
	Token  string
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	return &Telegram{
		token:  cfg.Token,
		logger: cfg.Logger,
		seen:   make(map[string]string),
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start long-polls for updates until ctx is done.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.connected.Store(true)
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) error {
		if !t.connected.Load() {
			return domain.ErrNotConnected
		}
		return t.Send(ctx, msg.ChatID, msg.Content)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.connected.Store(false)
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				t.connected.Store(false)
				return nil
			}
			if msg, ok := t.inbound(update); ok {
				bus.Publish(msg)
			}
		}
	}
}

// inbound converts an update into a chat event. Bot commands such as
// "/add@jukebot foo" become "add foo".
func (t *Telegram) inbound(update tgbotapi.Update) (domain.InboundMessage, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return domain.InboundMessage{}, false
	}

	text := strings.TrimSpace(m.Text)
	if m.IsCommand() {
		text = strings.TrimSpace(m.Command() + " " + m.CommandArguments())
		if m.Command() == "start" {
			text = "help"
		}
	}

	identity := t.remember(m.From)
	chatName := m.Chat.Title
	if m.Chat.IsPrivate() {
		chatName = telegramDMName
	}

	t.logger.Debug("telegram message received",
		"user_id", m.From.ID,
		"chat_id", m.Chat.ID,
		"text_len", len(text),
	)

	return domain.InboundMessage{
		Channel:     "telegram",
		Type:        domain.MessageTypeMessage,
		ChatID:      strconv.FormatInt(m.Chat.ID, 10),
		ChatName:    chatName,
		SenderID:    strconv.FormatInt(m.From.ID, 10),
		Sender:      identity,
		SenderIsBot: m.From.IsBot,
		Content:     text,
		Timestamp:   time.Unix(int64(m.Date), 0),
	}, true
}

func (t *Telegram) remember(u *tgbotapi.User) string {
	if u.UserName == "" {
		return strconv.FormatInt(u.ID, 10)
	}
	identity := "@" + u.UserName
	t.seenMu.Lock()
	t.seen[strings.ToLower(u.UserName)] = identity
	t.seenMu.Unlock()
	return identity
}

// ResolveUser accepts @username for users seen since startup.
func (t *Telegram) ResolveUser(ctx context.Context, arg string) (string, bool) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(arg), "@"))
	t.seenMu.RLock()
	defer t.seenMu.RUnlock()
	identity, ok := t.seen[name]
	return identity, ok
}

func (t *Telegram) Stop() error {
	t.connected.Store(false)
	return nil
}

// Send posts plain text; chat output uses Slack-style markup that Telegram's
// Markdown parser would reject.
func (t *Telegram) Send(ctx context.Context, chatID string, content string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat ID %q: %w", chatID, err)
	}
	if t.bot == nil {
		return domain.ErrNotConnected
	}
	for _, chunk := range splitMessage(content, telegramMaxMsgLen) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(id, chunk)); err != nil {
			return fmt.Errorf("telegram send to %d: %w", id, err)
		}
	}
	return nil
}
