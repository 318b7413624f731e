package channel

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"jukebot/internal/domain"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const slackMaxMsgLen = 4000

// Slack implements domain.Channel and domain.UserDirectory using Socket Mode.
type Slack struct {
	client    *slack.Client
	socket    *socketmode.Client
	bus       domain.MessageBus
	logger    *slog.Logger
	botUID    string // the bot's own user ID, to avoid replying to self
	connected atomic.Bool

	mu       sync.Mutex
	channels map[string]string // channel ID -> name
	bots     map[string]bool   // user ID -> is bot
}

type SlackConfig struct {
	BotToken string
	AppToken string
	Logger   *slog.Logger

	// APIURL overrides the Web API base URL. Used in tests.
	APIURL string
}

func NewSlack(cfg SlackConfig) *Slack {
	opts := []slack.Option{slack.OptionAppLevelToken(cfg.AppToken)}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return &Slack{
		client:   slack.New(cfg.BotToken, opts...),
		logger:   cfg.Logger,
		channels: make(map[string]string),
		bots:     make(map[string]bool),
	}
}

func (s *Slack) Name() string { return "slack" }

// Start connects via Socket Mode and blocks until ctx is done.
func (s *Slack) Start(ctx context.Context, bus domain.MessageBus) error {
	s.bus = bus

	authResp, err := s.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.botUID = authResp.UserID
	s.logger.Info("slack bot authenticated", "user", authResp.User, "user_id", authResp.UserID)

	s.socket = socketmode.New(s.client)

	bus.OnOutbound("slack", func(msg domain.OutboundMessage) error {
		if !s.connected.Load() {
			return domain.ErrNotConnected
		}
		return s.Send(ctx, msg.ChatID, msg.Content)
	})

	go s.handleEvents(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.socket.RunContext(ctx)
	}()

	select {
	case <-ctx.Done():
		s.connected.Store(false)
		s.logger.Info("slack bot disconnecting")
		return nil
	case err := <-errCh:
		s.connected.Store(false)
		return fmt.Errorf("slack socket mode: %w", err)
	}
}

func (s *Slack) handleEvents(ctx context.Context) {
	for evt := range s.socket.Events {
		switch evt.Type {
		case socketmode.EventTypeConnecting:
			s.logger.Info("slack connecting")
		case socketmode.EventTypeConnected:
			s.connected.Store(true)
			s.logger.Info("slack connected")
		case socketmode.EventTypeConnectionError, socketmode.EventTypeDisconnect:
			s.connected.Store(false)
			s.logger.Warn("slack connection lost", "event", evt.Type)

		case socketmode.EventTypeEventsAPI:
			event, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			s.socket.Ack(*evt.Request)
			if event.Type != slackevents.CallbackEvent {
				continue
			}
			if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
				s.handleMessage(ctx, ev)
			}

		case socketmode.EventTypeSlashCommand:
			cmd, ok := evt.Data.(slack.SlashCommand)
			if !ok {
				continue
			}
			s.socket.Ack(*evt.Request)
			s.handleSlashCommand(cmd)

		default:
			// Unacknowledged requests make Slack drop the connection.
			if evt.Request != nil {
				s.socket.Ack(*evt.Request)
			}
		}
	}
}

// handleMessage publishes a channel message. Edits, joins and other subtypes
// keep their subtype as event type so the loop drops them.
func (s *Slack) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.User != "" && ev.User == s.botUID {
		return
	}

	eventType := domain.MessageTypeMessage
	if ev.SubType != "" {
		eventType = ev.SubType
	}

	s.logger.Debug("slack message received",
		"user", ev.User,
		"channel", ev.Channel,
		"subtype", ev.SubType,
		"content_len", len(ev.Text),
	)

	s.bus.Publish(domain.InboundMessage{
		Channel:     "slack",
		Type:        eventType,
		ChatID:      ev.Channel,
		ChatName:    s.channelName(ctx, ev.Channel),
		SenderID:    ev.User,
		Sender:      "<@" + ev.User + ">",
		SenderIsBot: ev.BotID != "" || s.isBot(ctx, ev.User),
		Content:     html.UnescapeString(ev.Text),
		Timestamp:   time.Now(),
	})
}

// handleSlashCommand treats "/jukebox add foo" like the message "add foo".
func (s *Slack) handleSlashCommand(cmd slack.SlashCommand) {
	s.logger.Info("slack slash command", "command", cmd.Command, "user", cmd.UserID, "channel", cmd.ChannelID)

	s.bus.Publish(domain.InboundMessage{
		Channel:   "slack",
		Type:      domain.MessageTypeMessage,
		ChatID:    cmd.ChannelID,
		ChatName:  cmd.ChannelName,
		SenderID:  cmd.UserID,
		Sender:    "<@" + cmd.UserID + ">",
		Content:   strings.TrimSpace(html.UnescapeString(cmd.Text)),
		Timestamp: time.Now(),
	})
}

// channelName looks the channel up once via conversations.info. An empty
// result means the channel could not be resolved.
func (s *Slack) channelName(ctx context.Context, id string) string {
	s.mu.Lock()
	name, ok := s.channels[id]
	s.mu.Unlock()
	if ok {
		return name
	}

	ch, err := s.client.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: id})
	if err != nil {
		s.logger.Warn("slack channel lookup failed", "channel", id, "err", err)
		return ""
	}
	s.mu.Lock()
	s.channels[id] = ch.Name
	s.mu.Unlock()
	return ch.Name
}

func (s *Slack) isBot(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	s.mu.Lock()
	bot, ok := s.bots[userID]
	s.mu.Unlock()
	if ok {
		return bot
	}

	user, err := s.client.GetUserInfoContext(ctx, userID)
	if err != nil {
		s.logger.Warn("slack user lookup failed", "user", userID, "err", err)
		return false
	}
	s.mu.Lock()
	s.bots[userID] = user.IsBot
	s.mu.Unlock()
	return user.IsBot
}

// ResolveUser accepts a Slack mention such as <@U123> and confirms the user
// exists.
func (s *Slack) ResolveUser(ctx context.Context, arg string) (string, bool) {
	id, ok := mentionID(arg)
	if !ok {
		return "", false
	}
	user, err := s.client.GetUserInfoContext(ctx, id)
	if err != nil {
		s.logger.Debug("slack user lookup failed", "user", id, "err", err)
		return "", false
	}
	return "<@" + user.ID + ">", true
}

func (s *Slack) Stop() error {
	s.connected.Store(false)
	return nil
}

func (s *Slack) Send(ctx context.Context, chatID string, content string) error {
	for _, chunk := range splitMessage(content, slackMaxMsgLen) {
		_, _, err := s.client.PostMessageContext(ctx, chatID,
			slack.MsgOptionText(chunk, false),
			slack.MsgOptionAsUser(true),
		)
		if err != nil {
			return fmt.Errorf("slack send to %s: %w", chatID, err)
		}
	}
	return nil
}
