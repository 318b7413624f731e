package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"jukebot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	discordMaxMsgLen = 2000
	discordDMName    = "direct-message"
)

// Discord implements domain.Channel and domain.UserDirectory for Discord.
type Discord struct {
	guildID   string
	session   *discordgo.Session
	bus       domain.MessageBus
	logger    *slog.Logger
	connected atomic.Bool
}

type DiscordConfig struct {
	Token   string
	GuildID string // optional: only listen in this guild
	Logger  *slog.Logger
}

func NewDiscord(cfg DiscordConfig) (*Discord, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	return &Discord{
		guildID: cfg.GuildID,
		session: session,
		logger:  cfg.Logger,
	}, nil
}

func (d *Discord) Name() string { return "discord" }

// Start connects the gateway session and blocks until ctx is done.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	d.bus = bus

	bus.OnOutbound("discord", func(msg domain.OutboundMessage) error {
		if !d.connected.Load() {
			return domain.ErrNotConnected
		}
		return d.Send(ctx, msg.ChatID, msg.Content)
	})

	d.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		d.connected.Store(true)
		d.logger.Info("discord connected", "user", r.User.Username)
	})
	d.session.AddHandler(func(s *discordgo.Session, _ *discordgo.Disconnect) {
		d.connected.Store(false)
		d.logger.Warn("discord disconnected")
	})
	d.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}
		if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
			return
		}
		bus.Publish(d.inbound(m))
	})
	d.session.AddHandler(d.handleInteraction)

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.registerSlashCommand()

	<-ctx.Done()
	d.connected.Store(false)
	d.logger.Info("discord bot disconnecting")
	return d.session.Close()
}

func (d *Discord) inbound(m *discordgo.MessageCreate) domain.InboundMessage {
	d.logger.Debug("discord message received",
		"author", m.Author.Username,
		"channel_id", m.ChannelID,
		"content_len", len(m.Content),
	)
	return domain.InboundMessage{
		Channel:     "discord",
		Type:        domain.MessageTypeMessage,
		ChatID:      m.ChannelID,
		ChatName:    d.channelName(m.ChannelID),
		SenderID:    m.Author.ID,
		Sender:      "<@" + m.Author.ID + ">",
		SenderIsBot: m.Author.Bot,
		Content:     m.Content,
		Timestamp:   time.Now(),
	}
}

// channelName prefers the gateway state cache and falls back to REST.
func (d *Discord) channelName(id string) string {
	ch, err := d.session.State.Channel(id)
	if err != nil {
		if ch, err = d.session.Channel(id); err != nil {
			d.logger.Warn("discord channel lookup failed", "channel", id, "err", err)
			return ""
		}
	}
	if ch.Type == discordgo.ChannelTypeDM || ch.Type == discordgo.ChannelTypeGroupDM {
		return discordDMName
	}
	return ch.Name
}

// handleInteraction turns "/jukebox command:<text>" into a chat message.
func (d *Discord) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	var parts []string
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			parts = append(parts, opt.StringValue())
		}
	}
	content := strings.Join(parts, " ")

	user := i.User
	if i.Member != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "`" + content + "`"},
	})
	if err != nil {
		d.logger.Warn("discord interaction ack failed", "err", err)
	}

	d.bus.Publish(domain.InboundMessage{
		Channel:     "discord",
		Type:        domain.MessageTypeMessage,
		ChatID:      i.ChannelID,
		ChatName:    d.channelName(i.ChannelID),
		SenderID:    user.ID,
		Sender:      "<@" + user.ID + ">",
		SenderIsBot: user.Bot,
		Content:     content,
		Timestamp:   time.Now(),
	})
}

func (d *Discord) registerSlashCommand() {
	cmd := &discordgo.ApplicationCommand{
		Name:        "jukebox",
		Description: "Send a command to the jukebox",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "command",
				Description: "e.g. add daft punk one more time",
				Required:    true,
			},
		},
	}
	if _, err := d.session.ApplicationCommandCreate(d.session.State.User.ID, d.guildID, cmd); err != nil {
		d.logger.Warn("failed to register slash command", "command", cmd.Name, "err", err)
	}
}

// ResolveUser accepts a Discord mention such as <@123> or <@!123>.
func (d *Discord) ResolveUser(ctx context.Context, arg string) (string, bool) {
	id, ok := mentionID(arg)
	if !ok {
		return "", false
	}
	u, err := d.session.User(id, discordgo.WithContext(ctx))
	if err != nil {
		d.logger.Debug("discord user lookup failed", "user", id, "err", err)
		return "", false
	}
	return "<@" + u.ID + ">", true
}

func (d *Discord) Stop() error {
	d.connected.Store(false)
	return nil
}

func (d *Discord) Send(ctx context.Context, chatID string, content string) error {
	for _, chunk := range splitMessage(content, discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(chatID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord send to %s: %w", chatID, err)
		}
	}
	return nil
}
