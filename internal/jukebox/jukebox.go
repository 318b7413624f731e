// Package jukebox turns chat utterances into speaker actions: it routes
// commands, runs the add-track state machine, fans control operations out to
// every speaker and renders queue listings.
package jukebox

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"jukebot/internal/devices"
	"jukebot/internal/domain"
	"jukebot/internal/metrics"
	"jukebot/internal/moderation"
	"jukebot/internal/search"
)

const (
	// BootstrapUser is the identity of utterances typed on the local
	// command line.
	BootstrapUser = "cli test"

	defaultSearchLimit = 7
)

type Config struct {
	Pool         *devices.Pool
	Resolver     *search.Resolver
	Gate         *moderation.Gate
	Audit        domain.AuditLogger // optional
	Logger       *slog.Logger
	AdminChannel string
	SearchLimit  int
	SettleDelay  time.Duration
}

// Jukebox is the command engine shared by every transport.
type Jukebox struct {
	pool         *devices.Pool
	resolver     *search.Resolver
	gate         *moderation.Gate
	audit        domain.AuditLogger
	logger       *slog.Logger
	adminChannel string
	searchLimit  int
	settleDelay  time.Duration
	router       *Router

	mu          sync.RWMutex
	directories map[string]domain.UserDirectory
}

func New(cfg Config) *Jukebox {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	j := &Jukebox{
		pool:         cfg.Pool,
		resolver:     cfg.Resolver,
		gate:         cfg.Gate,
		audit:        cfg.Audit,
		logger:       cfg.Logger,
		adminChannel: strings.TrimPrefix(cfg.AdminChannel, "#"),
		searchLimit:  cfg.SearchLimit,
		settleDelay:  cfg.SettleDelay,
		directories:  make(map[string]domain.UserDirectory),
	}

	public := map[string]Handler{
		"add":     j.addTrack,
		"search":  j.search,
		"current": j.current,
		"list":    j.list,
		"upnext":  j.upNext,
		"help":    j.help,
	}
	admin := map[string]Handler{
		"next":      j.next,
		"stop":      j.stop,
		"flush":     j.flush,
		"play":      j.play,
		"pause":     j.pause,
		"resume":    j.resume,
		"previous":  j.previous,
		"remove":    j.remove,
		"blacklist": j.blacklist,
	}
	j.router = NewRouter(public, admin, cfg.Logger)
	return j
}

// Router exposes the command tables.
func (j *Jukebox) Router() *Router { return j.router }

// RegisterDirectory installs the user lookup used for blacklist arguments
// arriving over the named transport.
func (j *Jukebox) RegisterDirectory(transport string, dir domain.UserDirectory) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.directories[transport] = dir
}

func (j *Jukebox) directory(transport string) domain.UserDirectory {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.directories[transport]
}

// IsAdminChannel compares a channel name with the configured admin channel.
func (j *Jukebox) IsAdminChannel(name string) bool {
	return strings.EqualFold(strings.TrimPrefix(name, "#"), j.adminChannel)
}

// Utterance converts an inbound chat event.
func (j *Jukebox) Utterance(msg domain.InboundMessage) Utterance {
	user := msg.Sender
	if user == "" {
		user = msg.SenderID
	}
	return Utterance{
		Text: msg.Content,
		Channel: ChannelIdentity{
			ID:    msg.ChatID,
			Name:  msg.ChatName,
			Admin: j.IsAdminChannel(msg.ChatName),
		},
		User:      user,
		UserIsBot: msg.SenderIsBot,
		Transport: msg.Channel,
	}
}

// AdminUtterance builds an utterance that appears to come from the admin
// channel, as used by the command-line bootstrap.
func (j *Jukebox) AdminUtterance(text, user, transport string) Utterance {
	return Utterance{
		Text:      text,
		Channel:   ChannelIdentity{ID: j.adminChannel, Name: j.adminChannel, Admin: true},
		User:      user,
		Transport: transport,
	}
}

// Handle runs the moderation gate and then routes the utterance. Every reply
// is passed to reply.
func (j *Jukebox) Handle(ctx context.Context, u Utterance, reply func(string)) {
	if strings.TrimSpace(u.Text) == "" {
		return
	}

	d := j.gate.Admit(moderation.Sender{Identity: u.User, IsBot: u.UserIsBot})
	if !d.Accept {
		metrics.CommandsDenied.Inc()
		if d.Reply != "" {
			reply(d.Reply)
		}
		return
	}

	route, ok := j.router.Route(ctx, u, reply)
	if ok && route.Admin {
		j.recordAdmin(ctx, u, route.Verb)
	}
}

func (j *Jukebox) recordAdmin(ctx context.Context, u Utterance, verb string) {
	if j.audit == nil || verb == "blacklist" {
		return
	}
	err := j.audit.LogAudit(ctx, domain.AuditEntry{
		Action:    "admin_command",
		Transport: u.Transport,
		Channel:   u.Channel.Name,
		User:      u.User,
		Command:   strings.Join(strings.Fields(u.Text), " "),
		Result:    "ok",
		Details:   verb,
	})
	if err != nil {
		j.logger.Error("audit write failed", "verb", verb, "err", err)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
