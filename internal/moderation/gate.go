// Package moderation decides whether a chat command may run and owns the
// blacklist sub-command.
package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"jukebot/internal/domain"
)

// Sender describes who sent an utterance.
type Sender struct {
	Identity string // mention-formatted, e.g. <@U123>
	IsBot    bool
}

// Decision is the outcome of Admit. Reply is empty for silent rejections.
type Decision struct {
	Accept bool
	Reply  string
}

// Gate evaluates bot and blacklist rules before a command is routed.
// Channel-scoped authorization lives in the router's command tables.
type Gate struct {
	blacklist *Blacklist
	audit     domain.AuditLogger
	logger    *slog.Logger
}

type GateConfig struct {
	Blacklist *Blacklist
	Audit     domain.AuditLogger // optional
	Logger    *slog.Logger
}

func NewGate(cfg GateConfig) *Gate {
	bl := cfg.Blacklist
	if bl == nil {
		bl = NewBlacklist(nil)
	}
	return &Gate{
		blacklist: bl,
		audit:     cfg.Audit,
		logger:    cfg.Logger,
	}
}

// Blacklist exposes the owned set.
func (g *Gate) Blacklist() *Blacklist { return g.blacklist }

func (g *Gate) Admit(s Sender) Decision {
	if s.IsBot {
		g.logger.Info("ignoring message from bot account", "user", s.Identity)
		return Decision{}
	}
	if g.blacklist.Contains(s.Identity) {
		g.logger.Info("user is blacklisted", "user", s.Identity)
		return Decision{Reply: fmt.Sprintf("Nice try %s, you're banned :)", s.Identity)}
	}
	return Decision{Accept: true}
}

// BlacklistRequest carries the context of a blacklist sub-command.
type BlacklistRequest struct {
	Args      []string // arguments after the "blacklist" verb
	Directory domain.UserDirectory
	Transport string
	Channel   string
	User      string
}

const blacklistUsage = "Usage: `blacklist add|del @username`"

// HandleBlacklist executes "blacklist [add|del <user>]" and returns the reply.
func (g *Gate) HandleBlacklist(ctx context.Context, req BlacklistRequest) string {
	if len(req.Args) == 0 {
		users := g.blacklist.List()
		if len(users) == 0 {
			return "The blacklist is empty."
		}
		return "The following users are blacklisted:\n```\n" + strings.Join(users, "\n") + "\n```"
	}

	action := strings.ToLower(req.Args[0])
	if (action != "add" && action != "del") || len(req.Args) < 2 {
		return blacklistUsage
	}

	arg := req.Args[1]
	var (
		user string
		ok   bool
	)
	if req.Directory != nil {
		user, ok = req.Directory.ResolveUser(ctx, arg)
	}
	if !ok {
		g.logger.Info("blacklist argument is not a known user", "arg", arg)
		return fmt.Sprintf("The user %s is not a valid user.", arg)
	}

	switch action {
	case "add":
		if !g.blacklist.Add(user) {
			return fmt.Sprintf("The user %s is already on the blacklist.", user)
		}
		g.logger.Info("user added to blacklist", "user", user, "by", req.User)
		g.record(ctx, req, "blacklist_add", user)
		return fmt.Sprintf("The user %s has been added to the blacklist.", user)
	default:
		if !g.blacklist.Remove(user) {
			return fmt.Sprintf("The user %s is not on the blacklist.", user)
		}
		g.logger.Info("user removed from blacklist", "user", user, "by", req.User)
		g.record(ctx, req, "blacklist_del", user)
		return fmt.Sprintf("The user %s has been removed from the blacklist.", user)
	}
}

func (g *Gate) record(ctx context.Context, req BlacklistRequest, action, target string) {
	if g.audit == nil {
		return
	}
	err := g.audit.LogAudit(ctx, domain.AuditEntry{
		Action:    action,
		Transport: req.Transport,
		Channel:   req.Channel,
		User:      req.User,
		Command:   "blacklist " + strings.Join(req.Args, " "),
		Result:    "ok",
		Details:   target,
	})
	if err != nil {
		g.logger.Error("audit write failed", "action", action, "err", err)
	}
}
