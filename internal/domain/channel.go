package domain

import "context"

// Channel is the interface for chat transports (Slack, Discord, Telegram, CLI).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
	Send(ctx context.Context, chatID string, content string) error
}

// UserDirectory resolves a user argument typed in chat (e.g. "<@U123>") to a
// known, mention-formatted identity.
type UserDirectory interface {
	ResolveUser(ctx context.Context, arg string) (string, bool)
}
