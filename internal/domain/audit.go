package domain

import (
	"context"
	"time"
)

// AuditEntry records an admin or moderation action.
type AuditEntry struct {
	ID        int64
	Action    string // command | blacklist_add | blacklist_del | denied
	Transport string
	Channel   string
	User      string
	Command   string
	Result    string // ok | failed | partial | denied
	Details   string
	CreatedAt time.Time
}

// AuditLogger persists audit entries.
type AuditLogger interface {
	LogAudit(ctx context.Context, entry AuditEntry) error
}
