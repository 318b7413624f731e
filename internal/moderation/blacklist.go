package moderation

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Blacklist is the set of banned user identities. It lives in process memory
// only; a restart resets it to the configured seed list.
type Blacklist struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

// NewBlacklist seeds the set, dropping blanks and duplicates.
func NewBlacklist(seed []string) *Blacklist {
	b := &Blacklist{users: make(map[string]struct{}, len(seed))}
	for _, u := range lo.Uniq(lo.Compact(lo.Map(seed, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))) {
		b.users[u] = struct{}{}
	}
	return b
}

func (b *Blacklist) Contains(user string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.users[user]
	return ok
}

// Add inserts user and reports whether it was absent.
func (b *Blacklist) Add(user string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[user]; ok {
		return false
	}
	b.users[user] = struct{}{}
	return true
}

// Remove deletes user and reports whether it was present.
func (b *Blacklist) Remove(user string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[user]; !ok {
		return false
	}
	delete(b.users, user)
	return true
}

// List returns the members in sorted order.
func (b *Blacklist) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := lo.Keys(b.users)
	slices.Sort(out)
	return out
}
