package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"jukebot/internal/domain"
)

// Resolver turns command arguments into tracks, or into the message the user
// should see instead.
type Resolver struct {
	searcher domain.TrackSearcher
	logger   *slog.Logger
}

func NewResolver(searcher domain.TrackSearcher, logger *slog.Logger) *Resolver {
	return &Resolver{searcher: searcher, logger: logger}
}

// Resolve searches for the words in args. Exactly one of the return values is
// meaningful: a non-empty message means there are no tracks to act on.
func (r *Resolver) Resolve(ctx context.Context, args []string, user string, limit int) ([]domain.TrackMetadata, string) {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return nil, fmt.Sprintf("%s, you have to tell me what to look for. Try `add <artist> <title>`.", user)
	}
	if limit < 1 {
		limit = 1
	}

	tracks, err := r.searcher.Search(ctx, query, limit)
	switch {
	case errors.Is(err, domain.ErrNoResults):
		return nil, notFound(user, query)
	case err != nil:
		r.logger.Error("track search failed", "query", query, "err", err)
		return nil, fmt.Sprintf("Sorry %s, Spotify is not responding right now...", user)
	case len(tracks) == 0:
		return nil, notFound(user, query)
	}

	return lo.Subset(tracks, 0, uint(limit)), ""
}

func notFound(user, query string) string {
	return fmt.Sprintf("Sorry %s, I could not find anything matching '%s'.", user, query)
}
