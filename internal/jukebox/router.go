package jukebox

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"jukebot/internal/metrics"
)

// Handler runs one command.
type Handler func(ctx context.Context, req *Request)

// Route describes where an utterance was dispatched.
type Route struct {
	Verb  string
	Admin bool
}

// Router maps verbs to handlers. The public table is consulted first; the
// admin table only for utterances from the admin channel. Anything else is
// ignored without a reply.
type Router struct {
	public map[string]Handler
	admin  map[string]Handler
	logger *slog.Logger
}

// NewRouter panics if a verb appears in both tables.
func NewRouter(public, admin map[string]Handler, logger *slog.Logger) *Router {
	for verb := range admin {
		if _, dup := public[verb]; dup {
			panic(fmt.Sprintf("jukebox: verb %q registered in both command tables", verb))
		}
	}
	return &Router{public: public, admin: admin, logger: logger}
}

// Parse splits text into a lowercase verb and its arguments.
func Parse(text string) (verb string, args []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

// Route dispatches u and reports whether a handler ran.
func (r *Router) Route(ctx context.Context, u Utterance, reply func(string)) (Route, bool) {
	verb, args := Parse(u.Text)
	if verb == "" {
		return Route{}, false
	}

	h, ok := r.public[verb]
	admin := false
	if !ok && u.Channel.Admin {
		h, ok = r.admin[verb]
		admin = ok
	}
	if !ok {
		r.logger.Debug("ignoring unknown verb", "verb", verb, "channel", u.Channel.Name)
		return Route{}, false
	}

	r.logger.Info("routing command", "verb", verb, "user", u.User, "channel", u.Channel.Name, "admin", admin)
	metrics.CommandRouted(verb)
	start := time.Now()
	h(ctx, &Request{Utterance: u, Verb: verb, Args: args, reply: reply})
	metrics.CommandLatency.Observe(time.Since(start).Seconds())

	return Route{Verb: verb, Admin: admin}, true
}

// Verbs lists the registered verbs of each table in sorted order.
func (r *Router) Verbs() (public, admin []string) {
	public, admin = lo.Keys(r.public), lo.Keys(r.admin)
	slices.Sort(public)
	slices.Sort(admin)
	return public, admin
}
