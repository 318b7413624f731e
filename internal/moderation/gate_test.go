package moderation

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"

	"jukebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeDirectory resolves only the users it knows about.
type fakeDirectory map[string]string

func (d fakeDirectory) ResolveUser(ctx context.Context, arg string) (string, bool) {
	u, ok := d[arg]
	return u, ok
}

type memAudit struct{ entries []domain.AuditEntry }

func (m *memAudit) LogAudit(ctx context.Context, e domain.AuditEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func newTestGate(seed ...string) (*Gate, *memAudit) {
	audit := &memAudit{}
	return NewGate(GateConfig{Blacklist: NewBlacklist(seed), Audit: audit, Logger: testLogger()}), audit
}

var dir = fakeDirectory{"<@U1>": "<@U1>", "<@U2>": "<@U2>"}

func blacklist(g *Gate, args ...string) string {
	return g.HandleBlacklist(context.Background(), BlacklistRequest{
		Args:      args,
		Directory: dir,
		Transport: "slack",
		Channel:   "music-admin",
		User:      "<@ADMIN>",
	})
}

// --- Admit ---

func TestAdmit_BotRejectedSilently(t *testing.T) {
	g, _ := newTestGate()
	d := g.Admit(Sender{Identity: "<@B1>", IsBot: true})
	if d.Accept {
		t.Fatal("bots must be rejected")
	}
	if d.Reply != "" {
		t.Fatalf("bot rejection must be silent, got %q", d.Reply)
	}
}

func TestAdmit_BlacklistedUserGetsOneDenial(t *testing.T) {
	g, _ := newTestGate("<@U1>")
	d := g.Admit(Sender{Identity: "<@U1>"})
	if d.Accept {
		t.Fatal("blacklisted user must be rejected")
	}
	if !strings.Contains(d.Reply, "banned") || !strings.Contains(d.Reply, "<@U1>") {
		t.Fatalf("unexpected denial: %q", d.Reply)
	}
}

func TestAdmit_RegularUserAccepted(t *testing.T) {
	g, _ := newTestGate("<@U1>")
	if d := g.Admit(Sender{Identity: "<@U2>"}); !d.Accept {
		t.Fatal("expected accept")
	}
}

// --- Blacklist sub-command ---

func TestBlacklist_AddTwiceKeepsOneEntry(t *testing.T) {
	g, _ := newTestGate()

	if reply := blacklist(g, "add", "<@U1>"); !strings.Contains(reply, "has been added") {
		t.Fatalf("first add: %q", reply)
	}
	if reply := blacklist(g, "add", "<@U1>"); !strings.Contains(reply, "already on the blacklist") {
		t.Fatalf("second add should report already listed, got %q", reply)
	}
	if got := g.Blacklist().List(); !slices.Equal(got, []string{"<@U1>"}) {
		t.Fatalf("expected exactly one entry, got %v", got)
	}
}

func TestBlacklist_AddThenDelRoundTrip(t *testing.T) {
	g, _ := newTestGate("<@U2>")
	before := g.Blacklist().List()

	blacklist(g, "add", "<@U1>")
	if reply := blacklist(g, "del", "<@U1>"); !strings.Contains(reply, "has been removed") {
		t.Fatalf("del: %q", reply)
	}

	if after := g.Blacklist().List(); !slices.Equal(before, after) {
		t.Fatalf("expected %v after round trip, got %v", before, after)
	}
}

func TestBlacklist_DelMissing(t *testing.T) {
	g, _ := newTestGate()
	if reply := blacklist(g, "del", "<@U1>"); !strings.Contains(reply, "not on the blacklist") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestBlacklist_ListEntries(t *testing.T) {
	g, _ := newTestGate("<@U2>", "<@U1>")
	reply := blacklist(g)
	if !strings.Contains(reply, "<@U1>\n<@U2>") {
		t.Fatalf("expected sorted listing, got %q", reply)
	}
}

func TestBlacklist_UnknownActionIsUsage(t *testing.T) {
	g, audit := newTestGate()
	for _, args := range [][]string{{"ban", "<@U1>"}, {"add"}} {
		if reply := blacklist(g, args...); !strings.HasPrefix(reply, "Usage:") {
			t.Fatalf("args %v: expected usage, got %q", args, reply)
		}
	}
	if len(g.Blacklist().List()) != 0 || len(audit.entries) != 0 {
		t.Fatal("usage errors must not mutate anything")
	}
}

func TestBlacklist_UnresolvableUser(t *testing.T) {
	g, audit := newTestGate()
	reply := blacklist(g, "add", "@nobody")
	if reply != "The user @nobody is not a valid user." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(g.Blacklist().List()) != 0 || len(audit.entries) != 0 {
		t.Fatal("unresolvable user must not mutate anything")
	}
}

func TestBlacklist_MutationsAreAudited(t *testing.T) {
	g, audit := newTestGate()
	blacklist(g, "add", "<@U1>")
	blacklist(g, "add", "<@U1>")
	blacklist(g, "del", "<@U1>")

	if len(audit.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(audit.entries))
	}
	if audit.entries[0].Action != "blacklist_add" || audit.entries[1].Action != "blacklist_del" {
		t.Fatalf("unexpected actions: %+v", audit.entries)
	}
	if audit.entries[0].Details != "<@U1>" || audit.entries[0].User != "<@ADMIN>" {
		t.Fatalf("unexpected entry: %+v", audit.entries[0])
	}
}

func TestNewBlacklist_DeduplicatesSeed(t *testing.T) {
	b := NewBlacklist([]string{"<@U1>", " <@U1> ", "", "<@U2>"})
	if got := b.List(); !slices.Equal(got, []string{"<@U1>", "<@U2>"}) {
		t.Fatalf("unexpected seed result: %v", got)
	}
}
