package jukebox

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"jukebot/internal/domain"
)

func TestBannedUserGetsOneDenialAndNothingElse(t *testing.T) {
	h := newHarness(t, 2, "<@U1>")
	for _, text := range []string{"add x", "list", "stop", "blah"} {
		replies := h.say(text, true)
		if !slices.Equal(replies, []string{"Nice try <@U1>, you're banned :)"}) {
			t.Fatalf("%q: unexpected replies %v", text, replies)
		}
	}
	if calls := h.rec.list(); len(calls) != 0 {
		t.Fatalf("expected no device calls, got %v", calls)
	}
}

func TestBotsAreIgnored(t *testing.T) {
	h := newHarness(t, 1)
	var replies []string
	u := Utterance{Text: "help", Channel: ChannelIdentity{Name: "music"}, User: "<@B1>", UserIsBot: true, Transport: "slack"}
	h.jb.Handle(context.Background(), u, func(s string) { replies = append(replies, s) })
	if len(replies) != 0 {
		t.Fatalf("expected silence, got %v", replies)
	}
}

func TestHelp_AdminSectionOnlyInAdminChannel(t *testing.T) {
	h := newHarness(t, 1)

	public := h.say("help", false)
	admin := h.say("help", true)
	if len(public) != 1 || len(admin) != 1 {
		t.Fatalf("expected one message each, got %v / %v", public, admin)
	}
	if strings.Contains(public[0], "ADMIN FUNCTIONS") {
		t.Fatal("admin section leaked into the public channel")
	}
	if !strings.Contains(admin[0], "ADMIN FUNCTIONS") || !strings.HasPrefix(admin[0], public[0][:len(public[0])-len(helpRule)]) {
		t.Fatalf("admin help should extend the public help:\n%s", admin[0])
	}
	for _, verb := range []string{"`add`", "`search`", "`current`", "`list`", "`upnext`"} {
		if !strings.Contains(public[0], verb) {
			t.Fatalf("help is missing %s", verb)
		}
	}
}

func TestCurrent(t *testing.T) {
	h := newHarness(t, 2)
	h.devs[0].current = &domain.CurrentTrack{
		Title: "Around the World", Artist: "Daft Punk",
		Position: 65 * time.Second, Duration: 7*time.Minute + 9*time.Second,
	}

	replies := h.say("current", false)
	if !slices.Equal(replies, []string{"We're rocking out to *Daft Punk* - *Around the World* (01:05/07:09)"}) {
		t.Fatalf("unexpected replies: %v", replies)
	}
	for _, c := range h.rec.list() {
		if strings.HasPrefix(c, "b:") {
			t.Fatalf("reads must only hit the primary, got %v", h.rec.list())
		}
	}

	h.devs[0].current = nil
	if replies := h.say("current", false); !slices.Equal(replies, []string{"Nothing is playing right now."}) {
		t.Fatalf("unexpected replies: %v", replies)
	}
}

func TestSearch(t *testing.T) {
	h := newHarness(t, 1)
	h.searcher.tracks = []domain.TrackMetadata{
		{Artist: "A", Title: "One"}, {Artist: "B", Title: "Two"}, {Artist: "C", Title: "Three"}, {Artist: "D", Title: "Four"},
	}

	replies := h.say("search something", false)
	want := "<@U1>, I found the following track(s):\n```\nA - One\nB - Two\nC - Three\n```\nIf you want to play it, use the `add` command.."
	if !slices.Equal(replies, []string{want}) {
		t.Fatalf("got %q", replies)
	}
	if calls := h.rec.list(); len(calls) != 0 {
		t.Fatalf("search must not touch devices, got %v", calls)
	}
}

func TestUpNext_UsesZeroBasedCurrentIndex(t *testing.T) {
	h := newHarness(t, 1)
	h.devs[0].queue = snapshot(10)
	h.devs[0].current = &domain.CurrentTrack{Title: "Song 2", QueuePosition: 3}

	replies := h.say("upnext", false)
	if len(replies) != 1 || !strings.Contains(replies[0], ":notes: _#2_ Song 2 by Band") {
		t.Fatalf("unexpected replies: %v", replies)
	}
}

func TestList_QueueReadFailure(t *testing.T) {
	h := newHarness(t, 1)
	h.devs[0].errs["queue"] = errors.New("timeout")

	replies := h.say("list", false)
	if len(replies) != 1 || !strings.HasPrefix(replies[0], "Sorry") {
		t.Fatalf("unexpected replies: %v", replies)
	}
}

func TestList_CurrentReadFailureStillLists(t *testing.T) {
	h := newHarness(t, 1)
	h.devs[0].queue = snapshot(2)
	h.devs[0].errs["current"] = errors.New("timeout")

	replies := h.say("list", false)
	if len(replies) != 1 || itemLines(replies[0]) != 2 {
		t.Fatalf("unexpected replies: %v", replies)
	}
}

func TestUtteranceFromInbound(t *testing.T) {
	h := newHarness(t, 1)
	u := h.jb.Utterance(domain.InboundMessage{
		Channel:  "slack",
		Type:     domain.MessageTypeMessage,
		ChatID:   "C42",
		ChatName: "#Music-Admin",
		SenderID: "U1",
		Sender:   "<@U1>",
		Content:  "play",
	})
	if !u.Channel.Admin || u.User != "<@U1>" || u.Transport != "slack" || u.Channel.ID != "C42" {
		t.Fatalf("unexpected utterance: %+v", u)
	}

	boot := h.jb.AdminUtterance("list", BootstrapUser, "cli")
	if !boot.Channel.Admin || boot.Channel.Name != "music-admin" || boot.User != "cli test" {
		t.Fatalf("unexpected bootstrap utterance: %+v", boot)
	}
}
