package jukebox

import (
	"fmt"
	"strings"
)

// ChannelIdentity names the chat room an utterance came from. Two identities
// are the same room when their names match.
type ChannelIdentity struct {
	ID    string
	Name  string
	Admin bool
}

// Utterance is one line of chat text with its origin.
type Utterance struct {
	Text      string
	Channel   ChannelIdentity
	User      string // mention-formatted, e.g. <@U123>
	UserIsBot bool
	Transport string
}

// Request is a routed command. Replies go back to the originating channel.
type Request struct {
	Utterance
	Verb string
	Args []string

	reply func(string)
}

// Reply sends text to the originating channel. Empty text is dropped.
func (r *Request) Reply(text string) {
	if strings.TrimSpace(text) == "" || r.reply == nil {
		return
	}
	r.reply(text)
}

func (r *Request) Replyf(format string, args ...any) {
	r.Reply(fmt.Sprintf(format, args...))
}
