package domain

import "time"

// MessageTypeMessage is the only inbound event type that is routed.
const MessageTypeMessage = "message"

type InboundMessage struct {
	Channel     string // transport name: slack | discord | telegram | cli
	Type        string
	ChatID      string
	ChatName    string // resolved channel name, empty when unresolvable
	SenderID    string
	Sender      string // mention-formatted identity, e.g. <@U123>
	SenderIsBot bool
	Content     string
	Timestamp   time.Time
}

type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}
