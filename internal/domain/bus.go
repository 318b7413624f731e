package domain

// OutboundHandler delivers a message on one transport. Returning
// ErrNotConnected makes the bus fall back to the console sink.
type OutboundHandler func(OutboundMessage) error

// MessageBus routes messages between transports and the jukebox.
type MessageBus interface {
	Publish(msg InboundMessage)
	Subscribe() <-chan InboundMessage
	SendOutbound(msg OutboundMessage)
	OnOutbound(channelName string, handler OutboundHandler)
	Close()
}
