package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the relay and the client session. Subscribers
// filter by namespace prefix ("relay.", "chat.", "audio.").
const (
	KindRelayAuthenticated = "relay.authenticated"
	KindRelayClosed        = "relay.closed"
	KindRelayPresence      = "relay.presence"
	KindChatReceived       = "chat.received"
	KindAudioChunk         = "audio.chunk"
)

// ChatReceived is the payload for chat.received events.
type ChatReceived struct {
	SenderID  string
	Content   string
	Timestamp int64
}

// AudioChunk is the payload for audio.chunk events: one encoded PCM16 chunk
// from a remote sender, in arrival order.
type AudioChunk struct {
	SenderID string
	Data     []byte
}

// PeerChange is the payload for relay.authenticated and relay.closed events.
type PeerChange struct {
	UserID string
	ConnID string
}
