package relay

import "encoding/json"

// Frame is the single JSON envelope for every message on a client socket.
// Type selects which fields are meaningful. Anything that fails to parse, or
// carries an unknown type, is dropped silently and the connection stays open.
type Frame struct {
	Type string `json:"type"`

	// auth
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`

	// chat / audio
	SenderID   string `json:"senderId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	Content    string `json:"content,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty"`

	// audio payload: base64 mono PCM16 LE
	Data string `json:"data,omitempty"`

	// presence snapshot
	Users []PresenceEntry `json:"users,omitempty"`
}

// Frame types understood by the relay.
const (
	TypeAuth     = "auth"
	TypeChat     = "chat"
	TypeAudio    = "audio"
	TypeSpeak    = "speak"
	TypePresence = "presence"
)

// PresenceEntry is one user in a presence snapshot.
type PresenceEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	LastSeen int64  `json:"lastSeen"`
}

// ParseFrame decodes one wire frame.
func ParseFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Encode marshals the frame for the wire.
func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}
