package store

// User is a directory entry. Upserted on join and on every successful auth;
// never deleted.
type User struct {
	ID       string
	Name     string
	Role     string
	LastSeen int64 // unix milliseconds
}

// Message is one entry of the append-only chat log. Immutable once created.
type Message struct {
	ID         int64
	SenderID   string
	ReceiverID string
	Content    string
	Timestamp  int64 // unix milliseconds
}
