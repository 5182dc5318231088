package relay

import "sync"

// Sender pushes encoded frames to one client socket. Send must not block on
// a slow client.
type Sender interface {
	Send(data []byte) error
}

// Registry maps user ids to their live socket. At most one entry per user;
// a re-registration overwrites (last write wins) and the previous handle is
// not closed here; it stays orphaned until its own socket closes. The
// registry is an explicitly owned object handed to every connection handler,
// never a process-wide global.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Sender
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Sender)}
}

// Register inserts or overwrites the entry for userID and returns the
// previous handle, if any.
func (r *Registry) Register(userID string, s Sender) Sender {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = s
	return prev
}

// Unregister removes the entry for userID only if it still belongs to s,
// so a superseded socket closing does not evict its replacement. Idempotent.
func (r *Registry) Unregister(userID string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[userID] == s {
		delete(r.conns, userID)
	}
}

// Lookup returns the live handle for userID, used to decide live delivery
// versus persistence-only fallback.
func (r *Registry) Lookup(userID string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.conns[userID]
	return s, ok
}

// All returns a snapshot of every registered handle.
func (r *Registry) All() []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Sender, 0, len(r.conns))
	for _, s := range r.conns {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
