// Package presence tracks user liveness on top of the durable store.
//
// Two windows apply: a user is "online" while seen within OnlineWindow, and
// stays in the directory while seen within KnownWindow. Directory visibility
// intentionally outlives live-presence visibility.
package presence

import (
	"time"

	"github.com/mfreitas/voxprep/internal/store"
)

const (
	// OnlineWindow is how long after the last activity a user counts as online.
	OnlineWindow = 60 * time.Second
	// KnownWindow is how long a user remains listed in the directory.
	KnownWindow = 300 * time.Second
)

// Store records and queries user liveness. The clock is injected so tests
// can simulate the passage of time.
type Store struct {
	db  *store.DB
	now func() time.Time
}

// New creates a presence store over db. A nil clock uses time.Now.
func New(db *store.DB, clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{db: db, now: clock}
}

// Upsert records a user sighting with identity fields, stamping last seen.
// Called on explicit join and on every successful auth.
func (s *Store) Upsert(id, name, role string) error {
	return s.db.UpsertUser(id, name, role, s.now().UnixMilli())
}

// Touch refreshes only the last-seen stamp of an already known user.
func (s *Store) Touch(id string) error {
	return s.db.TouchUser(id, s.now().UnixMilli())
}

// ListActive returns all users seen within the given window, most recent
// first. Callers filter themselves out.
func (s *Store) ListActive(window time.Duration) ([]store.User, error) {
	cutoff := s.now().Add(-window).UnixMilli()
	return s.db.ListUsersSince(cutoff)
}
