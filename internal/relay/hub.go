package relay

import (
	"sync"
	"time"

	"github.com/mfreitas/voxprep/internal/bus"
	"github.com/mfreitas/voxprep/internal/metrics"
	"github.com/mfreitas/voxprep/internal/presence"
	"github.com/mfreitas/voxprep/internal/speech"
	"github.com/mfreitas/voxprep/internal/store"
	"go.uber.org/zap"
)

// Hub owns the state shared across all connection handlers: the connection
// registry, the presence store, and the durable message log. Registry and
// presence mutation, together with the read-then-fan-out of a presence
// broadcast, are serialized under one mutex so concurrent auth/close events
// cannot lose updates. The broadcast's durable read runs on the calling
// connection's goroutine and fan-out is a non-blocking enqueue per socket,
// so it never stalls other connections' ongoing sends.
type Hub struct {
	mu sync.Mutex

	registry *Registry
	presence *presence.Store
	db       *store.DB
	speech   *speech.Client // nil when the collaborator is not configured
	metrics  *metrics.Metrics
	bus      *bus.Bus
	logger   *zap.Logger
	now      func() time.Time
}

// NewHub creates a hub. A nil clock uses time.Now; speech may be nil.
func NewHub(registry *Registry, pres *presence.Store, db *store.DB, sp *speech.Client,
	m *metrics.Metrics, b *bus.Bus, logger *zap.Logger, clock func() time.Time) *Hub {
	if clock == nil {
		clock = time.Now
	}
	return &Hub{
		registry: registry,
		presence: pres,
		db:       db,
		speech:   sp,
		metrics:  m,
		bus:      b,
		logger:   logger,
		now:      clock,
	}
}

// Registry exposes the connection registry (for the HTTP surface).
func (h *Hub) Registry() *Registry { return h.registry }

// authenticate records the user and registers the socket, then broadcasts a
// fresh presence snapshot to every authenticated connection.
func (h *Hub) authenticate(userID, name, role string, s Sender) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.presence.Upsert(userID, name, role); err != nil {
		return err
	}
	if prev := h.registry.Register(userID, s); prev != nil {
		// Last write wins: the prior socket stays open but orphaned.
		h.metrics.ConnectionsReplaced.Inc()
		h.logger.Warn("user re-authenticated, previous socket orphaned", zap.String("user", userID))
	}
	h.broadcastPresenceLocked()
	return nil
}

// drop removes the socket and re-broadcasts presence. Called on close.
func (h *Hub) drop(userID string, s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry.Unregister(userID, s)
	h.broadcastPresenceLocked()
}

// broadcastPresenceLocked snapshots the online directory and fans it out.
// Callers hold h.mu.
func (h *Hub) broadcastPresenceLocked() {
	users, err := h.presence.ListActive(presence.OnlineWindow)
	if err != nil {
		h.logger.Error("presence snapshot failed", zap.Error(err))
		return
	}

	entries := make([]PresenceEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, PresenceEntry{ID: u.ID, Name: u.Name, Role: u.Role, LastSeen: u.LastSeen})
	}
	frame := Frame{Type: TypePresence, Users: entries}
	data, err := frame.Encode()
	if err != nil {
		h.logger.Error("presence encode failed", zap.Error(err))
		return
	}

	for _, s := range h.registry.All() {
		if err := s.Send(data); err != nil {
			// Delivery is best effort; the socket's own close path cleans up.
			h.logger.Debug("presence send failed", zap.Error(err))
		}
	}
	h.metrics.PresenceBroadcasts.Inc()
	h.bus.Publish(bus.KindRelayPresence, entries)
}

// relayChat appends the message to the durable log, then attempts at-most-
// once live delivery. Returns the stored timestamp.
func (h *Hub) relayChat(senderID, receiverID, content string) {
	// Activity renews the sender's presence window.
	if err := h.presence.Touch(senderID); err != nil {
		h.logger.Debug("presence touch failed", zap.Error(err))
	}

	ts := h.now().UnixMilli()
	if _, err := h.db.AppendMessage(senderID, receiverID, content, ts); err != nil {
		// This request fails alone; the relay and the connection survive.
		h.logger.Error("message append failed", zap.Error(err),
			zap.String("sender", senderID), zap.String("receiver", receiverID))
		return
	}
	h.metrics.MessagesPersisted.Inc()

	target, ok := h.registry.Lookup(receiverID)
	if !ok {
		// Receiver offline: discoverable later via history lookup.
		h.metrics.MessagesOffline.Inc()
		return
	}

	frame := Frame{Type: TypeChat, SenderID: senderID, Content: content, Timestamp: ts}
	data, err := frame.Encode()
	if err != nil {
		h.logger.Error("chat encode failed", zap.Error(err))
		return
	}
	if err := target.Send(data); err != nil {
		// No buffering, no retry.
		h.logger.Debug("chat delivery failed", zap.String("receiver", receiverID), zap.Error(err))
		return
	}
	h.metrics.MessagesDelivered.Inc()
}

// relayAudio forwards one capture chunk to the receiver, if live. Audio is
// never persisted.
func (h *Hub) relayAudio(senderID, receiverID, data string) {
	target, ok := h.registry.Lookup(receiverID)
	if !ok {
		return
	}
	frame := Frame{Type: TypeAudio, SenderID: senderID, Data: data}
	out, err := frame.Encode()
	if err != nil {
		h.logger.Error("audio encode failed", zap.Error(err))
		return
	}
	if err := target.Send(out); err != nil {
		return
	}
	h.metrics.AudioFramesRelayed.Inc()
}
