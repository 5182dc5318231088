package relay

import (
	"context"
	"encoding/base64"

	"github.com/google/uuid"
	"github.com/mfreitas/voxprep/internal/bus"
	"go.uber.org/zap"
)

// Session is the protocol state machine for one client socket:
// Unauthenticated -> Authenticated -> Closed. It runs entirely on the
// connection's read goroutine; only Close may race with it.
type Session struct {
	ID string

	hub    *Hub
	conn   Sender
	logger *zap.Logger

	// ctx spans the session's lifetime; Close cancels it, tearing down any
	// in-flight speech synthesis.
	ctx    context.Context
	cancel context.CancelFunc

	state  State
	userID string
}

// NewSession creates a session for a freshly accepted socket.
func NewSession(hub *Hub, conn Sender) *Session {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:     id,
		hub:    hub,
		conn:   conn,
		logger: hub.logger.With(zap.String("conn", id)),
		ctx:    ctx,
		cancel: cancel,
		state:  Unauthenticated,
	}
}

// State returns the current protocol state.
func (s *Session) State() State { return s.state }

// UserID returns the authenticated user id, empty before auth.
func (s *Session) UserID() string { return s.userID }

// HandleRaw processes one inbound wire frame. Malformed frames and frames
// invalid for the current state are dropped silently; no error frame is
// ever sent back.
func (s *Session) HandleRaw(data []byte) {
	s.hub.metrics.FramesReceived.Inc()

	frame, err := ParseFrame(data)
	if err != nil {
		s.hub.metrics.FramesDropped.Inc()
		s.logger.Debug("dropping malformed frame", zap.Error(err))
		return
	}

	switch {
	case frame.Type == TypeAuth && s.state == Unauthenticated:
		s.handleAuth(frame)
	case frame.Type == TypeChat && s.state == Authenticated:
		// Sender identity comes from the session, never from the frame.
		s.hub.relayChat(s.userID, frame.ReceiverID, frame.Content)
	case frame.Type == TypeAudio && s.state == Authenticated:
		s.handleAudio(frame)
	case frame.Type == TypeSpeak && s.state == Authenticated:
		s.handleSpeak(frame)
	default:
		s.hub.metrics.FramesDropped.Inc()
		s.logger.Debug("dropping frame", zap.String("type", frame.Type), zap.String("state", string(s.state)))
	}
}

func (s *Session) handleAuth(frame *Frame) {
	if frame.UserID == "" {
		s.hub.metrics.FramesDropped.Inc()
		return
	}
	if err := s.hub.authenticate(frame.UserID, frame.Name, frame.Role, s.conn); err != nil {
		// Store failure fails only this auth attempt; the socket stays open
		// and unauthenticated.
		s.logger.Error("auth failed", zap.String("user", frame.UserID), zap.Error(err))
		return
	}

	next, err := transition(s.state, Authenticated)
	if err != nil {
		s.logger.Error("state error", zap.Error(err))
		return
	}
	s.state = next
	s.userID = frame.UserID
	s.logger.Info("authenticated", zap.String("user", frame.UserID))
	s.hub.bus.Publish(bus.KindRelayAuthenticated, bus.PeerChange{UserID: frame.UserID, ConnID: s.ID})
}

func (s *Session) handleAudio(frame *Frame) {
	if frame.ReceiverID == "" || frame.Data == "" {
		s.hub.metrics.FramesDropped.Inc()
		return
	}
	// base64 payload is forwarded opaquely; validate it decodes at all so
	// junk does not reach the receiver's playback path.
	if _, err := base64.StdEncoding.DecodeString(frame.Data); err != nil {
		s.hub.metrics.FramesDropped.Inc()
		s.logger.Debug("dropping undecodable audio frame", zap.Error(err))
		return
	}
	s.hub.relayAudio(s.userID, frame.ReceiverID, frame.Data)
}

// handleSpeak asks the speech collaborator to synthesize frame.Content and
// streams the resulting 24 kHz chunks back to this connection as audio
// frames. Failure yields nothing; the connection is unaffected.
func (s *Session) handleSpeak(frame *Frame) {
	if s.hub.speech == nil || frame.Content == "" {
		s.hub.metrics.FramesDropped.Inc()
		return
	}
	s.hub.metrics.SpeechRequests.Inc()

	conn := s.conn
	logger := s.logger
	go func() {
		// Cancelling on any exit path releases the stream goroutine and the
		// response body; session close cancels through the parent.
		ctx, cancel := context.WithCancel(s.ctx)
		defer cancel()

		chunks, err := s.hub.speech.Synthesize(ctx, frame.Content)
		if err != nil {
			s.hub.metrics.SpeechFailures.Inc()
			logger.Warn("speech synthesis failed", zap.Error(err))
			return
		}
		for chunk := range chunks {
			out := Frame{Type: TypeAudio, Data: base64.StdEncoding.EncodeToString(chunk)}
			data, err := out.Encode()
			if err != nil {
				logger.Error("audio frame encode failed", zap.Error(err))
				return
			}
			if err := conn.Send(data); err != nil {
				// Socket gone mid-stream: stop pushing.
				return
			}
		}
	}()
}

// Close moves the session to its terminal state, unregisters the socket and
// re-broadcasts presence. Idempotent; triggered by socket close.
func (s *Session) Close() {
	if s.state == Closed {
		return
	}
	wasAuthenticated := s.state == Authenticated
	s.state = Closed
	s.cancel()

	if wasAuthenticated {
		s.hub.drop(s.userID, s.conn)
		s.hub.bus.Publish(bus.KindRelayClosed, bus.PeerChange{UserID: s.userID, ConnID: s.ID})
		s.logger.Info("session closed", zap.String("user", s.userID))
	}
}
