// Package client implements one interview session against a relay: a
// websocket connection plus the local capture and playback pipelines. The
// two pipelines run independently and share state only through the wire.
package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mfreitas/voxprep/internal/bus"
	"github.com/mfreitas/voxprep/internal/capture"
	"github.com/mfreitas/voxprep/internal/playback"
	"github.com/mfreitas/voxprep/internal/relay"
	"go.uber.org/zap"
)

// Options configure a session.
type Options struct {
	ServerURL string // ws://host:port/ws
	UserID    string
	Name      string
	Role      string
}

// Client is a connected, authenticated relay session.
type Client struct {
	opts      Options
	ws        *websocket.Conn
	writeMu   sync.Mutex
	bus       *bus.Bus
	scheduler *playback.Scheduler
	logger    *zap.Logger
}

// Dial connects to the relay and authenticates. Inbound audio is handed to
// scheduler; chat and presence surface as bus events.
func Dial(ctx context.Context, opts Options, scheduler *playback.Scheduler, b *bus.Bus, logger *zap.Logger) (*Client, error) {
	if opts.UserID == "" {
		return nil, fmt.Errorf("client: user id is required")
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, opts.ServerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", opts.ServerURL, err)
	}

	c := &Client{
		opts:      opts,
		ws:        ws,
		bus:       b,
		scheduler: scheduler,
		logger:    logger,
	}

	auth := relay.Frame{Type: relay.TypeAuth, UserID: opts.UserID, Name: opts.Name, Role: opts.Role}
	if err := c.writeFrame(&auth); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("client: auth: %w", err)
	}
	return c, nil
}

// Run reads frames until the socket closes or ctx is cancelled. It is the
// only reader of the socket.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.ws.Close()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: read: %w", err)
		}

		frame, err := relay.ParseFrame(data)
		if err != nil {
			c.logger.Debug("dropping malformed server frame", zap.Error(err))
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame *relay.Frame) {
	switch frame.Type {
	case relay.TypeChat:
		c.bus.Publish(bus.KindChatReceived, bus.ChatReceived{
			SenderID:  frame.SenderID,
			Content:   frame.Content,
			Timestamp: frame.Timestamp,
		})
	case relay.TypePresence:
		c.bus.Publish(bus.KindRelayPresence, frame.Users)
	case relay.TypeAudio:
		chunk, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			c.logger.Debug("dropping undecodable audio frame", zap.Error(err))
			return
		}
		if err := c.scheduler.PlayChunk(chunk); err != nil {
			// Skipped chunk; the timeline carries on without it.
			return
		}
		c.bus.Publish(bus.KindAudioChunk, bus.AudioChunk{SenderID: frame.SenderID, Data: chunk})
	default:
		c.logger.Debug("dropping server frame", zap.String("type", frame.Type))
	}
}

// SendChat relays one message to receiverID.
func (c *Client) SendChat(receiverID, content string) error {
	return c.writeFrame(&relay.Frame{
		Type:       relay.TypeChat,
		SenderID:   c.opts.UserID,
		ReceiverID: receiverID,
		Content:    content,
	})
}

// Speak asks the relay's speech collaborator to synthesize text; the audio
// comes back on this same socket as audio frames.
func (c *Client) Speak(text string) error {
	return c.writeFrame(&relay.Frame{Type: relay.TypeSpeak, Content: text})
}

// StreamCapture forwards every chunk from the capture stream to receiverID
// until the stream ends or ctx is cancelled.
func (c *Client) StreamCapture(ctx context.Context, stream *capture.Stream, receiverID string) error {
	for {
		select {
		case chunk, ok := <-stream.Chunks():
			if !ok {
				return nil
			}
			frame := relay.Frame{
				Type:       relay.TypeAudio,
				ReceiverID: receiverID,
				Data:       base64.StdEncoding.EncodeToString(chunk),
			}
			if err := c.writeFrame(&frame); err != nil {
				return fmt.Errorf("client: send audio: %w", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Interrupt stops local playback immediately and resets its timeline.
func (c *Client) Interrupt() {
	c.scheduler.Stop()
}

// Close interrupts playback and closes the socket.
func (c *Client) Close() {
	c.scheduler.Stop()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.ws.Close()
}

func (c *Client) writeFrame(frame *relay.Frame) error {
	data, err := frame.Encode()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
