package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 75 * time.Second
	pingPeriod     = 30 * time.Second
	maxFrameBytes  = 1 << 20 // generous: one audio frame is ~11 KB base64
	sendBufferSize = 256
)

// Conn wraps a websocket and coordinates outbound writes via a buffered
// channel, so any goroutine can Send without blocking on the peer.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	stop chan struct{}
	once sync.Once
}

// NewConn wraps an upgraded websocket. The write pump starts immediately.
func NewConn(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		stop: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Send enqueues data for delivery. If the client is too slow and the buffer
// fills, the connection is closed to keep backpressure bounded.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.stop:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.Close()
		return errors.New("send buffer full")
	}
}

// Close terminates the connection and stops the write pump. Safe to call
// from any goroutine, any number of times.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.stop)
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS runs the read loop for one upgraded socket: each text frame goes
// through the session state machine, and the socket close (clean or not)
// tears the session down exactly once.
func ServeWS(hub *Hub, ws *websocket.Conn) {
	hub.metrics.ConnectionsOpened.Inc()
	hub.metrics.ConnectionsActive.Inc()
	defer func() {
		hub.metrics.ConnectionsClosed.Inc()
		hub.metrics.ConnectionsActive.Dec()
	}()

	conn := NewConn(ws)
	session := NewSession(hub, conn)
	defer session.Close()
	defer conn.Close()

	ws.SetReadLimit(maxFrameBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				hub.logger.Debug("socket read ended", zap.String("conn", session.ID), zap.Error(err))
			}
			return
		}
		session.HandleRaw(data)
	}
}
