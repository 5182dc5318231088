package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mfreitas/voxprep/internal/bus"
	"github.com/mfreitas/voxprep/internal/metrics"
	"github.com/mfreitas/voxprep/internal/presence"
	"github.com/mfreitas/voxprep/internal/relay"
	"github.com/mfreitas/voxprep/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func testServer(t *testing.T) (*httptest.Server, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "voxprep.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	pres := presence.New(db, nil)
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	hub := relay.NewHub(relay.NewRegistry(), pres, db, nil, m, bus.New(), logger, nil)

	srv := NewServer("127.0.0.1:0", logger, hub, pres, db, promReg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, db
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, frame relay.Frame) {
	t.Helper()
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatal(err)
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) relay.Frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var f relay.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestAuthAndPresenceOverWebsocket(t *testing.T) {
	ts, _ := testServer(t)

	ws := dial(t, ts)
	send(t, ws, relay.Frame{Type: relay.TypeAuth, UserID: "alice", Name: "Alice", Role: "candidate"})

	f := readFrame(t, ws)
	if f.Type != relay.TypePresence {
		t.Fatalf("first frame type = %q, want presence", f.Type)
	}
	if len(f.Users) != 1 || f.Users[0].ID != "alice" {
		t.Errorf("snapshot users = %v, want [alice]", f.Users)
	}
}

func TestChatBetweenTwoClients(t *testing.T) {
	ts, db := testServer(t)

	wsA := dial(t, ts)
	send(t, wsA, relay.Frame{Type: relay.TypeAuth, UserID: "alice"})
	_ = readFrame(t, wsA) // own presence snapshot

	wsB := dial(t, ts)
	send(t, wsB, relay.Frame{Type: relay.TypeAuth, UserID: "bob"})
	_ = readFrame(t, wsB) // presence
	_ = readFrame(t, wsA) // updated presence after bob joined

	send(t, wsA, relay.Frame{Type: relay.TypeChat, SenderID: "alice", ReceiverID: "bob", Content: "hello"})

	f := readFrame(t, wsB)
	if f.Type != relay.TypeChat || f.SenderID != "alice" || f.Content != "hello" {
		t.Fatalf("bob got %+v", f)
	}

	// Message is durable regardless of delivery.
	deadline := time.Now().Add(2 * time.Second)
	for {
		msgs, err := db.ListMessagesBetween("alice", "bob")
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message not persisted, have %d", len(msgs))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	ts, db := testServer(t)

	if _, err := db.AppendMessage("alice", "bob", "from history", 100); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AppendMessage("bob", "alice", "reply", 200); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(ts.URL + "/api/history?a=alice&b=bob")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Messages []store.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(body.Messages))
	}
	if body.Messages[0].Timestamp > body.Messages[1].Timestamp {
		t.Error("history not ascending by timestamp")
	}
}

func TestHistoryEndpointRequiresBothUsers(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/history?a=alice")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	ts, _ := testServer(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestPresenceEndpointRejectsBadWindow(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/presence?window=banana")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
