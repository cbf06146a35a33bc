package live

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func startHub(t *testing.T, h *Hub) (*httptest.Server, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, cancel
}

func TestHubSendsGreetingAndInitialState(t *testing.T) {
	h := NewHub(func() (Message, bool) {
		return Message{Type: TypeFixtures, Version: 4, Data: []int{1, 2}}, true
	}, nil, nil)
	srv, _ := startHub(t, h)

	conn := dial(t, srv)
	defer conn.Close()

	if msg := readMessage(t, conn); msg.Type != TypeConnected || msg.Timestamp == 0 {
		t.Fatalf("expected greeting, got %+v", msg)
	}
	if msg := readMessage(t, conn); msg.Type != TypeFixtures || msg.Version != 4 {
		t.Fatalf("expected initial fixtures, got %+v", msg)
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	recorder := metrics.NewRecorder()
	h := NewHub(nil, nil, recorder)
	srv, _ := startHub(t, h)

	a, b := dial(t, srv), dial(t, srv)
	defer a.Close()
	defer b.Close()
	readMessage(t, a)
	readMessage(t, b)
	waitForClients(t, h, 2)

	h.Broadcast(Message{Type: TypeFixtures, Version: 7})
	for _, conn := range []*websocket.Conn{a, b} {
		if msg := readMessage(t, conn); msg.Version != 7 {
			t.Fatalf("expected version 7, got %+v", msg)
		}
	}
	if recorder.Broadcasts() != 1 {
		t.Fatalf("expected one broadcast recorded, got %d", recorder.Broadcasts())
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	h := NewHub(nil, nil, nil)
	srv, _ := startHub(t, h)

	conn := dial(t, srv)
	readMessage(t, conn)
	waitForClients(t, h, 1)

	_ = conn.Close()
	waitForClients(t, h, 0)

	// Broadcasting with nobody listening must not block.
	h.Broadcast(Message{Type: TypeFixtures})
}

func TestHubStopDisconnectsClients(t *testing.T) {
	h := NewHub(nil, nil, nil)
	srv, cancel := startHub(t, h)

	conn := dial(t, srv)
	defer conn.Close()
	readMessage(t, conn)
	waitForClients(t, h, 1)

	cancel()
	waitForClients(t, h, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to close")
	}

	// Dropped silently once stopped.
	h.Broadcast(Message{Type: TypeFixtures})
}

func TestHubRejectsPlainHTTP(t *testing.T) {
	h := NewHub(nil, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	if rec.Code < 400 {
		t.Fatalf("expected upgrade failure status, got %d", rec.Code)
	}
}
