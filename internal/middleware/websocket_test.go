package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hostwatch/internal/utils"
	"hostwatch/internal/ws"
)

type wsFixture struct {
	server   *httptest.Server
	registry *ws.Registry
	auth     *AuthService
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := utils.NewLogger("")
	logger.SetLevel(utils.LevelError)
	registry := ws.NewRegistry(logger)
	auth := NewAuthService("ws-secret", time.Hour)
	hub := NewHub(registry, auth, logger, []string{"*"})

	r := gin.New()
	r.GET("/ws", hub.HandleWebSocket())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &wsFixture{server: srv, registry: registry, auth: auth}
}

func (f *wsFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *wsFixture) token(t *testing.T, user string) string {
	t.Helper()
	token, err := f.auth.GenerateToken(user, user, nil)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketRejectsMissingOrBadToken(t *testing.T) {
	f := newWSFixture(t)
	for _, token := range []string{"", "not-a-jwt"} {
		conn := f.dial(t, token)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := conn.ReadMessage()
		if !websocket.IsCloseError(err, CloseUnauthorized) {
			t.Fatalf("token %q: expected close code %d, got %v", token, CloseUnauthorized, err)
		}
	}
	if f.registry.Count() != 0 {
		t.Fatalf("rejected connections must not be registered")
	}
}

func TestWebSocketSubscribeAndReceive(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.token(t, "alice"))
	waitFor(t, func() bool { return f.registry.Count() == 1 })

	if err := conn.WriteJSON(map[string]string{"action": "subscribe", "topic": ws.TopicMetricsHost}); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply := readJSON(t, conn)
	if reply["type"] != "subscribed" || reply["topic"] != ws.TopicMetricsHost {
		t.Fatalf("unexpected reply: %v", reply)
	}

	f.registry.BroadcastToTopic(ws.TopicMetricsHost, ws.Message{Topic: ws.TopicMetricsHost, Data: map[string]int{"cpu_percent": 12}})
	push := readJSON(t, conn)
	if push["topic"] != ws.TopicMetricsHost {
		t.Fatalf("unexpected push: %v", push)
	}

	if err := conn.WriteJSON(map[string]string{"action": "unsubscribe", "topic": ws.TopicMetricsHost}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if reply := readJSON(t, conn); reply["type"] != "unsubscribed" {
		t.Fatalf("unexpected reply: %v", reply)
	}
	if f.registry.HasSubscribers(ws.TopicMetricsHost) {
		t.Fatalf("unsubscribe did not reach the registry")
	}
}

func TestWebSocketIgnoresUnknownFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.token(t, "bob"))

	_ = conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	_ = conn.WriteJSON(map[string]string{"action": "subscribe", "topic": "metrics.gpu"})
	_ = conn.WriteJSON(map[string]string{"action": "dance"})
	_ = conn.WriteJSON(map[string]string{"action": "ping"})

	if reply := readJSON(t, conn); reply["type"] != "pong" {
		t.Fatalf("expected only a pong reply, got %v", reply)
	}
	if f.registry.HasSubscribers("metrics.gpu") {
		t.Fatalf("unknown topic must not be subscribed")
	}
}

func TestWebSocketDisconnectCleansRegistry(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.token(t, "carol"))
	_ = conn.WriteJSON(map[string]string{"action": "subscribe", "topic": ws.TopicFSEvents})
	readJSON(t, conn)

	conn.Close()
	waitFor(t, func() bool { return f.registry.Count() == 0 })
	if f.registry.HasSubscribers(ws.TopicFSEvents) {
		t.Fatalf("closed connection still subscribed")
	}
}
