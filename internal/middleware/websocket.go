package middleware

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hostwatch/internal/ws"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1024

	// CloseUnauthorized is sent when the token query parameter is missing or invalid.
	CloseUnauthorized = 4001
)

type clientFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Hub upgrades streaming connections and binds them to the subscription registry.
type Hub struct {
	registry   *ws.Registry
	auth       *AuthService
	logger     Logger
	upgrader   websocket.Upgrader
	pingPeriod time.Duration
	pongWait   time.Duration
}

func NewHub(registry *ws.Registry, auth *AuthService, logger Logger, origins []string) *Hub {
	allowAny := len(origins) == 0 || slices.Contains(origins, "*")
	return &Hub{
		registry: registry,
		auth:     auth,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAny || origin == "" || slices.Contains(origins, origin)
			},
		},
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
	}
}

// GetClientCount returns the number of registered connections.
func (h *Hub) GetClientCount() int {
	return h.registry.Count()
}

// connSender serialises writes to one socket.
type connSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *connSender) Send(msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(msg)
}

func (s *connSender) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, authErr := h.auth.Resolve(c.Query("token"))

		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warnf("WebSocket upgrade error: %v", err)
			return
		}

		if authErr != nil {
			h.logger.Debugf("WebSocket rejected: %v", authErr)
			msg := websocket.FormatCloseMessage(CloseUnauthorized, "Unauthorized")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
			return
		}

		sender := &connSender{conn: conn}
		id := h.registry.Connect(sender, identity.UserID)
		h.logger.Infof("WebSocket client connected: user=%s", identity.Username)

		done := make(chan struct{})
		defer func() {
			close(done)
			h.registry.Disconnect(id)
			conn.Close()
			h.logger.Infof("WebSocket client disconnected: user=%s", identity.Username)
		}()

		go h.keepAlive(sender, done)

		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(h.pongWait))
		})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					h.logger.Warnf("WebSocket error: %v", err)
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
			h.handleFrame(id, data)
		}
	}
}

func (h *Hub) keepAlive(sender *connSender, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := sender.ping(); err != nil {
				h.logger.Debugf("WebSocket ping error: %v", err)
				return
			}
		}
	}
}

// handleFrame applies one client action. Malformed frames, unknown actions and
// unknown topics get no reply.
func (h *Hub) handleFrame(id ws.ConnID, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}
	switch frame.Action {
	case "subscribe":
		if ws.IsKnownTopic(frame.Topic) && h.registry.Subscribe(id, frame.Topic) {
			h.registry.SendTo(id, ws.Reply{Type: "subscribed", Topic: frame.Topic})
		}
	case "unsubscribe":
		if ws.IsKnownTopic(frame.Topic) && h.registry.Unsubscribe(id, frame.Topic) {
			h.registry.SendTo(id, ws.Reply{Type: "unsubscribed", Topic: frame.Topic})
		}
	case "ping":
		h.registry.SendTo(id, ws.Reply{Type: "pong"})
	}
}
