package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 30 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 25 * time.Second

	// Maximum frame size; sync_tags frames carry whole source files
	maxMessageSize = 1 << 20

	sendBufferSize = 64
)

// Session is the per-connection record owned by the protocol layer:
// authenticated user, current subscription and the connection's one
// pending debounce timer. Constructed at handshake, destroyed at
// disconnect; nothing is bolted onto the transport object.
type Session struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte

	// mu guards debounce; projectID is guarded by the hub's lock
	mu        sync.Mutex
	debounce  *time.Timer
	projectID string
}

func newSession(hub *Hub, conn *websocket.Conn, userID string) *Session {
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// enqueue hands a message to the write pump without blocking the
// caller. A session that cannot drain its buffer loses messages rather
// than stalling a broadcast to its siblings.
func (s *Session) enqueue(message []byte) {
	select {
	case s.send <- message:
	default:
		s.hub.log.Warn("send buffer full, dropping message", "conn_id", s.id)
	}
}

// scheduleDebounce arms the session's single debounce timer, cancelling
// any pending one (last write wins per connection).
func (s *Session) scheduleDebounce(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(d, fn)
}

// cancelDebounce stops any pending timer
func (s *Session) cancelDebounce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
}

// shutdown is called by the hub on process shutdown
func (s *Session) shutdown() {
	s.cancelDebounce()
	if s.conn != nil {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		s.conn.Close()
	}
}

// readPump pumps frames from the connection into the engine. Runs as
// one goroutine per session; exit means the connection is gone, so it
// owns disconnect cleanup.
func (s *Session) readPump(e *Engine) {
	defer func() {
		s.cancelDebounce()
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.hub.log.Warn("websocket read error", "conn_id", s.id, "error", err)
			}
			return
		}
		e.HandleMessage(s, data)
	}
}

// writePump pumps messages from the send channel to the connection and
// keeps the peer alive with pings
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
