package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// conn is the subset of *websocket.Conn the hub writes through; tests
// substitute a recorder.
type conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// session is one live connection. The mutex serializes writes; gorilla
// connections allow only one concurrent writer.
type session struct {
	id   string
	conn conn
	mu   sync.Mutex
}

func (s *session) write(data []byte, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(deadline)
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) close() {
	s.conn.Close()
}
