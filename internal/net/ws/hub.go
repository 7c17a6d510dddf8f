package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	server "github.com/Carolmelon/threejs-game-network"
)

const writeWait = 10 * time.Second

// Envelope frames every websocket message: an event name and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub owns the live sessions and implements the core's Transport. Sends are
// best-effort: a failed write closes the connection and lets the reader
// goroutine run the normal disconnect path, so there is exactly one removal
// path per session.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*session

	logger    *log.Logger
	telemetry *server.TelemetryCounters
	clock     func() time.Time
}

func NewHub(logger *log.Logger, telemetry *server.TelemetryCounters) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		sessions:  make(map[string]*session),
		logger:    logger,
		telemetry: telemetry,
		clock:     time.Now,
	}
}

func (h *Hub) add(s *session) {
	h.mu.Lock()
	existing, ok := h.sessions[s.id]
	h.sessions[s.id] = s
	h.mu.Unlock()

	if ok {
		existing.close()
	}
}

func (h *Hub) remove(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	if ok {
		s.close()
	}
}

// SessionCount reports the number of live connections the hub is holding.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Unicast sends one event to one session. Unknown sessions are ignored; the
// message raced a disconnect.
func (h *Hub) Unicast(sessionID, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Printf("failed to encode %s for %s: %v", event, sessionID, err)
		return
	}

	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok {
		return
	}

	if err := s.write(data, h.clock().Add(writeWait)); err != nil {
		h.logger.Printf("failed to send %s to %s: %v", event, sessionID, err)
		s.close()
	}
}

// Broadcast fans one event out to every session except excludeSessionID
// (empty string excludes nobody). The payload is encoded once.
func (h *Hub) Broadcast(event string, payload any, excludeSessionID string) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Printf("failed to encode broadcast %s: %v", event, err)
		return
	}

	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id == excludeSessionID {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.Unlock()

	deadline := h.clock().Add(writeWait)
	for _, s := range targets {
		if err := s.write(data, deadline); err != nil {
			h.logger.Printf("failed to send %s to %s: %v", event, s.id, err)
			s.close()
		}
	}

	if h.telemetry != nil {
		h.telemetry.RecordBroadcast(len(data) * len(targets))
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
