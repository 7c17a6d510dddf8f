package ws

import (
	"encoding/json"
	"log"
	nethttp "net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxMessageSize = 1 << 20 // 1MB

// Dispatcher is the inbound half of the core: connection lifecycle plus
// named events decoded off the wire.
type Dispatcher interface {
	HandleConnect(sessionID string)
	HandleDisconnect(sessionID string)
	HandleEvent(sessionID, event string, data json.RawMessage)
}

type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades HTTP requests, assigns each connection its session id,
// and pumps decoded events into the dispatcher. Events from one connection
// are dispatched in arrival order because a single goroutine reads them.
type Handler struct {
	hub        *Hub
	dispatcher Dispatcher
	logger     *log.Logger
	upgrader   websocket.Upgrader
}

func NewHandler(hub *Hub, dispatcher Dispatcher, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		upgrader:   upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	wsConn.SetReadLimit(maxMessageSize)

	h.hub.add(&session{id: sessionID, conn: wsConn})
	h.dispatcher.HandleConnect(sessionID)

	for {
		_, payload, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Printf("read failed for %s: %v", sessionID, err)
			}
			break
		}

		var envelope Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", sessionID, err)
			continue
		}
		if envelope.Event == "" {
			h.logger.Printf("discarding message without event name from %s", sessionID)
			continue
		}

		h.dispatcher.HandleEvent(sessionID, envelope.Event, envelope.Data)
	}

	h.hub.remove(sessionID)
	h.dispatcher.HandleDisconnect(sessionID)
}
