package server

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Carolmelon/threejs-game-network/logging"
)

// Transport is the outbound half of the connection layer. Delivery is
// best-effort; retries, if any, belong to the transport itself.
type Transport interface {
	Unicast(sessionID, event string, payload any)
	Broadcast(event string, payload any, excludeSessionID string)
}

// recognizedActions is the set of one-shot actions the server fans out.
var recognizedActions = map[string]bool{
	"Jump":  true,
	"Yes":   true,
	"No":    true,
	"Wave":  true,
	"Punch": true,
	"Death": true,
}

// EventHandlers maps inbound transport events onto registry mutations and
// outbound sends. Every handler follows the same two-phase shape: mutate
// state first, emit second; no send happens before the mutation it reports.
type EventHandlers struct {
	registry  *SessionRegistry
	transport Transport
	loop      *TickLoop
	publisher logging.Publisher
	clock     func() time.Time
}

func NewEventHandlers(registry *SessionRegistry, transport Transport, loop *TickLoop, publisher logging.Publisher) *EventHandlers {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &EventHandlers{
		registry:  registry,
		transport: transport,
		loop:      loop,
		publisher: publisher,
		clock:     time.Now,
	}
}

// HandleConnect registers the session and tells the client its id. The
// session id doubles as the player id; it is the only correlation key
// between the transport and the game state.
func (h *EventHandlers) HandleConnect(sessionID string) {
	h.registry.RegisterConnection(sessionID)
	h.transport.Unicast(sessionID, EventClientIDAssigned, ClientIDAssigned{ClientID: sessionID})
}

// HandleDisconnect removes the session and notifies the others. When the
// last connection goes away the tick loop is stopped.
func (h *EventHandlers) HandleDisconnect(sessionID string) {
	removed, known := h.registry.Disconnect(sessionID)
	if known {
		// Excluding the leaver is defensive; its connection is already gone.
		h.transport.Broadcast(EventPlayerLeft, PlayerLeft{PlayerID: removed}, sessionID)
	}

	if h.registry.ConnectionCount() == 0 && h.loop.Running() {
		h.loop.Stop()
	}
}

// HandleClientReady creates (or refreshes) the player, announces it to the
// others, and hands the joiner the full current world. The first ready
// client starts the tick loop.
func (h *EventHandlers) HandleClientReady(sessionID string, payload ClientReadyPayload) {
	player := h.registry.CreateOrUpdatePlayer(sessionID, payload.Username)

	h.transport.Broadcast(EventPlayerJoined, PlayerJoinedMessage{Player: player}, sessionID)

	h.transport.Unicast(sessionID, EventInitialGameState, InitialGameState{
		Timestamp:     h.clock().UnixMilli(),
		Players:       h.registry.ListForBroadcast(),
		WorldSettings: WorldSettings{TerrainSize: terrainSize},
	})

	if !h.loop.Running() && h.registry.ConnectionCount() > 0 {
		h.loop.Start()
	}
}

// HandlePlayerInput patches the player state. No emission here; position
// changes ride the next tick broadcast.
func (h *EventHandlers) HandlePlayerInput(sessionID string, payload []byte) {
	h.registry.ApplyInput(sessionID, payload)
}

// HandlePlayerAction fans a recognized action out to every session, the
// actor's own included; clients de-duplicate against their local id.
func (h *EventHandlers) HandlePlayerAction(sessionID string, payload PlayerActionPayload) {
	_, ok := h.registry.GetPlayerState(sessionID)
	if !ok {
		h.warn("action.unknown_session", sessionID, payload.ActionName)
		return
	}

	if !recognizedActions[payload.ActionName] {
		h.warn("action.unrecognized", sessionID, payload.ActionName)
		return
	}

	// Jump wins over whatever animation the input stream last set.
	if payload.ActionName == "Jump" {
		h.registry.SetAnimation(sessionID, "Jump")
	}

	h.transport.Broadcast(EventActionBroadcast, ActionBroadcast{
		PlayerID:   sessionID,
		ActionName: payload.ActionName,
	}, "")
}

// HandleChatMessage relays chat to every other session; the sender echoes
// its own message locally.
func (h *EventHandlers) HandleChatMessage(sessionID string, payload ChatPayload) {
	player, ok := h.registry.GetPlayerState(sessionID)
	if !ok {
		h.warn("chat.unknown_session", sessionID, "")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		return
	}

	h.publisher.Publish(context.Background(), logging.Event{
		Type:     "chat.message",
		Session:  sessionID,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryChat,
		Payload:  payload.Message,
	})

	h.transport.Broadcast(EventChatMessage, ChatBroadcast{
		SenderID: sessionID,
		Username: player.Username,
		Message:  payload.Message,
	}, sessionID)
}

// HandleEvent decodes a named inbound event and routes it to the typed
// handler. Unknown events and undecodable payloads are absorbed with a
// warning; a late or garbled message must never take the server down.
func (h *EventHandlers) HandleEvent(sessionID, event string, data json.RawMessage) {
	switch event {
	case EventClientReady:
		var payload ClientReadyPayload
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				h.warn("event.malformed_payload", sessionID, event)
				return
			}
		}
		h.HandleClientReady(sessionID, payload)
	case EventPlayerInput:
		h.HandlePlayerInput(sessionID, data)
	case EventPlayerAction:
		var payload PlayerActionPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			h.warn("event.malformed_payload", sessionID, event)
			return
		}
		h.HandlePlayerAction(sessionID, payload)
	case EventChatMessage:
		var payload ChatPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			h.warn("event.malformed_payload", sessionID, event)
			return
		}
		h.HandleChatMessage(sessionID, payload)
	default:
		h.warn("event.unknown", sessionID, event)
	}
}

func (h *EventHandlers) warn(eventType logging.EventType, sessionID, detail string) {
	evt := logging.Event{
		Type:     eventType,
		Session:  sessionID,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryGameplay,
	}
	if detail != "" {
		evt.Payload = detail
	}
	h.publisher.Publish(context.Background(), evt)
}
