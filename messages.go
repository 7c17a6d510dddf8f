package server

// Event names shared with the client. The names and payload field names are
// the wire contract; the envelope framing lives in internal/net/ws.
const (
	EventClientIDAssigned = "client_id_assigned"
	EventClientReady      = "client_ready"
	EventPlayerJoined     = "player_joined"
	EventInitialGameState = "initial_game_state"
	EventPlayerInput      = "player_input"
	EventPlayerAction     = "player_action"
	EventActionBroadcast  = "action_broadcast"
	EventChatMessage      = "chat_message"
	EventGameState        = "game_state"
	EventPlayerLeft       = "player_left"
)

// ClientIDAssigned is unicast to a session right after it connects.
type ClientIDAssigned struct {
	ClientID string `json:"clientId"`
}

// ClientReadyPayload is the inbound payload announcing a client has loaded
// the world and wants a player.
type ClientReadyPayload struct {
	Username string `json:"username"`
}

// PlayerJoinedMessage tells existing sessions about a newcomer.
type PlayerJoinedMessage struct {
	Player Player `json:"player"`
}

// WorldSettings carries static world parameters the client needs once.
type WorldSettings struct {
	TerrainSize float64 `json:"terrainSize"`
}

// InitialGameState is unicast to a joining session only.
type InitialGameState struct {
	Timestamp     int64         `json:"timestamp"`
	Players       []Player      `json:"players"`
	WorldSettings WorldSettings `json:"world_settings"`
}

// PlayerActionPayload is the inbound payload for one-shot actions.
type PlayerActionPayload struct {
	ActionName string `json:"action_name"`
}

// ActionBroadcast fans an action out to every session, the actor's included;
// clients de-duplicate by comparing PlayerID against their own id.
type ActionBroadcast struct {
	PlayerID   string `json:"playerId"`
	ActionName string `json:"action_name"`
}

// ChatPayload is the inbound chat message.
type ChatPayload struct {
	Message string `json:"message"`
}

// ChatBroadcast is fanned out to every session except the sender.
type ChatBroadcast struct {
	SenderID string `json:"sender_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// GameStateMessage is the fixed-rate world snapshot.
type GameStateMessage struct {
	Timestamp   int64    `json:"timestamp"`
	Players     []Player `json:"players"`
	WorldEvents []any    `json:"world_events"`
}

// PlayerLeft tells remaining sessions a player is gone.
type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}
