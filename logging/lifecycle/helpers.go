package lifecycle

import (
	"context"

	"github.com/Carolmelon/threejs-game-network/logging"
)

const (
	// EventSessionConnected is emitted when the transport registers a session.
	EventSessionConnected logging.EventType = "lifecycle.session_connected"
	// EventSessionDisconnected is emitted when a known session goes away.
	EventSessionDisconnected logging.EventType = "lifecycle.session_disconnected"
	// EventPlayerSpawned is emitted when a ready client gets a player state.
	EventPlayerSpawned logging.EventType = "lifecycle.player_spawned"
	// EventLoopStarted is emitted when the broadcast loop transitions to running.
	EventLoopStarted logging.EventType = "lifecycle.loop_started"
	// EventLoopStopped is emitted when the broadcast loop observes its stop flag.
	EventLoopStopped logging.EventType = "lifecycle.loop_stopped"
)

// PlayerSpawnedPayload captures spawn metadata for a new player.
type PlayerSpawnedPayload struct {
	Username string  `json:"username"`
	SpawnX   float64 `json:"spawnX"`
	SpawnY   float64 `json:"spawnY"`
	SpawnZ   float64 `json:"spawnZ"`
}

func SessionConnected(ctx context.Context, pub logging.Publisher, sessionID string) {
	publish(ctx, pub, logging.Event{
		Type:     EventSessionConnected,
		Session:  sessionID,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
	})
}

func SessionDisconnected(ctx context.Context, pub logging.Publisher, sessionID string) {
	publish(ctx, pub, logging.Event{
		Type:     EventSessionDisconnected,
		Session:  sessionID,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
	})
}

func PlayerSpawned(ctx context.Context, pub logging.Publisher, sessionID string, payload PlayerSpawnedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerSpawned,
		Session:  sessionID,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

func LoopStarted(ctx context.Context, pub logging.Publisher) {
	publish(ctx, pub, logging.Event{
		Type:     EventLoopStarted,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
	})
}

func LoopStopped(ctx context.Context, pub logging.Publisher) {
	publish(ctx, pub, logging.Event{
		Type:     EventLoopStopped,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
