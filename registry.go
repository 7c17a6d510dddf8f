package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Carolmelon/threejs-game-network/logging"
	"github.com/Carolmelon/threejs-game-network/logging/lifecycle"
)

// SessionRegistry owns the liveness flags and player states for every
// connected session. It is the only shared mutable resource in the core; a
// single mutex serializes every mutation against the broadcast snapshot.
// No method suspends while the lock is held.
type SessionRegistry struct {
	mu          sync.Mutex
	connections map[string]bool
	players     map[string]*playerState

	publisher logging.Publisher
	clock     func() time.Time
	randFloat func() float64
}

func NewSessionRegistry(publisher logging.Publisher) *SessionRegistry {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &SessionRegistry{
		connections: make(map[string]bool),
		players:     make(map[string]*playerState),
		publisher:   publisher,
		clock:       time.Now,
		randFloat:   rand.Float64,
	}
}

// RegisterConnection marks a session as live. Re-registering an already
// live session is a no-op.
func (r *SessionRegistry) RegisterConnection(sessionID string) {
	r.mu.Lock()
	r.connections[sessionID] = true
	r.mu.Unlock()

	lifecycle.SessionConnected(context.Background(), r.publisher, sessionID)
}

// Disconnect removes the liveness flag and player state for a session. It
// returns the session id and true when the session was known in any
// capacity, which is what tells the caller a real disconnect happened.
func (r *SessionRegistry) Disconnect(sessionID string) (string, bool) {
	r.mu.Lock()
	_, wasActive := r.connections[sessionID]
	delete(r.connections, sessionID)
	_, hadPlayer := r.players[sessionID]
	delete(r.players, sessionID)
	r.mu.Unlock()

	if !wasActive && !hadPlayer {
		r.publisher.Publish(context.Background(), logging.Event{
			Type:     "session.unknown_disconnect",
			Session:  sessionID,
			Severity: logging.SeverityWarn,
			Category: logging.CategorySession,
		})
		return "", false
	}

	lifecycle.SessionDisconnected(context.Background(), r.publisher, sessionID)
	return sessionID, true
}

// GetPlayerState returns a copy of the session's player state. Absence is
// not an error; late and duplicate network events are expected.
func (r *SessionRegistry) GetPlayerState(sessionID string) (Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.players[sessionID]
	if !ok {
		return Player{}, false
	}
	return state.snapshot(), true
}

// CreateOrUpdatePlayer creates the player state for a session on first use,
// spawning it at a random position, or refreshes the username and update
// time of an existing one. The session id is the player id; there is no
// second identifier.
func (r *SessionRegistry) CreateOrUpdatePlayer(sessionID, username string) Player {
	r.mu.Lock()

	state, ok := r.players[sessionID]
	if !ok {
		if username == "" {
			username = defaultUsername(sessionID)
		}
		state = &playerState{
			Player: Player{
				ID:       sessionID,
				Username: username,
				Position: Vector3{
					X: r.spawnOffsetLocked(),
					Y: spawnHeight,
					Z: r.spawnOffsetLocked(),
				},
				Height:         defaultHeight,
				Animation:      defaultAnimation,
				ViewMode:       defaultViewMode,
				LastUpdateTime: r.nowSecondsLocked(),
				Health:         defaultHealth,
			},
			keys: make(map[string]bool),
		}
		r.players[sessionID] = state
	} else {
		if username != "" {
			state.Username = username
		}
		state.LastUpdateTime = r.nowSecondsLocked()
	}

	snapshot := state.snapshot()
	r.mu.Unlock()

	if !ok {
		lifecycle.PlayerSpawned(context.Background(), r.publisher, sessionID, lifecycle.PlayerSpawnedPayload{
			Username: snapshot.Username,
			SpawnX:   snapshot.Position.X,
			SpawnY:   snapshot.Position.Y,
			SpawnZ:   snapshot.Position.Z,
		})
	}
	return snapshot
}

// SetAnimation force-sets the animation field, bypassing the input stream.
// Used by actions that must win over whatever the client last sent.
func (r *SessionRegistry) SetAnimation(sessionID, animation string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.players[sessionID]
	if !ok {
		return false
	}
	state.Animation = animation
	return true
}

// ListForBroadcast snapshots every player with the transient keys field
// stripped. Order is arbitrary; consumers must not depend on it.
func (r *SessionRegistry) ListForBroadcast() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]Player, 0, len(r.players))
	for _, state := range r.players {
		players = append(players, state.snapshot())
	}
	return players
}

// ConnectionCount reports how many sessions are currently live. The tick
// loop lifecycle keys off the 0→1 and 1→0 transitions of this count.
func (r *SessionRegistry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// PlayerCount reports how many sessions have a player state.
func (r *SessionRegistry) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// spawnOffsetLocked draws a coordinate uniformly from [-spawnRange, spawnRange].
func (r *SessionRegistry) spawnOffsetLocked() float64 {
	return spawnRange * (2*r.randFloat() - 1)
}

func (r *SessionRegistry) nowSecondsLocked() float64 {
	return float64(r.clock().UnixMilli()) / 1000.0
}
