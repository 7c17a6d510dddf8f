package server

import "fmt"

// Vector3 is a plain value type; assignment copies all three components.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Player is the broadcast view of one connected player. It carries every
// field other clients need to render the remote avatar and nothing that is
// private to the owning connection. The field names are the wire contract.
type Player struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	Position           Vector3 `json:"position"`
	Velocity           Vector3 `json:"velocity"`
	ModelRotationY     float64 `json:"model_rotation_y"`
	PitchRotationX     float64 `json:"pitch_rotation_x"`
	IsCrouching        bool    `json:"is_crouching"`
	Height             float64 `json:"height"`
	Animation          string  `json:"animation"`
	ViewMode           string  `json:"view_mode"`
	CameraOrientationY float64 `json:"camera_orientation_y"`
	LastUpdateTime     float64 `json:"last_update_time"`
	Health             int     `json:"health"`
}

// playerState is the registry-owned record for one session. The embedded
// Player is what ListForBroadcast copies out; keys is transient input state
// that never leaves the server.
type playerState struct {
	Player
	keys map[string]bool
}

// snapshot returns a detached copy safe to hand to broadcast consumers.
func (s *playerState) snapshot() Player {
	return s.Player
}

// defaultUsername derives the placeholder name used when a client joins
// without supplying one.
func defaultUsername(sessionID string) string {
	short := sessionID
	if len(short) > 4 {
		short = short[:4]
	}
	return fmt.Sprintf("Player_%s", short)
}

// clampToWorld reapplies the ground and boundary invariants after any
// position-affecting update. The vertical check intentionally uses
// position.y against groundLevel+height, matching the client's coordinate
// convention.
func clampToWorld(p *Player) {
	if p.Position.Y < groundLevel+p.Height {
		p.Position.Y = groundLevel + p.Height
	}
	p.Position.X = clamp(p.Position.X, -worldBoundary, worldBoundary)
	p.Position.Z = clamp(p.Position.Z, -worldBoundary, worldBoundary)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
