package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Carolmelon/threejs-game-network/logging"
)

const eventInputFieldRejected logging.EventType = "input.field_rejected"

// ApplyInput applies a partial update from a player_input payload. Each
// recognized field present in the payload overwrites the matching player
// field; absent fields are untouched. A field with the wrong shape is
// rejected on its own and the rest of the patch still applies. The world
// clamps are reapplied unconditionally afterward.
func (r *SessionRegistry) ApplyInput(sessionID string, payload []byte) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		r.publisher.Publish(context.Background(), logging.Event{
			Type:     "input.malformed_payload",
			Session:  sessionID,
			Severity: logging.SeverityWarn,
			Category: logging.CategoryGameplay,
			Payload:  err.Error(),
		})
		return
	}

	r.mu.Lock()
	state, ok := r.players[sessionID]
	if !ok {
		r.mu.Unlock()
		r.publisher.Publish(context.Background(), logging.Event{
			Type:     "input.unknown_session",
			Session:  sessionID,
			Severity: logging.SeverityWarn,
			Category: logging.CategoryGameplay,
		})
		return
	}

	var rejected []string

	// Client timestamps arrive in milliseconds; the stored update time is
	// seconds since epoch.
	if raw, present := fields["timestamp"]; present {
		var millis float64
		if err := json.Unmarshal(raw, &millis); err == nil {
			state.LastUpdateTime = millis / 1000.0
		} else {
			state.LastUpdateTime = r.nowSecondsLocked()
			rejected = append(rejected, "timestamp")
		}
	} else {
		state.LastUpdateTime = r.nowSecondsLocked()
	}

	if raw, present := fields["position"]; present {
		if v, err := decodeVector(raw); err == nil {
			state.Position = v
		} else {
			rejected = append(rejected, "position")
		}
	}
	if raw, present := fields["velocity"]; present {
		if v, err := decodeVector(raw); err == nil {
			state.Velocity = v
		} else {
			rejected = append(rejected, "velocity")
		}
	}

	applyFloat(fields, "model_rotation_y", &state.ModelRotationY, &rejected)
	applyFloat(fields, "pitch_rotation_x", &state.PitchRotationX, &rejected)
	applyBool(fields, "is_crouching", &state.IsCrouching, &rejected)
	applyFloat(fields, "height", &state.Height, &rejected)
	applyString(fields, "animation", &state.Animation, &rejected)
	applyString(fields, "view_mode", &state.ViewMode, &rejected)
	applyFloat(fields, "camera_orientation_y", &state.CameraOrientationY, &rejected)

	// A view_mode_changed field also drives the view mode; the client sends
	// it when the toggle happens rather than on every frame.
	applyString(fields, "view_mode_changed", &state.ViewMode, &rejected)

	if raw, present := fields["keys"]; present {
		var keys map[string]bool
		if err := json.Unmarshal(raw, &keys); err == nil {
			state.keys = keys
		} else {
			rejected = append(rejected, "keys")
		}
	}

	clampToWorld(&state.Player)
	r.mu.Unlock()

	for _, field := range rejected {
		r.publisher.Publish(context.Background(), logging.Event{
			Type:     eventInputFieldRejected,
			Session:  sessionID,
			Severity: logging.SeverityWarn,
			Category: logging.CategoryGameplay,
			Payload:  field,
		})
	}
}

// decodeVector requires all three coordinates; a vector missing one is
// treated as malformed rather than zero-filled.
func decodeVector(raw json.RawMessage) (Vector3, error) {
	var probe struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
		Z *float64 `json:"z"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Vector3{}, err
	}
	if probe.X == nil || probe.Y == nil || probe.Z == nil {
		return Vector3{}, fmt.Errorf("vector missing a coordinate")
	}
	return Vector3{X: *probe.X, Y: *probe.Y, Z: *probe.Z}, nil
}

func applyFloat(fields map[string]json.RawMessage, name string, dst *float64, rejected *[]string) {
	raw, present := fields[name]
	if !present {
		return
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		*rejected = append(*rejected, name)
		return
	}
	*dst = v
}

func applyBool(fields map[string]json.RawMessage, name string, dst *bool, rejected *[]string) {
	raw, present := fields[name]
	if !present {
		return
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		*rejected = append(*rejected, name)
		return
	}
	*dst = v
}

func applyString(fields map[string]json.RawMessage, name string, dst *string, rejected *[]string) {
	raw, present := fields[name]
	if !present {
		return
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		*rejected = append(*rejected, name)
		return
	}
	*dst = v
}
