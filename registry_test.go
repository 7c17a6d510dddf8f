package server

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCreateOrUpdatePlayerAssignsIdentity(t *testing.T) {
	registry, now := newTestRegistry(nil)

	player := registry.CreateOrUpdatePlayer("session-1", "alice")
	if player.ID != "session-1" {
		t.Fatalf("expected id %q, got %q", "session-1", player.ID)
	}
	if player.Username != "alice" {
		t.Fatalf("expected username %q, got %q", "alice", player.Username)
	}
	if player.Position.Y != spawnHeight {
		t.Fatalf("expected spawn height %v, got %v", spawnHeight, player.Position.Y)
	}
	if player.Position.X < -spawnRange || player.Position.X > spawnRange {
		t.Fatalf("spawn x %v outside [-%v, %v]", player.Position.X, spawnRange, spawnRange)
	}
	if player.Position.Z < -spawnRange || player.Position.Z > spawnRange {
		t.Fatalf("spawn z %v outside [-%v, %v]", player.Position.Z, spawnRange, spawnRange)
	}
	if player.Height != defaultHeight || player.Animation != defaultAnimation || player.ViewMode != defaultViewMode {
		t.Fatalf("unexpected defaults: %+v", player)
	}
	if player.Health != defaultHealth {
		t.Fatalf("expected health %d, got %d", defaultHealth, player.Health)
	}
	wantTime := float64(now.UnixMilli()) / 1000.0
	if player.LastUpdateTime != wantTime {
		t.Fatalf("expected lastUpdateTime %v, got %v", wantTime, player.LastUpdateTime)
	}

	got, ok := registry.GetPlayerState("session-1")
	if !ok {
		t.Fatalf("expected player state after create")
	}
	if got.ID != "session-1" || got.Username != "alice" {
		t.Fatalf("lookup returned %+v", got)
	}
}

func TestCreateOrUpdatePlayerDerivesDefaultUsername(t *testing.T) {
	registry, _ := newTestRegistry(nil)

	player := registry.CreateOrUpdatePlayer("abcdef", "")
	if player.Username != "Player_abcd" {
		t.Fatalf("expected derived username, got %q", player.Username)
	}
}

func TestCreateOrUpdatePlayerRefreshesExisting(t *testing.T) {
	registry, _ := newTestRegistry(nil)

	first := registry.CreateOrUpdatePlayer("session-1", "alice")
	second := registry.CreateOrUpdatePlayer("session-1", "bob")
	if second.Username != "bob" {
		t.Fatalf("expected username update, got %q", second.Username)
	}
	if second.Position != first.Position {
		t.Fatalf("update must not respawn: %+v vs %+v", second.Position, first.Position)
	}

	third := registry.CreateOrUpdatePlayer("session-1", "")
	if third.Username != "bob" {
		t.Fatalf("empty username must keep the old one, got %q", third.Username)
	}
}

func TestRegisterConnectionIdempotent(t *testing.T) {
	registry, _ := newTestRegistry(nil)

	registry.RegisterConnection("session-1")
	registry.RegisterConnection("session-1")

	if count := registry.ConnectionCount(); count != 1 {
		t.Fatalf("expected 1 connection, got %d", count)
	}
}

func TestDisconnectRemovesState(t *testing.T) {
	registry, _ := newTestRegistry(nil)

	registry.RegisterConnection("session-1")
	registry.CreateOrUpdatePlayer("session-1", "alice")

	removed, known := registry.Disconnect("session-1")
	if !known || removed != "session-1" {
		t.Fatalf("expected known disconnect, got %q %v", removed, known)
	}

	if _, ok := registry.GetPlayerState("session-1"); ok {
		t.Fatalf("player state must be gone after disconnect")
	}
	if count := registry.ConnectionCount(); count != 0 {
		t.Fatalf("expected 0 connections, got %d", count)
	}

	if _, known := registry.Disconnect("session-1"); known {
		t.Fatalf("second disconnect must report unknown")
	}
}

func TestDisconnectConnectionOnlySessionIsKnown(t *testing.T) {
	registry, _ := newTestRegistry(nil)

	registry.RegisterConnection("session-1")

	removed, known := registry.Disconnect("session-1")
	if !known || removed != "session-1" {
		t.Fatalf("a session that never sent client_ready is still a real disconnect")
	}
}

func TestApplyInputPartialPatch(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	before := registry.CreateOrUpdatePlayer("session-1", "alice")

	registry.ApplyInput("session-1", []byte(`{"animation":"Run"}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.Animation != "Run" {
		t.Fatalf("expected animation Run, got %q", after.Animation)
	}
	if after.Position != before.Position || after.Velocity != before.Velocity {
		t.Fatalf("partial patch must not touch position or velocity")
	}
	if after.Username != before.Username || after.Height != before.Height || after.ViewMode != before.ViewMode {
		t.Fatalf("partial patch touched unrelated fields: %+v", after)
	}
	if after.LastUpdateTime == 0 {
		t.Fatalf("lastUpdateTime must refresh on every input")
	}
}

func TestApplyInputTimestampMillisBecomeSeconds(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	registry.CreateOrUpdatePlayer("session-1", "alice")

	registry.ApplyInput("session-1", []byte(`{"timestamp":1714000000000}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.LastUpdateTime != 1714000000.0 {
		t.Fatalf("expected 1714000000.0 seconds, got %v", after.LastUpdateTime)
	}
}

func TestApplyInputClampInvariant(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	registry.CreateOrUpdatePlayer("session-1", "alice")

	registry.ApplyInput("session-1", []byte(`{"position":{"x":-999,"y":-50,"z":999},"height":1.8}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.Position.Y != groundLevel+after.Height {
		t.Fatalf("expected y clamped to %v, got %v", groundLevel+after.Height, after.Position.Y)
	}
	if after.Position.X != -worldBoundary {
		t.Fatalf("expected x clamped to %v, got %v", -worldBoundary, after.Position.X)
	}
	if after.Position.Z != worldBoundary {
		t.Fatalf("expected z clamped to %v, got %v", worldBoundary, after.Position.Z)
	}
}

func TestApplyInputClampUsesUpdatedHeight(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	registry.CreateOrUpdatePlayer("session-1", "alice")

	// The clamp formula is position.y >= groundLevel + height with whatever
	// height the same patch set.
	registry.ApplyInput("session-1", []byte(`{"position":{"x":0,"y":-20,"z":0},"height":0.9}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.Position.Y != groundLevel+0.9 {
		t.Fatalf("expected y %v, got %v", groundLevel+0.9, after.Position.Y)
	}
}

func TestApplyInputRejectsMalformedFieldOnly(t *testing.T) {
	publisher := &recordingPublisher{}
	registry, _ := newTestRegistry(publisher)
	before := registry.CreateOrUpdatePlayer("session-1", "alice")

	// position is missing z; animation is fine. Only position is rejected.
	registry.ApplyInput("session-1", []byte(`{"position":{"x":1,"y":2},"animation":"Walk"}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.Animation != "Walk" {
		t.Fatalf("valid field must still apply, got animation %q", after.Animation)
	}
	if after.Position != before.Position {
		t.Fatalf("malformed position must be rejected, got %+v", after.Position)
	}

	rejections := publisher.byType(eventInputFieldRejected)
	if len(rejections) != 1 {
		t.Fatalf("expected 1 rejection event, got %d", len(rejections))
	}
	if field, _ := rejections[0].Payload.(string); field != "position" {
		t.Fatalf("expected position rejection, got %v", rejections[0].Payload)
	}
}

func TestApplyInputWrongTypeFieldRejected(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	before := registry.CreateOrUpdatePlayer("session-1", "alice")

	registry.ApplyInput("session-1", []byte(`{"is_crouching":"yes","model_rotation_y":1.5}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.IsCrouching != before.IsCrouching {
		t.Fatalf("wrong-type field must not apply")
	}
	if after.ModelRotationY != 1.5 {
		t.Fatalf("expected model rotation 1.5, got %v", after.ModelRotationY)
	}
}

func TestApplyInputViewModeChanged(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	registry.CreateOrUpdatePlayer("session-1", "alice")

	registry.ApplyInput("session-1", []byte(`{"view_mode_changed":"third-person"}`))

	after, _ := registry.GetPlayerState("session-1")
	if after.ViewMode != "third-person" {
		t.Fatalf("expected view mode change, got %q", after.ViewMode)
	}
}

func TestApplyInputUnknownSessionIsNoOp(t *testing.T) {
	publisher := &recordingPublisher{}
	registry, _ := newTestRegistry(publisher)

	registry.ApplyInput("ghost", []byte(`{"animation":"Run"}`))

	if events := publisher.byType("input.unknown_session"); len(events) != 1 {
		t.Fatalf("expected unknown-session warning, got %d", len(events))
	}
}

func TestListForBroadcastStripsKeys(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	registry.CreateOrUpdatePlayer("session-1", "alice")
	registry.ApplyInput("session-1", []byte(`{"keys":{"w":true}}`))

	players := registry.ListForBroadcast()
	if len(players) != 1 {
		t.Fatalf("expected 1 player, got %d", len(players))
	}

	data, err := json.Marshal(players[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"keys"`) {
		t.Fatalf("broadcast view must not carry keys: %s", data)
	}
	if !strings.Contains(string(data), `"model_rotation_y"`) {
		t.Fatalf("broadcast view missing wire field: %s", data)
	}
}

func TestListForBroadcastSnapshotsAllPlayers(t *testing.T) {
	registry, _ := newTestRegistry(nil)
	registry.CreateOrUpdatePlayer("a", "")
	registry.CreateOrUpdatePlayer("b", "")
	registry.CreateOrUpdatePlayer("c", "")

	players := registry.ListForBroadcast()
	if len(players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(players))
	}

	seen := make(map[string]bool, len(players))
	for _, p := range players {
		seen[p.ID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Fatalf("snapshot missing %s", id)
		}
	}
}
