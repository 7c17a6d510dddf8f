package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	server "github.com/Carolmelon/threejs-game-network"
)

// Generates the JSON schema for the websocket message catalogue so the
// client repo can validate against the server's wire contract.
func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// catalogue lists every payload that crosses the websocket, keyed by event
// name, in both directions.
type catalogue struct {
	ClientIDAssigned server.ClientIDAssigned    `json:"client_id_assigned"`
	ClientReady      server.ClientReadyPayload  `json:"client_ready"`
	PlayerJoined     server.PlayerJoinedMessage `json:"player_joined"`
	InitialGameState server.InitialGameState    `json:"initial_game_state"`
	PlayerAction     server.PlayerActionPayload `json:"player_action"`
	ActionBroadcast  server.ActionBroadcast     `json:"action_broadcast"`
	ChatMessage      server.ChatPayload         `json:"chat_message_in"`
	ChatBroadcast    server.ChatBroadcast       `json:"chat_message_out"`
	GameState        server.GameStateMessage    `json:"game_state"`
	PlayerLeft       server.PlayerLeft          `json:"player_left"`
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(catalogue))
	schema.Title = "World Sync Wire Catalogue"
	schema.Description = "Payload shapes for every event exchanged over the websocket."
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
