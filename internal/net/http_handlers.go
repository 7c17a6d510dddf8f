package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	server "github.com/Carolmelon/threejs-game-network"
	"github.com/Carolmelon/threejs-game-network/internal/net/ws"
)

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    *log.Logger
}

// NewHTTPHandler assembles the full HTTP surface: health, diagnostics, the
// websocket endpoint, and the static client files with permissive CORS for
// the browser client.
func NewHTTPHandler(registry *server.SessionRegistry, loop *server.TickLoop, telemetry *server.TelemetryCounters, wsHandler *ws.Handler, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status      string                   `json:"status"`
			ServerTime  int64                    `json:"serverTime"`
			TickRate    int                      `json:"tickRate"`
			LoopRunning bool                     `json:"loopRunning"`
			Connections int                      `json:"connections"`
			Players     int                      `json:"players"`
			Telemetry   server.TelemetrySnapshot `json:"telemetry"`
		}{
			Status:      "ok",
			ServerTime:  time.Now().UnixMilli(),
			TickRate:    server.TickRate(),
			LoopRunning: loop.Running(),
			Connections: registry.ConnectionCount(),
			Players:     registry.PlayerCount(),
			Telemetry:   telemetry.Snapshot(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", withCORS(fs))
	}

	return mux
}

// withCORS mirrors the allow-all policy the browser client was built
// against. Lock this down when the client origin is known.
func withCORS(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == nethttp.MethodOptions {
			w.WriteHeader(nethttp.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
