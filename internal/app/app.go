package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"time"

	server "github.com/Carolmelon/threejs-game-network"
	servernet "github.com/Carolmelon/threejs-game-network/internal/net"
	"github.com/Carolmelon/threejs-game-network/internal/net/ws"
	"github.com/Carolmelon/threejs-game-network/logging"
	loggingSinks "github.com/Carolmelon/threejs-game-network/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Run wires the registry, tick loop, handlers, and transport together and
// serves until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger := log.Default()

	logConfig := logging.DefaultConfig()
	severity, err := cfg.minimumSeverity()
	if err != nil {
		logger.Printf("%v, defaulting to info", err)
	}
	logConfig.MinimumSeverity = severity

	sinks := []logging.NamedSink{
		{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	}
	if cfg.LogJSONPath != "" {
		jsonSink, err := loggingSinks.NewJSONSink(logging.JSONConfig{FilePath: cfg.LogJSONPath})
		if err != nil {
			return fmt.Errorf("construct json sink: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: jsonSink})
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "json")
	}

	router := logging.NewRouter(logConfig, logging.SystemClock{}, logger, sinks)
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	telemetry := server.NewTelemetryCounters()
	registry := server.NewSessionRegistry(router)
	hub := ws.NewHub(logger, telemetry)
	loop := server.NewTickLoop(registry, hub, telemetry, router)
	handlers := server.NewEventHandlers(registry, hub, loop, router)

	wsHandler := ws.NewHandler(hub, handlers, ws.HandlerConfig{Logger: logger})
	httpHandler := servernet.NewHTTPHandler(registry, loop, telemetry, wsHandler, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
	})

	srv := &nethttp.Server{Addr: cfg.Addr, Handler: httpHandler}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	if err := loop.Shutdown(shutdownCtx); err != nil {
		logger.Printf("tick loop shutdown: %v", err)
	}
	return nil
}
