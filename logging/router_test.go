package logging_test

import (
	"context"
	"testing"
	"time"

	"github.com/Carolmelon/threejs-game-network/logging"
	"github.com/Carolmelon/threejs-game-network/logging/sinks"
)

func newTestRouter(cfg logging.Config, sink logging.Sink) *logging.Router {
	clock := logging.ClockFunc(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	})
	return logging.NewRouter(cfg, clock, nil, []logging.NamedSink{{Name: "memory", Sink: sink}})
}

func TestRouterDeliversToEnabledSink(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, MinimumSeverity: logging.SeverityInfo}
	router := newTestRouter(cfg, memory)

	router.Publish(context.Background(), logging.Event{
		Type:     "test.event",
		Session:  "session-1",
		Severity: logging.SeverityInfo,
	})

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Session != "session-1" {
		t.Fatalf("unexpected session %q", events[0].Session)
	}
	if events[0].Time.IsZero() {
		t.Fatalf("router must stamp the event time")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, MinimumSeverity: logging.SeverityWarn}
	router := newTestRouter(cfg, memory)

	router.Publish(context.Background(), logging.Event{Type: "test.debug", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "test.warn", Severity: logging.SeverityWarn})

	events := memory.Events()
	if len(events) != 1 || events[0].Type != "test.warn" {
		t.Fatalf("severity filter failed: %+v", events)
	}

	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.DroppedTotal != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRouterSkipsDisabledSinks(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.Config{EnabledSinks: []string{"console"}, MinimumSeverity: logging.SeverityInfo}
	router := newTestRouter(cfg, memory)

	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})

	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("disabled sink must not receive events")
	}
}

func TestRouterStampsConfiguredFields(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.Config{
		EnabledSinks:    []string{"memory"},
		MinimumSeverity: logging.SeverityInfo,
		Fields:          map[string]any{"service": "world-sync"},
	}
	router := newTestRouter(cfg, memory)

	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})

	events := memory.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["service"] != "world-sync" {
		t.Fatalf("configured field missing: %+v", events[0].Extra)
	}
}

func TestRouterClosedDropsEvents(t *testing.T) {
	memory := sinks.NewMemorySink()
	cfg := logging.Config{EnabledSinks: []string{"memory"}, MinimumSeverity: logging.SeverityInfo}
	router := newTestRouter(cfg, memory)

	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "test.event", Severity: logging.SeverityInfo})

	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("closed router must drop events")
	}
}

func TestWithFieldsDoesNotOverwrite(t *testing.T) {
	var captured []logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = append(captured, event)
	})

	pub := logging.WithFields(base, map[string]any{"region": "eu", "service": "world-sync"})
	pub.Publish(context.Background(), logging.Event{
		Type:  "test.event",
		Extra: map[string]any{"region": "us"},
	})

	if len(captured) != 1 {
		t.Fatalf("expected 1 event, got %d", len(captured))
	}
	if captured[0].Extra["region"] != "us" {
		t.Fatalf("existing keys must win: %+v", captured[0].Extra)
	}
	if captured[0].Extra["service"] != "world-sync" {
		t.Fatalf("missing stamped field: %+v", captured[0].Extra)
	}
}
