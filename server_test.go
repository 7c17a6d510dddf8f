package server

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/Carolmelon/threejs-game-network/logging"
)

// recordedSend captures one outbound emission for assertions.
type recordedSend struct {
	kind      string // "unicast" or "broadcast"
	sessionID string // target (unicast) or excluded session (broadcast)
	event     string
	payload   any
}

// recordingTransport implements Transport and remembers every send. It is
// mutex-guarded because the tick loop broadcasts from its own goroutine.
type recordingTransport struct {
	mu    sync.Mutex
	sends []recordedSend
}

func (t *recordingTransport) Unicast(sessionID, event string, payload any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, recordedSend{kind: "unicast", sessionID: sessionID, event: event, payload: payload})
}

func (t *recordingTransport) Broadcast(event string, payload any, excludeSessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, recordedSend{kind: "broadcast", sessionID: excludeSessionID, event: event, payload: payload})
}

func (t *recordingTransport) all() []recordedSend {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := make([]recordedSend, len(t.sends))
	copy(copied, t.sends)
	return copied
}

// byEvent returns every recorded send carrying the given event name.
func (t *recordingTransport) byEvent(event string) []recordedSend {
	var matched []recordedSend
	for _, send := range t.all() {
		if send.event == event {
			matched = append(matched, send)
		}
	}
	return matched
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = nil
}

// recordingPublisher collects structured events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(eventType logging.EventType) []logging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []logging.Event
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// newTestRegistry returns a registry with a deterministic clock and spawn
// source so tests can assert exact values.
func newTestRegistry(pub logging.Publisher) (*SessionRegistry, time.Time) {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	registry := NewSessionRegistry(pub)
	registry.clock = func() time.Time { return now }
	registry.randFloat = rand.New(rand.NewSource(1)).Float64
	return registry, now
}

type testHarness struct {
	registry  *SessionRegistry
	transport *recordingTransport
	loop      *TickLoop
	handlers  *EventHandlers
	publisher *recordingPublisher
}

// newTestHarness wires handlers against a recording transport and a fast
// tick loop so lifecycle transitions finish within test timeouts.
func newTestHarness() *testHarness {
	publisher := &recordingPublisher{}
	registry, _ := newTestRegistry(publisher)
	transport := &recordingTransport{}
	loop := NewTickLoop(registry, transport, nil, publisher)
	loop.interval = 5 * time.Millisecond
	handlers := NewEventHandlers(registry, transport, loop, publisher)
	return &testHarness{
		registry:  registry,
		transport: transport,
		loop:      loop,
		handlers:  handlers,
		publisher: publisher,
	}
}

func (h *testHarness) shutdown() {
	h.loop.Shutdown(context.Background())
}
