package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

// Router fans events out to its sinks after a severity filter. Writes are
// synchronous; the event rate here is bounded by session churn and chat,
// not by the broadcast tick.
type Router struct {
	mu          sync.Mutex
	clock       Clock
	sinks       []NamedSink
	fallback    *log.Logger
	minSeverity Severity
	fields      map[string]any
	closed      bool

	eventsTotal  uint64
	droppedTotal uint64
}

type RouterStats struct {
	EventsTotal  uint64
	DroppedTotal uint64
}

func NewRouter(cfg Config, clock Clock, fallback *log.Logger, sinks []NamedSink) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	enabled := make([]NamedSink, 0, len(sinks))
	for _, named := range sinks {
		if named.Sink == nil || !cfg.HasSink(named.Name) {
			continue
		}
		enabled = append(enabled, named)
	}
	return &Router{
		clock:       clock,
		sinks:       enabled,
		fallback:    fallback,
		minSeverity: cfg.MinimumSeverity,
		fields:      cfg.CloneFields(),
	}
}

func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || event.Severity < r.minSeverity {
		r.droppedTotal++
		return
	}

	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = cloneForFields(event)
		if event.Extra == nil {
			event.Extra = make(map[string]any, len(r.fields))
		}
		for k, v := range r.fields {
			if _, exists := event.Extra[k]; !exists {
				event.Extra[k] = v
			}
		}
	}

	r.eventsTotal++
	for _, named := range r.sinks {
		if err := named.Sink.Write(event); err != nil {
			r.fallback.Printf("sink %s failed to write event %s: %v", named.Name, event.Type, err)
		}
	}
}

func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RouterStats{EventsTotal: r.eventsTotal, DroppedTotal: r.droppedTotal}
}

func (r *Router) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	for _, named := range r.sinks {
		if err := named.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
