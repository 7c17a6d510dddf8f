package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carolmelon/threejs-game-network/logging"
	"github.com/Carolmelon/threejs-game-network/logging/lifecycle"
)

// TickLoop broadcasts a world snapshot to every session at a fixed cadence.
// It is a two-state machine (stopped/running) driven by the registry's
// connection-count transitions: the first ready client starts it, the last
// disconnect stops it.
type TickLoop struct {
	mu      sync.Mutex
	running bool
	run     *loopRun

	registry  *SessionRegistry
	transport Transport
	telemetry *TelemetryCounters
	publisher logging.Publisher
	interval  time.Duration
	clock     func() time.Time
}

// loopRun is the handle for one background goroutine. cancel interrupts the
// pacing sleep; done closes when the goroutine has fully exited. A fresh run
// gets fresh channels so a stale goroutine can never be confused with the
// current one.
type loopRun struct {
	cancel     chan struct{}
	done       chan struct{}
	cancelOnce sync.Once
}

func (r *loopRun) forceCancel() {
	r.cancelOnce.Do(func() {
		close(r.cancel)
	})
}

func NewTickLoop(registry *SessionRegistry, transport Transport, telemetry *TelemetryCounters, publisher logging.Publisher) *TickLoop {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &TickLoop{
		registry:  registry,
		transport: transport,
		telemetry: telemetry,
		publisher: publisher,
		interval:  tickInterval,
		clock:     time.Now,
	}
}

// Start transitions stopped→running. Starting while already running is a
// warned no-op. A previous run whose goroutine has not yet drained is
// force-cancelled and drained before the new goroutine launches, so two
// loops can never tick concurrently.
func (l *TickLoop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		l.publisher.Publish(context.Background(), logging.Event{
			Type:     "loop.already_running",
			Severity: logging.SeverityWarn,
			Category: logging.CategorySystem,
		})
		return
	}

	var stale *loopRun
	if l.run != nil {
		select {
		case <-l.run.done:
		default:
			stale = l.run
		}
	}

	run := &loopRun{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	l.run = run
	l.running = true
	l.mu.Unlock()

	if stale != nil {
		l.publisher.Publish(context.Background(), logging.Event{
			Type:     "loop.stale_run_cancelled",
			Severity: logging.SeverityWarn,
			Category: logging.CategorySystem,
		})
		stale.forceCancel()
		// Wait bounded by at most one in-flight broadcast, whose writes are
		// capped by the transport's write deadline.
		<-stale.done
	}

	lifecycle.LoopStarted(context.Background(), l.publisher)
	go l.loop(run)
}

// Stop clears the running flag and returns immediately; the loop observes
// the flag within one tick. It is safe to call from an event handler,
// including the disconnect handler running while the loop is mid-broadcast.
func (l *TickLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		l.publisher.Publish(context.Background(), logging.Event{
			Type:     "loop.already_stopped",
			Severity: logging.SeverityWarn,
			Category: logging.CategorySystem,
		})
		return
	}
	l.running = false
	l.mu.Unlock()
}

func (l *TickLoop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Shutdown stops the loop and waits up to loopStopTimeout for the goroutine
// to drain, force-cancelling it on timeout. Used at process shutdown only.
func (l *TickLoop) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.running = false
	run := l.run
	l.mu.Unlock()

	if run == nil {
		return nil
	}

	timer := time.NewTimer(loopStopTimeout)
	defer timer.Stop()

	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		run.forceCancel()
		return ctx.Err()
	case <-timer.C:
		run.forceCancel()
		return fmt.Errorf("tick loop did not stop within %s", loopStopTimeout)
	}
}

func (l *TickLoop) loop(run *loopRun) {
	defer func() {
		lifecycle.LoopStopped(context.Background(), l.publisher)
		close(run.done)
	}()

	for {
		// Cancellation wins over the shared flag: a force-cancelled run must
		// never begin another iteration, even after a successor has set the
		// flag again.
		select {
		case <-run.cancel:
			return
		default:
		}
		if !l.Running() {
			return
		}

		start := l.clock()
		players := l.registry.ListForBroadcast()
		msg := GameStateMessage{
			Timestamp:   start.UnixMilli(),
			Players:     players,
			WorldEvents: []any{},
		}
		l.transport.Broadcast(EventGameState, msg, "")

		elapsed := l.clock().Sub(start)
		if l.telemetry != nil {
			l.telemetry.RecordTick(elapsed, len(players))
		}

		// Self-pacing: sleep whatever remains of the interval so broadcast
		// cost does not stretch the cadence. No cross-iteration drift
		// correction.
		wait := l.interval - elapsed
		if wait < 0 {
			wait = 0
		}

		select {
		case <-time.After(wait):
		case <-run.cancel:
			return
		}
	}
}
