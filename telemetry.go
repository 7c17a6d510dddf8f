package server

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// TelemetryCounters tracks broadcast volume and tick pacing. All fields are
// atomics so the tick loop and the transport can record without sharing the
// registry lock.
type TelemetryCounters struct {
	bytesSent          atomic.Uint64
	broadcasts         atomic.Uint64
	tickDurationMillis atomic.Int64
	lastTickPlayers    atomic.Uint64
	lastBroadcastBytes atomic.Uint64
	debug              bool
}

type TelemetrySnapshot struct {
	BytesSent       uint64 `json:"bytesSent"`
	Broadcasts      uint64 `json:"broadcasts"`
	TickDuration    int64  `json:"tickDurationMillis"`
	LastTickPlayers uint64 `json:"lastTickPlayers"`
}

func NewTelemetryCounters() *TelemetryCounters {
	t := &TelemetryCounters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		t.debug = true
	}
	return t
}

// RecordBroadcast is called by the transport with the total bytes written
// across all recipients of one fan-out.
func (t *TelemetryCounters) RecordBroadcast(bytes int) {
	if bytes < 0 {
		bytes = 0
	}
	t.bytesSent.Add(uint64(bytes))
	t.broadcasts.Add(1)
	t.lastBroadcastBytes.Store(uint64(bytes))
}

// RecordTick is called by the tick loop with the iteration's processing
// time and the number of players in the snapshot it broadcast.
func (t *TelemetryCounters) RecordTick(duration time.Duration, players int) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	if players < 0 {
		players = 0
	}
	t.tickDurationMillis.Store(millis)
	t.lastTickPlayers.Store(uint64(players))
	if t.debug {
		fmt.Printf(
			"[telemetry] tick=%dms players=%d bytes=%d totalBytes=%d\n",
			millis,
			players,
			t.lastBroadcastBytes.Load(),
			t.bytesSent.Load(),
		)
	}
}

func (t *TelemetryCounters) DebugEnabled() bool {
	return t.debug
}

func (t *TelemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		BytesSent:       t.bytesSent.Load(),
		Broadcasts:      t.broadcasts.Load(),
		TickDuration:    t.tickDurationMillis.Load(),
		LastTickPlayers: t.lastTickPlayers.Load(),
	}
}
