package server

import "time"

const (
	tickInterval = 50 * time.Millisecond // 20 broadcasts per second

	groundLevel   = -10.0
	worldBoundary = 240.0
	terrainSize   = 500.0

	spawnRange  = 10.0 // x and z drawn uniformly from [-spawnRange, spawnRange]
	spawnHeight = 5.0

	defaultHeight    = 1.8
	defaultHealth    = 100
	defaultAnimation = "Idle"
	defaultViewMode  = "first-person"

	// How long shutdown waits for the tick loop to observe its stop flag
	// before force-cancelling it.
	loopStopTimeout = 2 * time.Second
)

// TickRate reports the broadcast frequency in Hz, for diagnostics.
func TickRate() int {
	return int(time.Second / tickInterval)
}

// TerrainSize reports the static world extent sent to joining clients.
func TerrainSize() float64 {
	return terrainSize
}

