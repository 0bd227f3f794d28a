package detector

import "sync/atomic"

// tickGuard provides non-blocking re-entrancy detection for poll ticks.
// A tick that finds the guard held is skipped wholesale rather than queued.
type tickGuard struct {
	busy atomic.Bool
}

// TryAcquire attempts to acquire the guard without blocking.
// Returns true if the guard was successfully acquired, false otherwise.
func (g *tickGuard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release releases the guard.
// Must only be called by the goroutine that successfully acquired it.
func (g *tickGuard) Release() {
	g.busy.Store(false)
}
