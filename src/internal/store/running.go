// FILE: logmonitor/src/internal/store/running.go
package store

import "time"

const (
	// RunningBins is the number of slots in the sliding window
	RunningBins = 10
	// TickInterval is the period at which the window advances
	TickInterval = 500 * time.Millisecond
)

// RunningCount is a circular histogram of recent events over RunningBins ticks.
// The total always equals the sum of the bins.
type RunningCount struct {
	bins  [RunningBins]int
	bin   int
	count int
}

// Add records one event in the current slot
func (r *RunningCount) Add() {
	r.bins[r.bin]++
	r.count++
}

// Update advances the window by one slot and forgets the slot it lands on
func (r *RunningCount) Update() {
	r.bin = (r.bin + 1) % RunningBins
	r.count -= r.bins[r.bin]
	r.bins[r.bin] = 0
}

// Get returns the number of events inside the window
func (r *RunningCount) Get() int {
	return r.count
}
