package timectrl

import (
	"context"
	"sync"
	"time"
)

// Mode describes how the TimeController advances epochs.
type Mode int

const (
	// RealTime waits one wall-clock Tick between steps.
	RealTime Mode = iota
	// Accelerated steps as fast as listeners return.
	Accelerated
)

func (m Mode) String() string {
	if m == RealTime {
		return "realtime"
	}
	return "accelerated"
}

// TimeController steps through epochs from StartTime by Tick and notifies
// registered listeners at every step, including the start epoch.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	current Epoch

	listeners []func(Epoch) error
}

// NewTimeController constructs a controller positioned at start.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime: start,
		Tick:      tick,
		Mode:      mode,
		current:   FromTime(start),
	}
}

// Now returns the epoch of the last step.
func (tc *TimeController) Now() Epoch {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// AddListener registers a callback invoked at every step. A listener error
// stops the run and is returned from Run.
func (tc *TimeController) AddListener(fn func(Epoch) error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Run steps from StartTime to StartTime+span inclusive. A non-positive Tick
// yields a single step at StartTime.
func (tc *TimeController) Run(ctx context.Context, span time.Duration) error {
	tc.mu.RLock()
	listeners := append([]func(Epoch) error(nil), tc.listeners...)
	tc.mu.RUnlock()

	var ticker *time.Ticker
	if tc.Mode == RealTime && tc.Tick > 0 {
		ticker = time.NewTicker(tc.Tick)
		defer ticker.Stop()
	}

	for elapsed := time.Duration(0); elapsed <= span; elapsed += tc.Tick {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ticker != nil && elapsed > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		epoch := FromTime(tc.StartTime.Add(elapsed))
		tc.mu.Lock()
		tc.current = epoch
		tc.mu.Unlock()

		for _, fn := range listeners {
			if err := fn(epoch); err != nil {
				return err
			}
		}
		if tc.Tick <= 0 {
			return nil
		}
	}
	return nil
}
