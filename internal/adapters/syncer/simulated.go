// Package syncer holds the external collaborators that receive store
// snapshots after every committed change.
package syncer

import (
	"context"
	"time"

	"github.com/hylla/tavla/internal/app"
)

// DefaultSimulatedDelay is the round trip of the simulated server.
const DefaultSimulatedDelay = 1500 * time.Millisecond

// Simulated acknowledges a push after a fixed delay and echoes it back.
type Simulated struct {
	delay time.Duration
}

// NewSimulated constructs a simulated sync server. A non-positive delay uses
// DefaultSimulatedDelay.
func NewSimulated(delay time.Duration) *Simulated {
	if delay <= 0 {
		delay = DefaultSimulatedDelay
	}
	return &Simulated{delay: delay}
}

// Push waits for the configured delay and returns snap.
func (s *Simulated) Push(ctx context.Context, snap app.Snapshot) (app.Snapshot, error) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return app.Snapshot{}, ctx.Err()
	case <-timer.C:
		return snap, nil
	}
}
