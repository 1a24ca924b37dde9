// Package drag implements the card drag subsystem: gesture sampling, the shared
// motion vector, board-local coordinate conversion, the status transition policy
// and the single-session drag controller.
package drag

import "sync"

// Vector is the live transform of a dragged card in cells plus a scale factor.
type Vector struct {
	DX    float64
	DY    float64
	Scale float64
}

// Identity is the resting transform.
var Identity = Vector{Scale: 1}

// IsIdentity reports whether v is within eps of the resting transform.
func (v Vector) IsIdentity(eps float64) bool {
	return abs(v.DX) <= eps && abs(v.DY) <= eps && abs(v.Scale-1) <= eps
}

// MotionState is a mutable cell shared by the sampling path (writer) and the
// renderer (reader). Writes bump a version so readers can skip unchanged frames.
// It never touches application state.
type MotionState struct {
	mu      sync.RWMutex
	v       Vector
	version uint64
}

// NewMotionState returns a cell holding the identity transform.
func NewMotionState() *MotionState {
	return &MotionState{v: Identity}
}

// Translate sets the running translation.
func (m *MotionState) Translate(dx, dy float64) {
	m.mu.Lock()
	m.v.DX = dx
	m.v.DY = dy
	m.version++
	m.mu.Unlock()
}

// SetScale sets the scale factor.
func (m *MotionState) SetScale(scale float64) {
	m.mu.Lock()
	m.v.Scale = scale
	m.version++
	m.mu.Unlock()
}

// Store replaces the whole vector.
func (m *MotionState) Store(v Vector) {
	m.mu.Lock()
	m.v = v
	m.version++
	m.mu.Unlock()
}

// Reset snaps the cell back to the identity transform.
func (m *MotionState) Reset() {
	m.Store(Identity)
}

// Load returns the current vector.
func (m *MotionState) Load() Vector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.v
}

// Version returns a counter incremented on every write.
func (m *MotionState) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
