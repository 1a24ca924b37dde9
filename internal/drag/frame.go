package drag

import "sync"

// Point is a position in cells.
type Point struct {
	X float64
	Y float64
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Rect is a card rectangle in cells.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// BoardFrame holds the board container origin in window coordinates. It is
// recomputed on every layout change of the board and may be unknown before the
// first layout pass.
type BoardFrame struct {
	mu     sync.RWMutex
	origin Point
	known  bool
}

// SetOrigin records the board origin for the current layout pass.
func (f *BoardFrame) SetOrigin(origin Point) {
	f.mu.Lock()
	f.origin = origin
	f.known = true
	f.mu.Unlock()
}

// Clear forgets the origin, e.g. while the board is not laid out.
func (f *BoardFrame) Clear() {
	f.mu.Lock()
	f.origin = Point{}
	f.known = false
	f.mu.Unlock()
}

// Origin returns the board origin and whether it has been measured.
func (f *BoardFrame) Origin() (Point, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.origin, f.known
}

// ToLocal converts a window-space rectangle into board-local coordinates. It
// reports false when the origin is unknown.
func (f *BoardFrame) ToLocal(window Rect) (Rect, bool) {
	origin, ok := f.Origin()
	if !ok {
		return Rect{}, false
	}
	return Rect{
		Left:   window.Left - origin.X,
		Top:    window.Top - origin.Y,
		Width:  window.Width,
		Height: window.Height,
	}, true
}

// ToWindow converts a board-local point back into window coordinates.
func (f *BoardFrame) ToWindow(local Point) (Point, bool) {
	origin, ok := f.Origin()
	if !ok {
		return Point{}, false
	}
	return Point{X: local.X + origin.X, Y: local.Y + origin.Y}, true
}
