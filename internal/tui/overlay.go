package tui

import (
	"math"

	"charm.land/lipgloss/v2"
	"github.com/hylla/tavla/internal/domain"
	"github.com/hylla/tavla/internal/drag"
)

// overlayZ keeps the floating card above the board but below modals.
const overlayZ = 20

// overlayRenderer draws the floating card for the live drag session. It only
// reads the session and its motion cell.
type overlayRenderer struct {
	cards *cardCache
}

// placement is where the floating card lands on screen.
type placement struct {
	X     int
	Y     int
	Width int
}

// place computes the window position of the overlay: board origin plus the
// captured board-local origin plus the live motion translation. Scale widens
// the card around its center; rows stay whole.
func (r overlayRenderer) place(origin drag.Point, session drag.Session, screenW, screenH int) placement {
	v := session.Motion.Load()
	w := int(math.Round(session.Origin.Width * v.Scale))
	w = max(w, int(session.Origin.Width))
	x := origin.X + session.Origin.Left + v.DX - float64(w-int(session.Origin.Width))/2
	y := origin.Y + session.Origin.Top + v.DY
	return placement{
		X:     clamp(int(math.Round(x)), 0, max(0, screenW-w)),
		Y:     clamp(int(math.Round(y)), 0, max(0, screenH-cardHeight)),
		Width: w,
	}
}

// compose layers the floating card for task over base.
func (r overlayRenderer) compose(base string, origin drag.Point, session drag.Session, task domain.Task, screenW, screenH int) string {
	if session.Motion == nil || screenW <= 0 || screenH <= 0 {
		return base
	}
	p := r.place(origin, session, screenW, screenH)
	card := r.cards.render(task, p.Width, cardLifted)
	return composeLayers(screenW, screenH,
		lipgloss.NewLayer(base),
		lipgloss.NewLayer(card).X(p.X).Y(p.Y).Z(overlayZ),
	)
}

// composeLayers draws layers in z order onto a width x height canvas. Each
// layer only paints its own bounds.
func composeLayers(width, height int, layers ...*lipgloss.Layer) string {
	return lipgloss.NewCanvas(width, height).Compose(lipgloss.NewCompositor(layers...)).Render()
}
