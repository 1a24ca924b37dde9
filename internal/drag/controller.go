package drag

import (
	"errors"
	"io"
	"sync"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/tavla/internal/domain"
)

// ErrNotIdle and related errors describe rejected controller requests.
var (
	ErrNotIdle       = errors.New("drag session already active")
	ErrCardUnmounted = errors.New("card is not mounted")
)

// Phase is the controller state.
type Phase int

// Controller phases. PhaseCancelled is transient and always collapses to PhaseIdle.
const (
	PhaseIdle Phase = iota
	PhaseMeasuring
	PhaseDragging
	PhaseSettling
	PhaseCancelled
)

// String returns a readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseMeasuring:
		return "measuring"
	case PhaseDragging:
		return "dragging"
	case PhaseSettling:
		return "settling"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Ticket identifies one drag session. Async callbacks carry the ticket they were
// issued for so late arrivals can be told apart from the live session.
type Ticket uint64

// Transition is the discrete result of a completed drag.
type Transition struct {
	TaskID     string
	PrevStatus domain.TaskStatus
	NewStatus  domain.TaskStatus
	PrevOrder  int
	NewOrder   int
}

// Changed reports whether applying the transition would alter the task.
func (t Transition) Changed() bool {
	return t.PrevStatus != t.NewStatus || t.PrevOrder != t.NewOrder
}

// Dispatcher receives completed transitions on behalf of the task store.
type Dispatcher interface {
	Dispatch(Transition)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(Transition)

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(t Transition) {
	f(t)
}

// Session is the record of the one in-flight drag.
type Session struct {
	Ticket    Ticket
	TaskID    string
	Origin    Rect
	HasOrigin bool
	Motion    *MotionState
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger routes controller diagnostics to logger.
func WithLogger(logger *charmLog.Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller owns the single drag session of a board.
//
// idle -> measuring -> dragging -> settling -> idle
// measuring|dragging -> cancelled -> idle
//
// Every entry point is safe for concurrent use and treats a call that does not
// match the current phase and ticket as a no-op.
type Controller struct {
	mu       sync.Mutex
	frame    *BoardFrame
	dispatch Dispatcher
	logger   *charmLog.Logger

	phase   Phase
	seq     Ticket
	session *Session
}

// NewController builds a controller bound to one board frame.
func NewController(frame *BoardFrame, dispatch Dispatcher, opts ...ControllerOption) *Controller {
	if frame == nil {
		frame = &BoardFrame{}
	}
	if dispatch == nil {
		dispatch = DispatcherFunc(func(Transition) {})
	}
	c := &Controller{
		frame:    frame,
		dispatch: dispatch,
		logger:   charmLog.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Frame returns the board frame used for coordinate conversion.
func (c *Controller) Frame() *BoardFrame {
	return c.frame
}

// Begin starts a session for taskID. A request while any session is live is
// rejected with ErrNotIdle. When the board origin is unknown there is nothing
// to measure and the session goes straight to dragging without an overlay.
func (c *Controller) Begin(taskID string, motion *MotionState) (Ticket, error) {
	if motion == nil {
		motion = NewMotionState()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		c.logger.Debug("drag start ignored", "task_id", taskID, "phase", c.phase)
		return 0, ErrNotIdle
	}
	c.seq++
	c.session = &Session{Ticket: c.seq, TaskID: taskID, Motion: motion}
	if _, ok := c.frame.Origin(); ok {
		c.phase = PhaseMeasuring
	} else {
		c.phase = PhaseDragging
		c.logger.Debug("board origin unknown, dragging without overlay", "task_id", taskID)
	}
	c.logger.Debug("drag session started", "task_id", taskID, "ticket", c.seq, "phase", c.phase)
	return c.seq, nil
}

// NeedsMeasurement reports whether the session for t is waiting on a layout
// measurement.
func (c *Controller) NeedsMeasurement(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live(t) && c.phase == PhaseMeasuring
}

// ResolveMeasurement completes the measuring phase with the card rectangle in
// window coordinates. A failed or unusable measurement keeps the drag alive in
// degraded mode without an overlay. It reports whether the overlay became
// eligible; late or foreign results are discarded.
func (c *Controller) ResolveMeasurement(t Ticket, window Rect, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(t) || c.phase != PhaseMeasuring {
		c.logger.Debug("stale measurement discarded", "ticket", t, "phase", c.phase)
		return false
	}
	c.phase = PhaseDragging
	if err != nil || window.Empty() {
		c.logger.Debug("measurement unavailable, dragging without overlay", "task_id", c.session.TaskID, "err", err)
		return false
	}
	local, ok := c.frame.ToLocal(window)
	if !ok {
		c.logger.Debug("board origin lost before measurement resolved", "task_id", c.session.TaskID)
		return false
	}
	c.session.Origin = local
	c.session.HasOrigin = true
	return true
}

// Release ends the gesture for t and hands the transition to the dispatcher
// when it changes the task. Only the first release of a session counts.
func (c *Controller) Release(t Ticket, tr Transition) bool {
	c.mu.Lock()
	if !c.live(t) || (c.phase != PhaseMeasuring && c.phase != PhaseDragging) {
		c.mu.Unlock()
		c.logger.Debug("drag release ignored", "ticket", t, "phase", c.phase)
		return false
	}
	c.phase = PhaseSettling
	c.mu.Unlock()

	if tr.Changed() {
		c.logger.Debug("dispatching status transition", "task_id", tr.TaskID, "from", tr.PrevStatus, "to", tr.NewStatus)
		c.dispatch.Dispatch(tr)
	}
	return true
}

// Settled tears down a settling session once its spring-back has finished.
func (c *Controller) Settled(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(t) || c.phase != PhaseSettling {
		return false
	}
	c.reset()
	return true
}

// Cancel aborts a measuring or dragging session without dispatching anything.
// It is a no-op once the session has been released or has ended.
func (c *Controller) Cancel(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.live(t) || (c.phase != PhaseMeasuring && c.phase != PhaseDragging) {
		return false
	}
	c.phase = PhaseCancelled
	c.logger.Debug("drag session cancelled", "task_id", c.session.TaskID, "ticket", t)
	c.reset()
	return true
}

// Abort cancels whatever session is live, used when the board layout is torn
// down underneath it. Settling sessions are finished immediately.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseIdle {
		return
	}
	c.reset()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Active returns a copy of the live session, if any.
func (c *Controller) Active() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Overlay returns the session the overlay should render. It is present only
// while dragging or settling with a captured origin and a known board origin.
func (c *Controller) Overlay() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || !c.session.HasOrigin {
		return Session{}, false
	}
	if c.phase != PhaseDragging && c.phase != PhaseSettling {
		return Session{}, false
	}
	if _, ok := c.frame.Origin(); !ok {
		return Session{}, false
	}
	return *c.session, true
}

// live reports whether t names the current session. Callers hold c.mu.
func (c *Controller) live(t Ticket) bool {
	return t != 0 && c.session != nil && c.session.Ticket == t
}

// reset returns to idle. Callers hold c.mu.
func (c *Controller) reset() {
	c.phase = PhaseIdle
	c.session = nil
}
