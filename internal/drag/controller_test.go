package drag

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hylla/tavla/internal/domain"
)

// recordingDispatcher captures dispatched transitions.
type recordingDispatcher struct {
	mu  sync.Mutex
	got []Transition
}

func (r *recordingDispatcher) Dispatch(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, t)
}

func (r *recordingDispatcher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func newMeasuredController(t *testing.T) (*Controller, *recordingDispatcher) {
	t.Helper()
	frame := &BoardFrame{}
	frame.SetOrigin(Point{X: 2, Y: 4})
	rec := &recordingDispatcher{}
	return NewController(frame, rec), rec
}

func moveTransition(taskID string) Transition {
	return Transition{
		TaskID:     taskID,
		PrevStatus: domain.StatusTodo,
		NewStatus:  domain.StatusInProgress,
		PrevOrder:  3,
		NewOrder:   3,
	}
}

func TestControllerHappyPath(t *testing.T) {
	c, rec := newMeasuredController(t)
	ticket, err := c.Begin("t1", nil)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if c.Phase() != PhaseMeasuring {
		t.Fatalf("expected measuring, got %s", c.Phase())
	}
	if _, ok := c.Overlay(); ok {
		t.Fatal("overlay must not mount before measurement resolves")
	}
	if !c.ResolveMeasurement(ticket, Rect{Left: 12, Top: 10, Width: 20, Height: 3}, nil) {
		t.Fatal("expected measurement to make overlay eligible")
	}
	session, ok := c.Overlay()
	if !ok {
		t.Fatal("expected overlay while dragging")
	}
	if session.Origin != (Rect{Left: 10, Top: 6, Width: 20, Height: 3}) {
		t.Fatalf("unexpected board-local origin %#v", session.Origin)
	}
	if !c.Release(ticket, moveTransition("t1")) {
		t.Fatal("expected release to be accepted")
	}
	if c.Phase() != PhaseSettling {
		t.Fatalf("expected settling, got %s", c.Phase())
	}
	if _, ok := c.Overlay(); !ok {
		t.Fatal("expected overlay to stay mounted while settling")
	}
	if rec.count() != 1 {
		t.Fatalf("expected one dispatch, got %d", rec.count())
	}
	if !c.Settled(ticket) {
		t.Fatal("expected settle to finish the session")
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", c.Phase())
	}
	if _, ok := c.Overlay(); ok {
		t.Fatal("overlay must unmount when idle")
	}
}

func TestControllerRejectsSecondStart(t *testing.T) {
	c, _ := newMeasuredController(t)
	first, err := c.Begin("t1", nil)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if _, err := c.Begin("t2", nil); !errors.Is(err, ErrNotIdle) {
		t.Fatalf("expected ErrNotIdle, got %v", err)
	}
	session, ok := c.Active()
	if !ok || session.TaskID != "t1" || session.Ticket != first {
		t.Fatalf("expected first session to survive, got %#v", session)
	}
}

func TestControllerConcurrentStartsYieldOneSession(t *testing.T) {
	for round := 0; round < 20; round++ {
		c, _ := newMeasuredController(t)
		var (
			wg       sync.WaitGroup
			accepted atomic.Int32
		)
		start := make(chan struct{})
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := c.Begin("t", nil); err == nil {
					accepted.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		if got := accepted.Load(); got != 1 {
			t.Fatalf("round %d: expected exactly one accepted start, got %d", round, got)
		}
	}
}

func TestControllerWithoutBoardOriginStillDispatches(t *testing.T) {
	rec := &recordingDispatcher{}
	c := NewController(&BoardFrame{}, rec)
	ticket, err := c.Begin("t1", nil)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if c.Phase() != PhaseDragging {
		t.Fatalf("expected dragging without measurement, got %s", c.Phase())
	}
	if c.NeedsMeasurement(ticket) {
		t.Fatal("expected no measurement without a board origin")
	}
	if _, ok := c.Overlay(); ok {
		t.Fatal("overlay must not mount without a board origin")
	}
	if !c.Release(ticket, moveTransition("t1")) {
		t.Fatal("expected release to be accepted")
	}
	if rec.count() != 1 {
		t.Fatalf("expected transition dispatched, got %d", rec.count())
	}
}

func TestControllerMeasurementFailureDegrades(t *testing.T) {
	c, rec := newMeasuredController(t)
	ticket, _ := c.Begin("t1", nil)
	if c.ResolveMeasurement(ticket, Rect{}, ErrCardUnmounted) {
		t.Fatal("expected failed measurement to leave overlay ineligible")
	}
	if c.Phase() != PhaseDragging {
		t.Fatalf("expected degraded dragging, got %s", c.Phase())
	}
	if _, ok := c.Overlay(); ok {
		t.Fatal("overlay must not mount after a failed measurement")
	}
	c.Release(ticket, moveTransition("t1"))
	if rec.count() != 1 {
		t.Fatalf("expected degraded drag to dispatch, got %d", rec.count())
	}
}

func TestControllerStaleMeasurementAfterRelease(t *testing.T) {
	c, _ := newMeasuredController(t)
	ticket, _ := c.Begin("t1", nil)
	c.Release(ticket, moveTransition("t1"))
	if c.ResolveMeasurement(ticket, Rect{Left: 1, Top: 1, Width: 10, Height: 2}, nil) {
		t.Fatal("expected late measurement to be discarded")
	}
	if c.Phase() != PhaseSettling {
		t.Fatalf("expected settling to be kept, got %s", c.Phase())
	}
	c.Settled(ticket)
	if c.ResolveMeasurement(ticket, Rect{Left: 1, Top: 1, Width: 10, Height: 2}, nil) {
		t.Fatal("expected measurement after idle to be discarded")
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", c.Phase())
	}
	if _, ok := c.Active(); ok {
		t.Fatal("expected no session to be resurrected")
	}
}

func TestControllerStaleTicketFromPreviousSession(t *testing.T) {
	c, rec := newMeasuredController(t)
	old, _ := c.Begin("t1", nil)
	c.Cancel(old)
	current, _ := c.Begin("t2", nil)
	if c.ResolveMeasurement(old, Rect{Width: 1, Height: 1}, nil) {
		t.Fatal("expected old ticket measurement to be ignored")
	}
	if c.Release(old, moveTransition("t1")) {
		t.Fatal("expected old ticket release to be ignored")
	}
	if c.Phase() != PhaseMeasuring {
		t.Fatalf("expected current session untouched, got %s", c.Phase())
	}
	if rec.count() != 0 {
		t.Fatalf("expected no dispatch, got %d", rec.count())
	}
	if !c.Release(current, moveTransition("t2")) {
		t.Fatal("expected current release to be accepted")
	}
}

func TestControllerCancelDoesNotDispatch(t *testing.T) {
	c, rec := newMeasuredController(t)
	ticket, _ := c.Begin("t1", nil)
	c.ResolveMeasurement(ticket, Rect{Width: 10, Height: 2}, nil)
	if !c.Cancel(ticket) {
		t.Fatal("expected cancel to end a dragging session")
	}
	if c.Phase() != PhaseIdle {
		t.Fatalf("expected idle after cancel, got %s", c.Phase())
	}
	if c.Release(ticket, moveTransition("t1")) {
		t.Fatal("expected release after cancel to be ignored")
	}
	if rec.count() != 0 {
		t.Fatalf("expected no dispatch after cancel, got %d", rec.count())
	}
}

func TestControllerFinalizeAfterReleaseIsIdempotent(t *testing.T) {
	c, rec := newMeasuredController(t)
	ticket, _ := c.Begin("t1", nil)
	c.ResolveMeasurement(ticket, Rect{Width: 10, Height: 2}, nil)
	c.Release(ticket, moveTransition("t1"))
	for i := 0; i < 3; i++ {
		if c.Cancel(ticket) {
			t.Fatal("expected cancel after release to be a no-op")
		}
		if c.Release(ticket, moveTransition("t1")) {
			t.Fatal("expected duplicate release to be ignored")
		}
	}
	if rec.count() != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", rec.count())
	}
	if c.Phase() != PhaseSettling {
		t.Fatalf("expected settling to continue, got %s", c.Phase())
	}
}

func TestControllerUnchangedTransitionIsNotDispatched(t *testing.T) {
	c, rec := newMeasuredController(t)
	ticket, _ := c.Begin("t1", nil)
	tr := Transition{TaskID: "t1", PrevStatus: domain.StatusDone, NewStatus: domain.StatusDone, PrevOrder: 1, NewOrder: 1}
	if !c.Release(ticket, tr) {
		t.Fatal("expected release to be accepted")
	}
	if rec.count() != 0 {
		t.Fatalf("expected no-op transition to be dropped, got %d", rec.count())
	}
}

func TestControllerCancelRacesMeasurement(t *testing.T) {
	for round := 0; round < 50; round++ {
		c, rec := newMeasuredController(t)
		ticket, _ := c.Begin("t1", nil)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.ResolveMeasurement(ticket, Rect{Width: 10, Height: 2}, nil)
		}()
		go func() {
			defer wg.Done()
			c.Cancel(ticket)
		}()
		wg.Wait()
		// Cancel is accepted from both measuring and dragging.
		if c.Phase() != PhaseIdle {
			t.Fatalf("round %d: expected idle, got %s", round, c.Phase())
		}
		if _, ok := c.Overlay(); ok {
			t.Fatalf("round %d: expected no overlay", round)
		}
		if rec.count() != 0 {
			t.Fatalf("round %d: expected no dispatch", round)
		}
	}
}

func TestControllerOverlayRequiresKnownFrame(t *testing.T) {
	c, _ := newMeasuredController(t)
	ticket, _ := c.Begin("t1", nil)
	c.ResolveMeasurement(ticket, Rect{Width: 10, Height: 2}, nil)
	c.Frame().Clear()
	if _, ok := c.Overlay(); ok {
		t.Fatal("expected overlay to hide once the board origin is unknown")
	}
	c.Abort()
	if c.Phase() != PhaseIdle {
		t.Fatalf("expected abort to reach idle, got %s", c.Phase())
	}
}

func TestPhaseString(t *testing.T) {
	names := map[Phase]string{
		PhaseIdle:      "idle",
		PhaseMeasuring: "measuring",
		PhaseDragging:  "dragging",
		PhaseSettling:  "settling",
		PhaseCancelled: "cancelled",
		Phase(42):      "unknown",
	}
	for phase, want := range names {
		if phase.String() != want {
			t.Fatalf("Phase(%d).String() = %q, want %q", phase, phase.String(), want)
		}
	}
}
