package drag

import (
	"math"

	"github.com/hylla/tavla/internal/domain"
)

// SamplerConfig tunes gesture recognition. Distances are in units; pointer
// positions arrive in cells and are scaled per axis.
type SamplerConfig struct {
	TapMaxDistance float64
	PanMinDistance float64
	UnitsPerCellX  float64
	UnitsPerCellY  float64
	LiftScale      float64
	Lift           SpringConfig
	Settle         SpringConfig
}

// DefaultSamplerConfig returns the stock gesture tuning.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		TapMaxDistance: 10,
		PanMinDistance: 8,
		UnitsPerCellX:  8,
		UnitsPerCellY:  16,
		LiftScale:      1.05,
		Lift:           LiftSpring(),
		Settle:         SettleSpring(),
	}
}

// Card is the slice of a task a sampler needs.
type Card struct {
	TaskID string
	Status domain.TaskStatus
	Order  int
}

// EffectKind names work the host must schedule for a sampler.
type EffectKind int

// EffectKind values.
const (
	// EffectMeasure asks the host to measure the card asynchronously and report
	// back through Controller.ResolveMeasurement.
	EffectMeasure EffectKind = iota + 1
	// EffectAnimate asks the host to drive Effect.Animation frame by frame.
	EffectAnimate
	// EffectTap asks the host to run the card press action.
	EffectTap
)

// Effect is one piece of follow-up work produced by a sampler event.
type Effect struct {
	Kind      EffectKind
	Ticket    Ticket
	TaskID    string
	Animation *Animation
}

type gestureState int

const (
	gesturePending gestureState = iota
	gesturePanning
	gestureRejected
	gestureDone
)

// Sampler recognizes a tap or a pan on one card. The two race: movement past
// the pan distance starts a drag and forfeits the tap, a release inside the tap
// distance is a press. Move only writes the motion vector; discrete work comes
// back as Effects.
type Sampler struct {
	cfg    SamplerConfig
	policy Policy
	ctrl   *Controller
	card   Card
	motion *MotionState

	state  gestureState
	start  Point
	last   Point
	ticket Ticket
}

// NewSampler binds a sampler to card. The sampler starts pending until Press.
func NewSampler(ctrl *Controller, card Card, cfg SamplerConfig, policy Policy) *Sampler {
	if cfg.UnitsPerCellX <= 0 {
		cfg.UnitsPerCellX = 1
	}
	if cfg.UnitsPerCellY <= 0 {
		cfg.UnitsPerCellY = 1
	}
	if cfg.LiftScale <= 0 {
		cfg.LiftScale = 1
	}
	return &Sampler{
		cfg:    cfg,
		policy: policy,
		ctrl:   ctrl,
		card:   card,
		motion: NewMotionState(),
		state:  gestureDone,
	}
}

// Card returns the bound card.
func (s *Sampler) Card() Card {
	return s.card
}

// Motion returns the motion cell this sampler writes.
func (s *Sampler) Motion() *MotionState {
	return s.motion
}

// Ticket returns the controller ticket once a pan has been accepted.
func (s *Sampler) Ticket() Ticket {
	return s.ticket
}

// Panning reports whether this sampler owns the live drag.
func (s *Sampler) Panning() bool {
	return s.state == gesturePanning
}

// Press records the pointer-down position in window cells.
func (s *Sampler) Press(p Point) {
	s.state = gesturePending
	s.start = p
	s.last = p
	s.ticket = 0
}

// Move samples a pointer position. The first movement past the pan distance
// starts the drag; later movements only update the motion vector.
func (s *Sampler) Move(p Point) []Effect {
	s.last = p
	delta := p.Sub(s.start)
	switch s.state {
	case gesturePending:
		if s.travel(delta) <= s.cfg.PanMinDistance {
			return nil
		}
		return s.beginPan(delta)
	case gesturePanning:
		s.motion.Translate(delta.X, delta.Y)
	}
	return nil
}

// Release ends the gesture at p. A pan resolves its transition through the
// policy and the controller; a short press resolves to a tap.
func (s *Sampler) Release(p Point) []Effect {
	s.last = p
	delta := p.Sub(s.start)
	switch s.state {
	case gesturePending:
		s.state = gestureDone
		if s.travel(delta) > s.cfg.TapMaxDistance {
			return nil
		}
		return []Effect{{Kind: EffectTap, TaskID: s.card.TaskID}}
	case gesturePanning:
		s.state = gestureDone
		s.motion.Translate(delta.X, delta.Y)
		next := s.policy.Next(s.card.Status, s.units(delta))
		s.ctrl.Release(s.ticket, Transition{
			TaskID:     s.card.TaskID,
			PrevStatus: s.card.Status,
			NewStatus:  next,
			PrevOrder:  s.card.Order,
			NewOrder:   s.card.Order,
		})
		return []Effect{s.settle()}
	default:
		s.state = gestureDone
		return nil
	}
}

// Finalize runs when the gesture is torn down without a release, e.g. a
// competing input. It cancels an unreleased pan and springs the card back. It
// is a no-op after Release.
func (s *Sampler) Finalize() []Effect {
	switch s.state {
	case gesturePanning:
		s.state = gestureDone
		s.ctrl.Cancel(s.ticket)
		return []Effect{s.settle()}
	default:
		s.state = gestureDone
		return nil
	}
}

// Displacement returns the last sampled movement in units.
func (s *Sampler) Displacement() Point {
	return s.units(s.last.Sub(s.start))
}

func (s *Sampler) beginPan(delta Point) []Effect {
	ticket, err := s.ctrl.Begin(s.card.TaskID, s.motion)
	if err != nil {
		s.state = gestureRejected
		return nil
	}
	s.state = gesturePanning
	s.ticket = ticket
	s.motion.Translate(delta.X, delta.Y)
	effects := []Effect{{
		Kind:      EffectAnimate,
		Ticket:    ticket,
		TaskID:    s.card.TaskID,
		Animation: NewLift(ticket, s.motion, s.cfg.LiftScale, s.cfg.Lift),
	}}
	if s.ctrl.NeedsMeasurement(ticket) {
		effects = append(effects, Effect{Kind: EffectMeasure, Ticket: ticket, TaskID: s.card.TaskID})
	}
	return effects
}

func (s *Sampler) settle() Effect {
	return Effect{
		Kind:      EffectAnimate,
		Ticket:    s.ticket,
		TaskID:    s.card.TaskID,
		Animation: NewSettle(s.ticket, s.motion, s.cfg.Settle),
	}
}

func (s *Sampler) units(delta Point) Point {
	return Point{X: delta.X * s.cfg.UnitsPerCellX, Y: delta.Y * s.cfg.UnitsPerCellY}
}

func (s *Sampler) travel(delta Point) float64 {
	u := s.units(delta)
	return math.Hypot(u.X, u.Y)
}
