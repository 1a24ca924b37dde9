package drag

import (
	"time"

	"github.com/charmbracelet/harmonica"
)

// SpringConfig tunes a damped spring.
type SpringConfig struct {
	FPS       int
	Frequency float64
	Damping   float64
}

// LiftSpring is the pick-up scale spring.
func LiftSpring() SpringConfig {
	return SpringConfig{FPS: 60, Frequency: 14.1, Damping: 0.53}
}

// SettleSpring is the release spring back to rest.
func SettleSpring() SpringConfig {
	return SpringConfig{FPS: 60, Frequency: 12.2, Damping: 0.61}
}

// settleEpsilon is the distance and velocity below which a spring snaps to its target.
const settleEpsilon = 0.01

// Animation drives a MotionState toward a target with a damped spring, one
// frame per Step. A scale-only animation leaves the translation untouched so it
// can run while the sampler is writing it.
type Animation struct {
	ticket    Ticket
	motion    *MotionState
	target    Vector
	translate bool
	spring    harmonica.Spring
	interval  time.Duration
	vel       Vector
	done      bool
}

// NewLift animates the scale toward scale while the pointer keeps the translation.
func NewLift(t Ticket, motion *MotionState, scale float64, cfg SpringConfig) *Animation {
	return newAnimation(t, motion, Vector{Scale: scale}, false, cfg)
}

// NewSettle animates the whole transform back to Identity.
func NewSettle(t Ticket, motion *MotionState, cfg SpringConfig) *Animation {
	return newAnimation(t, motion, Identity, true, cfg)
}

func newAnimation(t Ticket, motion *MotionState, target Vector, translate bool, cfg SpringConfig) *Animation {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = SettleSpring().Frequency
	}
	if cfg.Damping <= 0 {
		cfg.Damping = SettleSpring().Damping
	}
	return &Animation{
		ticket:    t,
		motion:    motion,
		target:    target,
		translate: translate,
		spring:    harmonica.NewSpring(harmonica.FPS(cfg.FPS), cfg.Frequency, cfg.Damping),
		interval:  time.Second / time.Duration(cfg.FPS),
	}
}

// Ticket returns the session the animation belongs to.
func (a *Animation) Ticket() Ticket {
	return a.ticket
}

// Settling reports whether this animation returns the card to rest.
func (a *Animation) Settling() bool {
	return a.translate
}

// Interval returns the frame duration.
func (a *Animation) Interval() time.Duration {
	return a.interval
}

// Done reports whether the target has been reached.
func (a *Animation) Done() bool {
	return a.done
}

// Step advances one frame and reports whether the animation has finished.
func (a *Animation) Step() bool {
	if a.done {
		return true
	}
	cur := a.motion.Load()
	if !a.translate {
		var scale float64
		scale, a.vel.Scale = a.spring.Update(cur.Scale, a.vel.Scale, a.target.Scale)
		if near(scale, a.target.Scale, a.vel.Scale) {
			scale = a.target.Scale
			a.done = true
		}
		a.motion.SetScale(scale)
		return a.done
	}

	var next Vector
	next.DX, a.vel.DX = a.spring.Update(cur.DX, a.vel.DX, a.target.DX)
	next.DY, a.vel.DY = a.spring.Update(cur.DY, a.vel.DY, a.target.DY)
	next.Scale, a.vel.Scale = a.spring.Update(cur.Scale, a.vel.Scale, a.target.Scale)
	if near(next.DX, a.target.DX, a.vel.DX) && near(next.DY, a.target.DY, a.vel.DY) && near(next.Scale, a.target.Scale, a.vel.Scale) {
		next = a.target
		a.done = true
	}
	a.motion.Store(next)
	return a.done
}

func near(pos, target, vel float64) bool {
	return abs(pos-target) < settleEpsilon && abs(vel) < settleEpsilon
}
