// Package animate drives the pin's radius overlay with a damped spring.
package animate

import (
	"math"
	"time"
)

// SpringConfig holds the physical parameters of a Spring.
type SpringConfig struct {
	Tension   float64
	Friction  float64
	Mass      float64
	Precision float64 // distance and speed below which the spring is at rest
	Clamp     bool    // settle on the target instead of overshooting it
}

// DefaultSpringConfig is the overlay's reveal spring.
var DefaultSpringConfig = SpringConfig{
	Tension:   50,
	Friction:  10,
	Mass:      1,
	Precision: 0.01,
	Clamp:     true,
}

const step = time.Millisecond

// Spring is a damped harmonic oscillator advanced in fixed time steps. It is
// not safe for concurrent use.
type Spring struct {
	cfg      SpringConfig
	value    float64
	velocity float64
	target   float64
	resting  bool
}

// NewSpring creates a spring resting at v.
func NewSpring(v float64, cfg SpringConfig) *Spring {
	if cfg.Mass <= 0 {
		cfg.Mass = 1
	}
	if cfg.Precision <= 0 {
		cfg.Precision = DefaultSpringConfig.Precision
	}
	return &Spring{cfg: cfg, value: v, target: v, resting: true}
}

// Value returns the current position.
func (s *Spring) Value() float64 { return s.value }

// Velocity returns the current speed in units per second.
func (s *Spring) Velocity() float64 { return s.velocity }

// Target returns the position the spring is moving to.
func (s *Spring) Target() float64 { return s.target }

// AtRest reports whether the spring has settled on its target.
func (s *Spring) AtRest() bool { return s.resting }

// TransitionTo sets a new target. Position and velocity carry over, so a
// moving spring bends towards the new target without a jump.
func (s *Spring) TransitionTo(target float64) {
	s.target = target
	s.resting = s.settled()
	if s.resting {
		s.value, s.velocity = target, 0
	}
}

// Snap jumps to v and stops there.
func (s *Spring) Snap(v float64) {
	s.value, s.velocity, s.target = v, 0, v
	s.resting = true
}

// Advance integrates the motion over dt using semi-implicit Euler steps of
// one millisecond. It reports whether the spring is at rest afterwards.
func (s *Spring) Advance(dt time.Duration) bool {
	for dt > 0 && !s.resting {
		h := step
		if dt < h {
			h = dt
		}
		dt -= h
		s.integrate(h.Seconds())
	}
	return s.resting
}

func (s *Spring) integrate(h float64) {
	before := s.value - s.target

	force := -s.cfg.Tension*before - s.cfg.Friction*s.velocity
	s.velocity += force / s.cfg.Mass * h
	s.value += s.velocity * h

	after := s.value - s.target
	crossed := before != 0 && math.Signbit(after) != math.Signbit(before)

	if (s.cfg.Clamp && crossed) || s.settled() {
		s.value, s.velocity = s.target, 0
		s.resting = true
	}
}

func (s *Spring) settled() bool {
	return math.Abs(s.value-s.target) < s.cfg.Precision && math.Abs(s.velocity) < s.cfg.Precision
}
