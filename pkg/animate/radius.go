package animate

import (
	"time"

	"github.com/NERVsystems/ipredict/pkg/geo"
)

// AreaRadiusMeters is the ground radius of the overlay: half a mile, about
// ten minutes on foot.
const AreaRadiusMeters = 804.0

// RadiusAnimator keeps the overlay's pixel radius in step with the pin and
// the map view. It reads the pin location and zoom and never writes state.
type RadiusAnimator struct {
	projector *geo.Projector
	meters    float64
	spring    *Spring
	location  *geo.Location
}

// NewRadiusAnimator creates an animator for a circle of meters on the ground.
func NewRadiusAnimator(projector *geo.Projector, meters float64, cfg SpringConfig) *RadiusAnimator {
	return &RadiusAnimator{
		projector: projector,
		meters:    meters,
		spring:    NewSpring(0, cfg),
	}
}

// SetLocation reacts to the pin moving. A newly placed or moved pin restarts
// the reveal from zero; a removed pin shrinks the radius back to zero.
func (a *RadiusAnimator) SetLocation(loc *geo.Location) {
	if geo.Equal(a.location, loc) {
		return
	}
	a.location = loc

	if loc == nil {
		a.spring.TransitionTo(0)
		return
	}
	a.spring.Snap(0)
	a.spring.TransitionTo(a.projector.Pixels(a.meters))
}

// SetZoom reacts to a zoom change. While a pin is shown, the radius moves
// smoothly from its current value to the extent at the new zoom.
func (a *RadiusAnimator) SetZoom(zoom float64) {
	if a.projector.SetZoom(zoom) {
		a.retarget()
	}
}

// SetView updates both the map center and zoom.
func (a *RadiusAnimator) SetView(center geo.Location, zoom float64) {
	a.projector.SetCenter(center)
	a.projector.SetZoom(zoom)
	a.retarget()
}

func (a *RadiusAnimator) retarget() {
	if a.location == nil {
		return
	}
	a.spring.TransitionTo(a.projector.Pixels(a.meters))
}

// Advance moves the animation forward by dt and reports whether it is at rest.
func (a *RadiusAnimator) Advance(dt time.Duration) bool { return a.spring.Advance(dt) }

// Radius returns the current pixel radius.
func (a *RadiusAnimator) Radius() float64 { return a.spring.Value() }

// Target returns the pixel radius the animation is heading to.
func (a *RadiusAnimator) Target() float64 { return a.spring.Target() }

// AtRest reports whether the radius has settled.
func (a *RadiusAnimator) AtRest() bool { return a.spring.AtRest() }

// Zoom returns the current map zoom.
func (a *RadiusAnimator) Zoom() float64 { return a.projector.Zoom() }

// Center returns the current map center.
func (a *RadiusAnimator) Center() geo.Location { return a.projector.Center() }
