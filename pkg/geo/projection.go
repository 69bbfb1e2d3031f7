package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"
	"gonum.org/v1/gonum/spatial/r2"
)

// Map zoom bounds used by the front-end map.
const (
	MinZoom     = 10.0
	MaxZoom     = 19.0
	InitialZoom = 12.0

	// TileSize is the edge length of a Web-Mercator tile in pixels
	TileSize = 256.0

	// eastBearing is the reference bearing used to lay out the ground distance
	eastBearing = 90.0
)

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Destination returns the point reached by travelling meters from "from"
// along the given bearing (degrees clockwise from north).
func Destination(from Location, bearing, meters float64) Location {
	p := orbgeo.PointAtBearingAndDistance(orb.Point{from.Lng, from.Lat}, bearing, meters)
	return Location{Lat: p.Lat(), Lng: p.Lon()}
}

// Project converts a location to absolute EPSG:3857 pixel coordinates at the
// given zoom level, with the origin at the top-left corner of the world.
func Project(loc Location, zoom float64) r2.Vec {
	m := project.WGS84.ToMercator(orb.Point{loc.Lng, loc.Lat})
	scale := TileSize * math.Pow(2, zoom)
	k := 0.5 / (math.Pi * orb.EarthRadius)
	return r2.Vec{
		X: scale * (k*m[0] + 0.5),
		Y: scale * (-k*m[1] + 0.5),
	}
}

// MetersToPixels returns the on-screen length in pixels of a ground distance
// measured eastwards from center, at the given zoom. The scale is re-derived
// per zoom from two projected points rather than applied as a constant factor.
func MetersToPixels(center Location, zoom, meters float64) float64 {
	if meters <= 0 {
		return 0
	}
	p1 := Project(center, zoom)
	p2 := Project(Destination(center, eastBearing, meters), zoom)
	return r2.Norm(r2.Sub(p2, p1))
}

// Projector tracks the map's current center and zoom and converts ground
// distances to pixels for that view.
type Projector struct {
	center Location
	zoom   float64
}

// NewProjector creates a projector for the given view. The zoom is clamped.
func NewProjector(center Location, zoom float64) *Projector {
	return &Projector{center: center, zoom: ClampZoom(zoom)}
}

// Center returns the current map center
func (p *Projector) Center() Location { return p.center }

// Zoom returns the current zoom level
func (p *Projector) Zoom() float64 { return p.zoom }

// SetCenter moves the map center.
func (p *Projector) SetCenter(center Location) { p.center = center }

// SetZoom changes the zoom level, clamped to the map bounds. It reports
// whether the zoom actually changed.
func (p *Projector) SetZoom(zoom float64) bool {
	z := ClampZoom(zoom)
	if z == p.zoom {
		return false
	}
	p.zoom = z
	return true
}

// Pixels converts meters to pixels for the current view.
func (p *Projector) Pixels(meters float64) float64 {
	return MetersToPixels(p.center, p.zoom, meters)
}
