// Package state holds the session's single source of truth and the pure
// transition function that is the only way to change it.
package state

import (
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/property"
)

// State is an immutable snapshot. Transitions build a new State rather than
// mutating fields of an existing one.
type State struct {
	Location           *geo.Location                `json:"location"`
	SelectedItem       *property.SelectedItem       `json:"selectedItem"`
	ProvidedAttributes *property.ProvidedAttributes `json:"providedAttributes"`
	Prediction         *property.Prediction         `json:"prediction"`
}

// Initial returns the starting state with the pin at loc.
func Initial(loc *geo.Location) State {
	return State{Location: loc}
}

// Reduce applies a to s. It performs no I/O. initial is the state that
// Reset returns to.
func Reduce(initial, s State, a Action) State {
	switch a := a.(type) {
	case SetLocation:
		if geo.Equal(s.Location, a.Location) {
			return s
		}
		return State{Location: a.Location}
	case SetSelectedItem:
		s.SelectedItem = a.Item
		s.ProvidedAttributes = nil
		s.Prediction = nil
		return s
	case SetProvidedAttributes:
		s.ProvidedAttributes = a.Attributes
		return s
	case SetBuildingAge:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.ConstructionAge = &a.Years })
	case SetPropertyType:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.PropertyType = &a.Type })
	case SetTenure:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.Duration = &a.Tenure })
	case SetFloorLevel:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.FloorLevel = &a.Level })
	case SetBedrooms:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.BedroomsMin = &a.Count })
	case SetBathrooms:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.BathroomsMin = &a.Count })
	case SetReceptions:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.ReceptionsMin = &a.Count })
	case SetGarage:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.Garage = &a.Value })
	case SetAuction:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.Auction = &a.Value })
	case SetSharedOwnership:
		return withAttr(s, func(p *property.ProvidedAttributes) { p.SharedOwnership = &a.Value })
	case SetPrediction:
		s.Prediction = a.Prediction
		return s
	case Reset:
		return initial
	default:
		return s
	}
}

// withAttr merges one field into a copy of the provided attributes.
func withAttr(s State, set func(*property.ProvidedAttributes)) State {
	p := s.ProvidedAttributes.Clone()
	set(p)
	s.ProvidedAttributes = p
	return s
}
