package state

import (
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/property"
)

// Action is a named state transition. The set of actions is closed; Reduce
// handles every one of them.
type Action interface {
	// Name identifies the transition in logs and metrics.
	Name() string
	action()
}

// SetLocation moves the pin. A nil Location removes it.
type SetLocation struct{ Location *geo.Location }

// SetSelectedItem replaces the selected property.
type SetSelectedItem struct{ Item *property.SelectedItem }

// SetProvidedAttributes replaces all user-entered details at once.
type SetProvidedAttributes struct{ Attributes *property.ProvidedAttributes }

// SetBuildingAge records the building age in years.
type SetBuildingAge struct{ Years int }

// SetPropertyType records the property type code (D, S, T, F or O).
type SetPropertyType struct{ Type string }

// SetTenure records the tenure code (F or L).
type SetTenure struct{ Tenure string }

// SetFloorLevel records the floor level band.
type SetFloorLevel struct{ Level string }

// SetBedrooms records the minimum number of bedrooms.
type SetBedrooms struct{ Count int }

// SetBathrooms records the minimum number of bathrooms.
type SetBathrooms struct{ Count int }

// SetReceptions records the minimum number of reception rooms.
type SetReceptions struct{ Count int }

// SetGarage records whether the property has a garage.
type SetGarage struct{ Value bool }

// SetAuction records whether the property is sold at auction.
type SetAuction struct{ Value bool }

// SetSharedOwnership records whether the property is shared ownership.
type SetSharedOwnership struct{ Value bool }

// SetPrediction stores the latest model output. Nil clears it.
type SetPrediction struct{ Prediction *property.Prediction }

// Reset returns the store to its initial state.
type Reset struct{}

func (SetLocation) Name() string           { return "set_location" }
func (SetSelectedItem) Name() string       { return "set_selected_item" }
func (SetProvidedAttributes) Name() string { return "set_provided_attributes" }
func (SetBuildingAge) Name() string        { return "set_building_age" }
func (SetPropertyType) Name() string       { return "set_property_type" }
func (SetTenure) Name() string             { return "set_tenure" }
func (SetFloorLevel) Name() string         { return "set_floor_level" }
func (SetBedrooms) Name() string           { return "set_bedrooms" }
func (SetBathrooms) Name() string          { return "set_bathrooms" }
func (SetReceptions) Name() string         { return "set_receptions" }
func (SetGarage) Name() string             { return "set_garage" }
func (SetAuction) Name() string            { return "set_auction" }
func (SetSharedOwnership) Name() string    { return "set_shared_ownership" }
func (SetPrediction) Name() string         { return "set_prediction" }
func (Reset) Name() string                 { return "reset" }

func (SetLocation) action()           {}
func (SetSelectedItem) action()       {}
func (SetProvidedAttributes) action() {}
func (SetBuildingAge) action()        {}
func (SetPropertyType) action()       {}
func (SetTenure) action()             {}
func (SetFloorLevel) action()         {}
func (SetBedrooms) action()           {}
func (SetBathrooms) action()          {}
func (SetReceptions) action()         {}
func (SetGarage) action()             {}
func (SetAuction) action()            {}
func (SetSharedOwnership) action()    {}
func (SetPrediction) action()         {}
func (Reset) action()                 {}
