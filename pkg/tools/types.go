// Package tools exposes a valuation session as MCP tools.
package tools

import (
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/property"
	"github.com/NERVsystems/ipredict/pkg/session"
)

// PropertySummary is the short form of a candidate shown in listings.
type PropertySummary struct {
	UPRN           int64   `json:"uprn"`
	Address        string  `json:"address"`
	Postcode       string  `json:"postcode,omitempty"`
	PropertyType   string  `json:"property_type,omitempty"`
	BuiltForm      string  `json:"built_form,omitempty"`
	HabitableRooms float64 `json:"habitable_rooms,omitempty"`
	FloorArea      float64 `json:"floor_area_sqm,omitempty"`
	EnergyRating   string  `json:"energy_rating,omitempty"`
	Borough        string  `json:"borough,omitempty"`
	Distance       float64 `json:"distance_m"` // from the pin
}

// PropertyListOutput is returned by list_properties and drop_pin.
type PropertyListOutput struct {
	Location   *geo.Location     `json:"location"`
	Properties []PropertySummary `json:"properties"`
}

// AreaSummary condenses the area statistics of a selected property.
type AreaSummary struct {
	NearbyStops       float64 `json:"nearby_stops"`
	NearbyRailStops   float64 `json:"nearby_rail_stops"`
	Schools           float64 `json:"schools"`
	OutstandingSchool float64 `json:"outstanding_schools"`
	NearestParkMeters float64 `json:"nearest_park_m"`
	IMDDecile         float64 `json:"imd_decile"`
	CrimeDecile       float64 `json:"crime_decile"`
}

// SelectedOutput describes the selected property.
type SelectedOutput struct {
	Property PropertySummary `json:"property"`
	Area     AreaSummary     `json:"area"`
	Missing  []string        `json:"missing_details"`
}

// DetailOutput is returned after a property detail is set.
type DetailOutput struct {
	Details        *property.ProvidedAttributes `json:"details"`
	Missing        []string                     `json:"missing_details"`
	PredictEnabled bool                         `json:"predict_enabled"`
}

// PredictionOutput is returned by request_prediction.
type PredictionOutput struct {
	Prediction property.Prediction `json:"prediction"`
	Summary    string              `json:"summary"`
}

// SessionOutput is a condensed view of the whole session.
type SessionOutput struct {
	ID             string                       `json:"id"`
	Location       *geo.Location                `json:"location"`
	Zoom           float64                      `json:"zoom"`
	Center         geo.Location                 `json:"center"`
	RadiusPixels   float64                      `json:"radius_px"`
	CandidateCount int                          `json:"candidate_count"`
	PanelOpen      bool                         `json:"panel_open"`
	Selected       *PropertySummary             `json:"selected,omitempty"`
	Details        *property.ProvidedAttributes `json:"details,omitempty"`
	Missing        []string                     `json:"missing_details"`
	PredictEnabled bool                         `json:"predict_enabled"`
	Prediction     *PredictionOutput            `json:"prediction,omitempty"`
	Errors         map[string]string            `json:"errors,omitempty"`
}

func summarize(c property.Candidate, pin *geo.Location) PropertySummary {
	s := PropertySummary{
		UPRN:           c.UPRN,
		Address:        c.Address,
		Postcode:       c.Postcode,
		PropertyType:   c.PropertyType,
		BuiltForm:      c.BuiltForm,
		HabitableRooms: c.HabitableRooms,
		FloorArea:      c.TotalFloorArea,
		EnergyRating:   c.EnergyRating,
		Borough:        c.Borough,
	}
	if pin != nil {
		s.Distance = geo.HaversineDistance(pin.Lat, pin.Lng, c.Latitude, c.Longitude)
	}
	return s
}

func summarizeArea(a property.AreaAttributes) AreaSummary {
	return AreaSummary{
		NearbyStops:       a.NearbyStops,
		NearbyRailStops:   a.NearbyRailStops,
		Schools:           a.SchoolsAll,
		OutstandingSchool: a.SchoolsOutstanding,
		NearestParkMeters: a.NearestParkDistanceAvg,
		IMDDecile:         a.IMDDecile,
		CrimeDecile:       a.CrimeDecile,
	}
}

func sessionOutput(snap session.Snapshot) SessionOutput {
	out := SessionOutput{
		ID:             snap.ID,
		Location:       snap.State.Location,
		Zoom:           snap.Zoom,
		Center:         snap.Center,
		RadiusPixels:   snap.Radius,
		CandidateCount: len(snap.Candidates.Data),
		PanelOpen:      snap.PanelOpen,
		Details:        snap.State.ProvidedAttributes,
		Missing:        toolFields(snap.Missing),
		PredictEnabled: snap.PredictEnabled,
	}
	if item := snap.State.SelectedItem; item != nil {
		s := summarize(item.Candidate, snap.State.Location)
		out.Selected = &s
	}
	if p := snap.State.Prediction; p != nil {
		out.Prediction = &PredictionOutput{Prediction: *p, Summary: p.String()}
	}

	errs := map[string]string{}
	for name, err := range map[string]error{
		session.SlotCandidates: snap.Candidates.Err,
		session.SlotAttributes: snap.Attributes.Err,
		session.SlotPrediction: snap.Prediction.Err,
	} {
		if err != nil {
			errs[name] = err.Error()
		}
	}
	if len(errs) > 0 {
		out.Errors = errs
	}
	return out
}
