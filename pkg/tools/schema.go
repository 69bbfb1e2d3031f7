package tools

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/NERVsystems/ipredict/pkg/property"
	"github.com/NERVsystems/ipredict/pkg/state"
)

type fieldKind int

const (
	kindOption fieldKind = iota
	kindCount
	kindFlag
)

// detailField describes one user-entered property detail: how a raw tool
// argument is coerced and checked, and which state transition it becomes.
type detailField struct {
	name    string
	key     string // request payload key
	kind    fieldKind
	options []property.Option
	max     int
	step    int

	option func(string) state.Action
	count  func(int) state.Action
	flag   func(bool) state.Action
}

var detailFields = []detailField{
	{name: "property_type", key: "PPD_PropertyType", kind: kindOption, options: property.PropertyTypes,
		option: func(v string) state.Action { return state.SetPropertyType{Type: v} }},
	{name: "tenure", key: "PPD_Duration", kind: kindOption, options: property.Tenures,
		option: func(v string) state.Action { return state.SetTenure{Tenure: v} }},
	{name: "floor_level", key: "EPC_FLOOR_LEVEL", kind: kindOption, options: property.FloorLevels,
		option: func(v string) state.Action { return state.SetFloorLevel{Level: v} }},
	{name: "building_age", key: "EPC_CONSTRUCTION_AGE", kind: kindCount, max: property.MaxBuildingAge, step: property.BuildingAgeStep,
		count: func(n int) state.Action { return state.SetBuildingAge{Years: n} }},
	{name: "bedrooms", key: "zoo_num_bed_min", kind: kindCount, max: property.MaxBedrooms, step: 1,
		count: func(n int) state.Action { return state.SetBedrooms{Count: n} }},
	{name: "bathrooms", key: "zoo_num_bath_min", kind: kindCount, max: property.MaxBathrooms, step: 1,
		count: func(n int) state.Action { return state.SetBathrooms{Count: n} }},
	{name: "receptions", key: "zoo_num_reception_min", kind: kindCount, max: property.MaxReceptions, step: 1,
		count: func(n int) state.Action { return state.SetReceptions{Count: n} }},
	{name: "garage", key: "zoo_garage", kind: kindFlag,
		flag: func(b bool) state.Action { return state.SetGarage{Value: b} }},
	{name: "auction", key: "zoo_auction", kind: kindFlag,
		flag: func(b bool) state.Action { return state.SetAuction{Value: b} }},
	{name: "shared_ownership", key: "zoo_shared_ownership", kind: kindFlag,
		flag: func(b bool) state.Action { return state.SetSharedOwnership{Value: b} }},
}

func lookupField(name string) (detailField, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range detailFields {
		if f.name == name {
			return f, true
		}
	}
	return detailField{}, false
}

func fieldNames() []string {
	names := make([]string, len(detailFields))
	for i, f := range detailFields {
		names[i] = f.name
	}
	sort.Strings(names)
	return names
}

// toolFields translates request payload keys into field names.
func toolFields(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		name := k
		for _, f := range detailFields {
			if f.key == k {
				name = f.name
				break
			}
		}
		out = append(out, name)
	}
	return out
}

// action coerces raw into the field's type and returns the transition that
// records it.
func (f detailField) action(raw any) (state.Action, error) {
	switch f.kind {
	case kindOption:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be text: %w", f.name, err)
		}
		v, ok := matchOption(f.options, s)
		if !ok {
			return nil, fmt.Errorf("%s must be one of %s", f.name, describeOptions(f.options))
		}
		return f.option(v), nil

	case kindCount:
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number: %w", f.name, err)
		}
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%s must be a whole number, got %v", f.name, n)
		}
		if n < 0 || n > float64(f.max) {
			return nil, fmt.Errorf("%s must be between 0 and %d, got %v", f.name, f.max, n)
		}
		if f.step > 1 && int(n)%f.step != 0 {
			return nil, fmt.Errorf("%s must be a multiple of %d, got %v", f.name, f.step, n)
		}
		return f.count(int(n)), nil

	default:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", f.name, err)
		}
		return f.flag(b), nil
	}
}

// matchOption accepts either an option value or its label, ignoring case.
func matchOption(opts []property.Option, s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, o := range opts {
		if strings.EqualFold(o.Value, s) || strings.EqualFold(o.Label, s) {
			return o.Value, true
		}
	}
	return "", false
}

func describeOptions(opts []property.Option) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = fmt.Sprintf("%q (%s)", o.Value, o.Label)
	}
	return strings.Join(parts, ", ")
}
