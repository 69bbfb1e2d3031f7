package property

// Option is one selectable value of a form field.
type Option struct {
	Value string
	Label string
}

// Form options offered to the user.
var (
	PropertyTypes = []Option{
		{"D", "Detached"},
		{"S", "Semi-Detached"},
		{"T", "Terraced"},
		{"F", "Flats/Maisonettes"},
		{"O", "Other"},
	}

	Tenures = []Option{
		{"F", "Freehold"},
		{"L", "Leasehold"},
	}

	FloorLevels = []Option{
		{"basement", "Basement"},
		{"ground", "Ground Floor"},
		{"low", "Lower Floor"},
		{"mid-low", "Mid-Level"},
		{"mid-high", "Mid-to-High"},
		{"high", "Higher Floor"},
		{"top", "Top Floor"},
	}
)

// Numeric input ranges.
const (
	MaxBuildingAge  = 100
	BuildingAgeStep = 10
	MaxBedrooms     = 5
	MaxBathrooms    = 5
	MaxReceptions   = 3
)

// HasOption reports whether value is one of opts.
func HasOption(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Values lists the option values, in order.
func Values(opts []Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}
