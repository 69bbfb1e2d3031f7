// Package predict decides when enough detail has been entered to ask for a
// price prediction and assembles the model's feature payload.
package predict

import (
	"errors"
	"strings"
	"time"

	"github.com/NERVsystems/ipredict/pkg/property"
)

// Model constants.
const (
	// InterestRateReference is the two-year 75% LTV buy-to-let rate the
	// model was trained against.
	InterestRateReference = 5.94

	// NewBuildAgeThreshold is the building age, in years, below which a
	// property counts as a new build.
	NewBuildAgeThreshold = 5
)

var (
	// ErrIncompleteInputs means a required detail has not been entered.
	ErrIncompleteInputs = errors.New("property details incomplete")

	// ErrNoSelection means no property has been selected.
	ErrNoSelection = errors.New("no property selected")
)

// Validate reports whether attrs carries every detail the model needs:
// property type, tenure, floor level and the bedroom, bathroom and reception
// minimums. Empty strings count as missing.
func Validate(attrs *property.ProvidedAttributes) bool {
	if attrs == nil {
		return false
	}
	return nonEmpty(attrs.PropertyType) &&
		nonEmpty(attrs.Duration) &&
		nonEmpty(attrs.FloorLevel) &&
		attrs.BedroomsMin != nil &&
		attrs.BathroomsMin != nil &&
		attrs.ReceptionsMin != nil
}

// Missing lists the JSON names of the required details not yet entered.
func Missing(attrs *property.ProvidedAttributes) []string {
	if attrs == nil {
		attrs = &property.ProvidedAttributes{}
	}
	var out []string
	if !nonEmpty(attrs.PropertyType) {
		out = append(out, "PPD_PropertyType")
	}
	if !nonEmpty(attrs.Duration) {
		out = append(out, "PPD_Duration")
	}
	if !nonEmpty(attrs.FloorLevel) {
		out = append(out, "EPC_FLOOR_LEVEL")
	}
	if attrs.BedroomsMin == nil {
		out = append(out, "zoo_num_bed_min")
	}
	if attrs.BathroomsMin == nil {
		out = append(out, "zoo_num_bath_min")
	}
	if attrs.ReceptionsMin == nil {
		out = append(out, "zoo_num_reception_min")
	}
	return out
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}

// Request is the prediction payload: the selected property and its area
// attributes, the user's details and the derived model features, all in one
// flat JSON object.
type Request struct {
	property.SelectedItem

	PropertyType    string  `json:"PPD_PropertyType"`
	Duration        string  `json:"PPD_Duration"`
	FloorLevel      string  `json:"EPC_FLOOR_LEVEL"`
	ConstructionAge *int    `json:"EPC_CONSTRUCTION_AGE,omitempty"`
	BedroomsMin     int     `json:"zoo_num_bed_min"`
	BathroomsMin    int     `json:"zoo_num_bath_min"`
	ReceptionsMin   int     `json:"zoo_num_reception_min"`
	Garage          bool    `json:"zoo_garage"`
	Auction         bool    `json:"zoo_auction"`
	SharedOwnership bool    `json:"zoo_shared_ownership"`
	ZooDuration     *string `json:"zoo_duration"`

	District      string   `json:"PPD_District"`
	TransferDate  int64    `json:"PPD_TransferDate"`
	OldNew        bool     `json:"PPD_OldNew"`
	BedroomRatio  *float64 `json:"ENG_BedroomRatio"`
	BathroomRatio *float64 `json:"ENG_BathroomRatio"`
	InterestRate  float64  `json:"RATE_2Y_75BTL"`
}

// BuildRequest builds a request with the default borough aliases, stamped
// with now.
func BuildRequest(item *property.SelectedItem, attrs *property.ProvidedAttributes, now time.Time) (*Request, error) {
	return NewBuilder(WithClock(func() time.Time { return now })).Build(item, attrs)
}

// Builder assembles prediction requests.
type Builder struct {
	boroughs *BoroughNormalizer
	now      func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBoroughs replaces the borough normalizer.
func WithBoroughs(n *BoroughNormalizer) BuilderOption {
	return func(b *Builder) { b.boroughs = n }
}

// WithClock replaces time.Now as the source of the transfer date.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a Builder with the default borough aliases.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		boroughs: NewBoroughNormalizer(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build merges item and attrs into a prediction request stamped with the
// current time.
func (b *Builder) Build(item *property.SelectedItem, attrs *property.ProvidedAttributes) (*Request, error) {
	if item == nil {
		return nil, ErrNoSelection
	}
	if !Validate(attrs) {
		return nil, ErrIncompleteInputs
	}

	req := &Request{
		SelectedItem:    *item,
		PropertyType:    *attrs.PropertyType,
		Duration:        *attrs.Duration,
		FloorLevel:      *attrs.FloorLevel,
		ConstructionAge: attrs.ConstructionAge,
		BedroomsMin:     *attrs.BedroomsMin,
		BathroomsMin:    *attrs.BathroomsMin,
		ReceptionsMin:   *attrs.ReceptionsMin,
		Garage:          isTrue(attrs.Garage),
		Auction:         isTrue(attrs.Auction),
		SharedOwnership: isTrue(attrs.SharedOwnership),

		District:      b.boroughs.Normalize(item.Borough),
		TransferDate:  b.now().UnixMilli(),
		OldNew:        attrs.ConstructionAge != nil && *attrs.ConstructionAge < NewBuildAgeThreshold,
		BedroomRatio:  ratio(*attrs.BedroomsMin, item.HabitableRooms),
		BathroomRatio: ratio(*attrs.BathroomsMin, item.HabitableRooms),
		InterestRate:  InterestRateReference,
	}
	return req, nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// ratio divides a room count by the habitable room count. It is null when
// the property has no recorded habitable rooms.
func ratio(count int, rooms float64) *float64 {
	if rooms <= 0 {
		return nil
	}
	r := float64(count) / rooms
	return &r
}

// BoroughNormalizer maps borough names to the form used by the price paid
// gazetteer: known aliases are rewritten, everything else is upper-cased.
type BoroughNormalizer struct {
	aliases map[string]string
}

// DefaultBoroughAliases are the aliases known to differ from a plain
// upper-casing.
var DefaultBoroughAliases = map[string]string{
	"Westminster": "CITY OF WESTMINSTER",
}

// NewBoroughNormalizer creates a normalizer from DefaultBoroughAliases plus
// extra, which takes precedence. Matching ignores case and surrounding space.
func NewBoroughNormalizer(extra map[string]string) *BoroughNormalizer {
	n := &BoroughNormalizer{aliases: make(map[string]string)}
	for k, v := range DefaultBoroughAliases {
		n.aliases[aliasKey(k)] = v
	}
	for k, v := range extra {
		n.aliases[aliasKey(k)] = v
	}
	return n
}

// Normalize returns the gazetteer form of borough.
func (n *BoroughNormalizer) Normalize(borough string) string {
	if v, ok := n.aliases[aliasKey(borough)]; ok {
		return v
	}
	return strings.ToUpper(strings.TrimSpace(borough))
}

func aliasKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
