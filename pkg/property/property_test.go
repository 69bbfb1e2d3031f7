package property

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatGBP(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "£0.00"},
		{5, "£5.00"},
		{999.999, "£1,000.00"},
		{1234.5, "£1,234.50"},
		{650000, "£650,000.00"},
		{1234567.891, "£1,234,567.89"},
		{-42.1, "-£42.10"},
		{-0.001, "£0.00"},
		{math.Copysign(0, -1), "£0.00"},
		{1e20, "£100,000,000,000,000,000,000.00"},
		{math.NaN(), "£NaN"},
		{math.Inf(1), "£Inf"},
		{math.Inf(-1), "-£Inf"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatGBP(tc.in), "FormatGBP(%v)", tc.in)
	}
}

func TestPredictionString(t *testing.T) {
	p := Prediction{Prediction: 650000, LowerBound: 600000, UpperBound: 712500.5}
	assert.Equal(t, "£650,000.00 [£600,000.00 - £712,500.50] (80% Confidence)", p.String())
}

func TestSelectedItemJSONIsFlat(t *testing.T) {
	item := Merge(
		Candidate{UPRN: 123, Borough: "Westminster", HabitableRooms: 4},
		AreaAttributes{NearbyBusStops: 7, IMDDecile: 3},
	)

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.EqualValues(t, 123, flat["EPC_UPRN"])
	assert.Equal(t, "Westminster", flat["CPO_BOROUGH"])
	assert.EqualValues(t, 7, flat["NPT_NearbyBusStops"])
	assert.EqualValues(t, 3, flat["IMD_IMDDecile"])
	assert.NotContains(t, flat, "Candidate")
}

func TestCandidateDecode(t *testing.T) {
	raw := `[{"EPC_UPRN": 100023336956, "EPC_ADDRESS": "10 Downing Street", "UPRN_LATITUDE": 51.5034, "UPRN_LONGITUDE": -0.1276, "EPC_NUMBER_HABITABLE_ROOMS": 4}]`

	var got []Candidate
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(100023336956), got[0].UPRN)
	assert.Equal(t, "10 Downing Street", got[0].Address)
	assert.InDelta(t, 51.5034, got[0].Latitude, 1e-9)
	assert.InDelta(t, 4.0, got[0].HabitableRooms, 1e-9)
}

func TestProvidedAttributes(t *testing.T) {
	var nilAttrs *ProvidedAttributes
	assert.True(t, nilAttrs.IsEmpty())

	c := nilAttrs.Clone()
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())

	beds := 2
	orig := &ProvidedAttributes{BedroomsMin: &beds}
	cp := orig.Clone()
	tenure := "F"
	cp.Duration = &tenure

	assert.Nil(t, orig.Duration, "clone must not alias the original")
	assert.False(t, orig.IsEmpty())

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zoo_num_bed_min": 2}`, string(data))
}

func TestOptions(t *testing.T) {
	assert.True(t, HasOption(PropertyTypes, "D"))
	assert.False(t, HasOption(PropertyTypes, "X"))
	assert.True(t, HasOption(FloorLevels, "mid-high"))
	assert.Equal(t, []string{"F", "L"}, Values(Tenures))
}
