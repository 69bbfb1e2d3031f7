package geo

import (
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	// Test cases with known distances
	tests := []struct {
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		name      string
		tolerance float64 // relative tolerance (e.g., 0.001 for 0.1%)
	}{
		{
			name:      "Same point",
			lat1:      51.5,
			lon1:      -0.14,
			lat2:      51.5,
			lon2:      -0.14,
			expected:  0,
			tolerance: 0.0001,
		},
		{
			name:      "Short distance - SF downtown to Market St",
			lat1:      37.7749,
			lon1:      -122.4194,
			lat2:      37.7734,
			lon2:      -122.4167,
			expected:  290.06,
			tolerance: 0.001,
		},
		{
			name:      "Medium distance - SF to Oakland",
			lat1:      37.7749,
			lon1:      -122.4194,
			lat2:      37.8044,
			lon2:      -122.2712,
			expected:  13429.63,
			tolerance: 0.001,
		},
		{
			name:      "Long distance - SF to NYC",
			lat1:      37.7749,
			lon1:      -122.4194,
			lat2:      40.7128,
			lon2:      -74.0060,
			expected:  4129936.81,
			tolerance: 0.001,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := HaversineDistance(tc.lat1, tc.lon1, tc.lat2, tc.lon2)

			var difference float64
			if tc.expected == 0 {
				difference = math.Abs(result)
			} else {
				difference = math.Abs(result-tc.expected) / tc.expected
			}

			if difference > tc.tolerance {
				t.Errorf("HaversineDistance(%f, %f, %f, %f) = %f, expected %f ± %.1f%%",
					tc.lat1, tc.lon1, tc.lat2, tc.lon2, result, tc.expected, tc.tolerance*100)
			}
		})
	}
}

func TestValidateCoords(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lng     float64
		wantErr bool
	}{
		{name: "london", lat: 51.5, lng: -0.14},
		{name: "boundaries", lat: 90, lng: 180},
		{name: "negative boundaries", lat: -90, lng: -180},
		{name: "latitude too high", lat: 91, lng: 0, wantErr: true},
		{name: "longitude too low", lat: 0, lng: -181, wantErr: true},
		{name: "not a number", lat: math.NaN(), lng: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Location{Lat: tt.lat, Lng: tt.lng}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	a := &Location{Lat: 1, Lng: 2}
	b := &Location{Lat: 1, Lng: 2}
	c := &Location{Lat: 1, Lng: 3}

	if !Equal(nil, nil) {
		t.Error("Equal(nil, nil) = false")
	}
	if Equal(a, nil) || Equal(nil, a) {
		t.Error("Equal with one nil side = true")
	}
	if !Equal(a, b) {
		t.Error("Equal(a, b) = false for identical coordinates")
	}
	if Equal(a, c) {
		t.Error("Equal(a, c) = true for different coordinates")
	}
}

func TestDestination(t *testing.T) {
	from := Location{Lat: 51.5, Lng: -0.14}
	to := Destination(from, 90, 804)

	if to.Lng <= from.Lng {
		t.Errorf("Destination east of %v moved west: %v", from, to)
	}
	if math.Abs(to.Lat-from.Lat) > 0.001 {
		t.Errorf("Destination east changed latitude too much: %v -> %v", from, to)
	}

	d := HaversineDistance(from.Lat, from.Lng, to.Lat, to.Lng)
	if math.Abs(d-804)/804 > 0.005 {
		t.Errorf("distance to destination = %f, want ~804", d)
	}
}

func TestMetersToPixels(t *testing.T) {
	// Ground resolution for 256px Web-Mercator tiles is
	// 156543.03392 * cos(lat) / 2^zoom meters per pixel.
	tests := []struct {
		name   string
		center Location
		zoom   float64
		meters float64
	}{
		{name: "equator zoom 12", center: Location{Lat: 0, Lng: 0}, zoom: 12, meters: 804},
		{name: "london zoom 12", center: Location{Lat: 51.5, Lng: -0.14}, zoom: 12, meters: 804},
		{name: "london zoom 16", center: Location{Lat: 51.5, Lng: -0.14}, zoom: 16, meters: 804},
		{name: "london zoom 10", center: Location{Lat: 51.5, Lng: -0.14}, zoom: 10, meters: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := 156543.03392 * math.Cos(tt.center.Lat*math.Pi/180) / math.Pow(2, tt.zoom)
			expected := tt.meters / resolution

			got := MetersToPixels(tt.center, tt.zoom, tt.meters)
			if math.Abs(got-expected)/expected > 0.01 {
				t.Errorf("MetersToPixels() = %f, expected %f ± 1%%", got, expected)
			}
		})
	}
}

func TestMetersToPixelsScalesWithZoom(t *testing.T) {
	center := Location{Lat: 51.5, Lng: -0.14}

	for z := MinZoom; z < MaxZoom; z++ {
		lo := MetersToPixels(center, z, 804)
		hi := MetersToPixels(center, z+1, 804)
		if math.Abs(hi/lo-2) > 1e-6 {
			t.Errorf("zoom %v -> %v ratio = %f, want 2", z, z+1, hi/lo)
		}
	}

	if got := MetersToPixels(center, 12, 0); got != 0 {
		t.Errorf("MetersToPixels(0 meters) = %f, want 0", got)
	}
}

func TestProjector(t *testing.T) {
	p := NewProjector(Location{Lat: 51.5, Lng: -0.14}, 30)
	if p.Zoom() != MaxZoom {
		t.Errorf("NewProjector zoom = %v, want clamped %v", p.Zoom(), MaxZoom)
	}

	if !p.SetZoom(12) {
		t.Error("SetZoom(12) reported no change")
	}
	if p.SetZoom(12) {
		t.Error("SetZoom(12) twice reported a change")
	}
	if p.SetZoom(3) != true || p.Zoom() != MinZoom {
		t.Errorf("SetZoom(3) zoom = %v, want %v", p.Zoom(), MinZoom)
	}

	want := MetersToPixels(p.Center(), p.Zoom(), 804)
	if got := p.Pixels(804); got != want {
		t.Errorf("Pixels() = %f, want %f", got, want)
	}
}
