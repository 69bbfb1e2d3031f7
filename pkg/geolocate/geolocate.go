// Package geolocate resolves the user's starting position: a device fix if
// one is available, an IP-based lookup otherwise, and central London as a
// last resort.
package geolocate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NERVsystems/ipredict/pkg/fetch"
	"github.com/NERVsystems/ipredict/pkg/geo"
)

// DefaultIPLookupURL is the public IP geolocation endpoint.
const DefaultIPLookupURL = "https://ipapi.co/json"

// Default is the map's fallback position.
var Default = geo.Location{Lat: 51.50245862247282, Lng: -0.1415618433771047}

// ErrUnavailable is returned by a provider that has no position to offer.
var ErrUnavailable = errors.New("position unavailable")

// Provider yields a position.
type Provider interface {
	Locate(ctx context.Context) (geo.Location, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (geo.Location, error)

// Locate implements Provider
func (f ProviderFunc) Locate(ctx context.Context) (geo.Location, error) { return f(ctx) }

// Device is a position supplied by the host, such as one given on the
// command line. A nil Device has no position.
type Device struct {
	Location *geo.Location
}

// Locate implements Provider
func (d *Device) Locate(context.Context) (geo.Location, error) {
	if d == nil || d.Location == nil {
		return geo.Location{}, ErrUnavailable
	}
	if err := d.Location.Validate(); err != nil {
		return geo.Location{}, fmt.Errorf("device position: %w", err)
	}
	return *d.Location, nil
}

// IPLookup locates the caller by public IP address.
type IPLookup struct {
	URL       string
	Transport *fetch.Transport
}

type ipResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Locate implements Provider
func (p *IPLookup) Locate(ctx context.Context) (geo.Location, error) {
	url := p.URL
	if url == "" {
		url = DefaultIPLookupURL
	}

	body, err := p.Transport.Get(ctx, url)
	if err != nil {
		return geo.Location{}, fmt.Errorf("ip lookup: %w", err)
	}

	var resp ipResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return geo.Location{}, &fetch.DecodeError{URL: url, Err: err}
	}
	if resp.Error {
		return geo.Location{}, fmt.Errorf("ip lookup: %s", resp.Reason)
	}
	if resp.Latitude == nil || resp.Longitude == nil {
		return geo.Location{}, fmt.Errorf("ip lookup: %w", ErrUnavailable)
	}

	loc := geo.Location{Lat: *resp.Latitude, Lng: *resp.Longitude}
	if err := loc.Validate(); err != nil {
		return geo.Location{}, fmt.Errorf("ip lookup: %w", err)
	}
	return loc, nil
}

// Resolve tries primary and then fallback, and returns Default if neither
// yields a position. It never fails; failures are logged.
func Resolve(ctx context.Context, primary, fallback Provider, logger *slog.Logger) geo.Location {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "geolocate")

	for _, p := range []struct {
		name     string
		provider Provider
	}{
		{"device", primary},
		{"ip", fallback},
	} {
		if p.provider == nil {
			continue
		}
		loc, err := p.provider.Locate(ctx)
		if err == nil {
			logger.Info("resolved starting position", "source", p.name, "location", loc.String())
			return loc
		}
		if errors.Is(err, ErrUnavailable) {
			logger.Debug("position source unavailable", "source", p.name)
			continue
		}
		logger.Warn("position lookup failed", "source", p.name, "error", err)
	}

	logger.Info("using default starting position", "location", Default.String())
	return Default
}
