// Package config loads the ipredict settings from an optional YAML file and
// IPREDICT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/session"
)

// Config is the complete process configuration.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Map         MapConfig         `mapstructure:"map"`
	Prediction  PredictionConfig  `mapstructure:"prediction"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// APIConfig configures the valuation backend client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second per host, 0 for none
	RateBurst int           `mapstructure:"rate_burst"`
	UserAgent string        `mapstructure:"user_agent"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"` // negative disables the cache
}

// GeolocationConfig configures how the starting pin is found.
type GeolocationConfig struct {
	IPLookupURL string        `mapstructure:"ip_lookup_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Disabled    bool          `mapstructure:"disabled"`
}

// MapConfig holds the map interaction settings.
type MapConfig struct {
	InitialZoom      float64       `mapstructure:"initial_zoom"`
	AreaRadiusMeters float64       `mapstructure:"area_radius_meters"`
	Debounce         time.Duration `mapstructure:"debounce"`
	CandidateTop     int           `mapstructure:"candidate_top"`
}

// PredictionConfig holds prediction payload settings.
type PredictionConfig struct {
	// BoroughAliases maps a borough name to the district name the model
	// was trained on. Keys are matched case-insensitively.
	BoroughAliases map[string]string `mapstructure:"borough_aliases"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// Validate checks the configuration for values the process cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an absolute http(s) URL", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}
	if c.API.RateBurst < 1 {
		errs = append(errs, errors.New("api.rate_burst must be at least 1"))
	}
	if !c.Geolocation.Disabled {
		if u, err := url.Parse(c.Geolocation.IPLookupURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("geolocation.ip_lookup_url %q must be an absolute URL", c.Geolocation.IPLookupURL))
		}
	}
	if c.Map.InitialZoom < geo.MinZoom || c.Map.InitialZoom > geo.MaxZoom {
		errs = append(errs, fmt.Errorf("map.initial_zoom must be between %v and %v", geo.MinZoom, geo.MaxZoom))
	}
	if c.Map.AreaRadiusMeters <= 0 {
		errs = append(errs, errors.New("map.area_radius_meters must be positive"))
	}
	if c.Map.Debounce < 0 {
		errs = append(errs, errors.New("map.debounce must not be negative"))
	}
	if c.Map.CandidateTop < 1 || c.Map.CandidateTop > MaxCandidateTop {
		errs = append(errs, fmt.Errorf("map.candidate_top must be between 1 and %d", MaxCandidateTop))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not a valid level", s)
	}
	return level, nil
}

// Session returns the session settings derived from the configuration.
func (c *Config) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.BaseURL = c.API.BaseURL
	cfg.CandidateTop = c.Map.CandidateTop
	cfg.AreaRadiusMeters = c.Map.AreaRadiusMeters
	cfg.Debounce = c.Map.Debounce
	cfg.InitialZoom = c.Map.InitialZoom
	cfg.BoroughAliases = c.Prediction.BoroughAliases
	return cfg
}
