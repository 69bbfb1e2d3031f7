package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/NERVsystems/ipredict/pkg/animate"
	"github.com/NERVsystems/ipredict/pkg/api"
	"github.com/NERVsystems/ipredict/pkg/cache"
	"github.com/NERVsystems/ipredict/pkg/debounce"
	"github.com/NERVsystems/ipredict/pkg/geo"
	"github.com/NERVsystems/ipredict/pkg/geolocate"
	"github.com/NERVsystems/ipredict/pkg/version"
)

// Default values
const (
	DefaultAPITimeout         = 10 * time.Second
	DefaultRateLimit          = 10.0
	DefaultRateBurst          = 5
	DefaultGeolocationTimeout = 5 * time.Second
	DefaultLogLevel           = "info"

	MaxCandidateTop = 100
)

// setDefaults registers every key with viper. Registration also makes each
// key resolvable from its IPREDICT_* environment variable.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", api.DefaultBaseURL)
	v.SetDefault("api.timeout", DefaultAPITimeout)
	v.SetDefault("api.rate_limit", DefaultRateLimit)
	v.SetDefault("api.rate_burst", DefaultRateBurst)
	v.SetDefault("api.user_agent", version.UserAgent())
	v.SetDefault("api.cache_ttl", cache.DefaultTTL)
	v.SetDefault("api.cache_size", cache.DefaultSize)

	v.SetDefault("geolocation.ip_lookup_url", geolocate.DefaultIPLookupURL)
	v.SetDefault("geolocation.timeout", DefaultGeolocationTimeout)
	v.SetDefault("geolocation.disabled", false)

	v.SetDefault("map.initial_zoom", geo.InitialZoom)
	v.SetDefault("map.area_radius_meters", animate.AreaRadiusMeters)
	v.SetDefault("map.debounce", debounce.DefaultQuietPeriod)
	v.SetDefault("map.candidate_top", api.DefaultCandidateTop)

	v.SetDefault("prediction.borough_aliases", map[string]string{})

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("metrics.addr", "")
}

// ApplyDefaults fills zero-value fields in cfg. Fields already set are left
// unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = api.DefaultBaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultAPITimeout
	}
	if cfg.API.RateBurst == 0 {
		cfg.API.RateBurst = DefaultRateBurst
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = version.UserAgent()
	}
	if cfg.API.CacheTTL == 0 {
		cfg.API.CacheTTL = cache.DefaultTTL
	}
	if cfg.API.CacheSize == 0 {
		cfg.API.CacheSize = cache.DefaultSize
	}

	if cfg.Geolocation.IPLookupURL == "" {
		cfg.Geolocation.IPLookupURL = geolocate.DefaultIPLookupURL
	}
	if cfg.Geolocation.Timeout == 0 {
		cfg.Geolocation.Timeout = DefaultGeolocationTimeout
	}

	if cfg.Map.InitialZoom == 0 {
		cfg.Map.InitialZoom = geo.InitialZoom
	}
	if cfg.Map.AreaRadiusMeters == 0 {
		cfg.Map.AreaRadiusMeters = animate.AreaRadiusMeters
	}
	if cfg.Map.Debounce == 0 {
		cfg.Map.Debounce = debounce.DefaultQuietPeriod
	}
	if cfg.Map.CandidateTop == 0 {
		cfg.Map.CandidateTop = api.DefaultCandidateTop
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.API.RateLimit = DefaultRateLimit
	return cfg
}
