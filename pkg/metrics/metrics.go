// Package metrics records session activity: fetch outcomes, coalesced map
// clicks, state transitions and response cache use.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
	OutcomeStale     = "stale"
)

// Recorder receives session events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	FetchCompleted(slot, outcome string, d time.Duration)
	Coalesced()
	Dispatched(action string)
	CacheAccess(hit bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) FetchCompleted(string, string, time.Duration) {}
func (Nop) Coalesced()                                  {}
func (Nop) Dispatched(string)                           {}
func (Nop) CacheAccess(bool)                            {}

const namespace = "ipredict"

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	coalesced     prometheus.Counter
	dispatches    *prometheus.CounterVec
	cache         *prometheus.CounterVec
}

// NewPrometheus registers the session metrics on a fresh registry, together
// with the process and Go runtime collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Completed fetches by slot and outcome.",
		}, []string{"slot", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch latency by slot.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"slot"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_calls_total",
			Help:      "Map clicks superseded by a later click inside the quiet window.",
		}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "State transitions by action.",
		}, []string{"action"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
	}

	p.registry.MustRegister(
		p.fetches, p.fetchDuration, p.coalesced, p.dispatches, p.cache,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		collectors.NewGoCollector(),
	)
	return p
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *Prometheus) FetchCompleted(slot, outcome string, d time.Duration) {
	p.fetches.WithLabelValues(slot, outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeError {
		p.fetchDuration.WithLabelValues(slot).Observe(d.Seconds())
	}
}

func (p *Prometheus) Coalesced() { p.coalesced.Inc() }

func (p *Prometheus) Dispatched(action string) { p.dispatches.WithLabelValues(action).Inc() }

func (p *Prometheus) CacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cache.WithLabelValues(result).Inc()
}
