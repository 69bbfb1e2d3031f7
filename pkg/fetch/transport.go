// Package fetch performs the backend requests behind the session: a shared
// rate-limited HTTP transport and cancellable per-slot fetches whose stale
// results never reach the state store.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/NERVsystems/ipredict/pkg/cache"
	"github.com/NERVsystems/ipredict/pkg/metrics"
)

const (
	// DefaultUserAgent is the default User-Agent string
	DefaultUserAgent = "ipredict/0.1.0"

	// DefaultTimeout bounds a single request
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 10 << 20

	// maxErrorSnippet caps how much of an error body is quoted.
	maxErrorSnippet = 200
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns a client with connection pooling.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: timeout,
	}
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithClient replaces the HTTP client.
func WithClient(c Doer) TransportOption {
	return func(t *Transport) { t.client = c }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) TransportOption {
	return func(t *Transport) { t.userAgent = ua }
}

// WithRateLimit limits each host to rps requests per second with the given
// burst. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) TransportOption {
	return func(t *Transport) {
		t.rps = rate.Inf
		if rps > 0 {
			t.rps = rate.Limit(rps)
		}
		if burst < 1 {
			burst = 1
		}
		t.burst = burst
	}
}

// WithCache enables caching of successful GET responses.
func WithCache(c *cache.Responses) TransportOption {
	return func(t *Transport) { t.cache = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) TransportOption {
	return func(t *Transport) { t.recorder = r }
}

// WithTransportLogger sets the logger.
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) { t.logger = logger }
}

// Transport issues rate-limited requests to the backend. It is safe for
// concurrent use.
type Transport struct {
	client    Doer
	userAgent string
	cache     *cache.Responses
	recorder  metrics.Recorder
	logger    *slog.Logger

	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewTransport creates a Transport. Without options it uses a pooled HTTP
// client, no rate limit and no cache.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		client:    NewHTTPClient(DefaultTimeout),
		userAgent: DefaultUserAgent,
		recorder:  metrics.Nop{},
		logger:    slog.Default(),
		rps:       rate.Inf,
		burst:     1,
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "transport")
	return t
}

// Get fetches rawURL and returns the body of a 2xx response.
func (t *Transport) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if t.cache != nil {
		if body, ok := t.cache.Get(rawURL); ok {
			t.recorder.CacheAccess(true)
			t.logger.Debug("cache hit", "url", rawURL)
			return body, nil
		}
		t.recorder.CacheAccess(false)
	}

	req, err := t.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	body, err := t.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if t.cache != nil {
		t.cache.Set(rawURL, body)
	}
	return body, nil
}

// PostJSON sends payload as a JSON body and returns the body of a 2xx
// response. POST responses are never cached.
func (t *Transport) PostJSON(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	req, err := t.newRequest(ctx, http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(ctx, req)
}

func (t *Transport) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (t *Transport) do(ctx context.Context, req *http.Request) ([]byte, error) {
	host := req.URL.Host
	if err := t.limiter(host).Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", redact(req.URL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", host, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.Warn("backend returned error status",
			"method", req.Method,
			"url", redact(req.URL),
			"status", resp.StatusCode)
		return nil, NewHTTPError(host, resp.StatusCode, snippet(body, resp.Status))
	}
	return body, nil
}

func (t *Transport) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(t.rps, t.burst)
		t.limiters[host] = l
	}
	return l
}

func snippet(body []byte, fallback string) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return fallback
	}
	if len(s) > maxErrorSnippet {
		s = s[:maxErrorSnippet] + "..."
	}
	return s
}

// redact drops the query string, which carries the user's coordinates.
func redact(u *url.URL) string {
	cp := *u
	cp.RawQuery = ""
	return cp.String()
}
