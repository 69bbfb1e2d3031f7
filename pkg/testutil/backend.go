package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// RecordedRequest is a request seen by Backend.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

type route struct {
	status int
	body   string
	delay  time.Duration
	fn     http.HandlerFunc
}

// Backend is a stand-in for the valuation API. Each path answers with a
// canned status and body unless a handler function is installed for it.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]*route
	requests []RecordedRequest
}

// NewBackend starts a backend that is shut down when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{routes: make(map[string]*route)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// Respond sets the canned response for path.
func (b *Backend) Respond(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.route(path)
	r.status, r.body, r.fn = status, body, nil
}

// Delay holds responses for path for d, or until the request is cancelled.
func (b *Backend) Delay(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.route(path).delay = d
}

// HandleFunc installs fn for path.
func (b *Backend) HandleFunc(path string, fn http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.route(path).fn = fn
}

// Requests returns the requests received for path, in arrival order.
func (b *Backend) Requests(path string) []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []RecordedRequest
	for _, r := range b.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *Backend) route(path string) *route {
	r, ok := b.routes[path]
	if !ok {
		r = &route{status: http.StatusOK, body: "[]"}
		b.routes[path] = r
	}
	return r
}

func (b *Backend) serve(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Body:   body,
	})
	r, ok := b.routes[req.URL.Path]
	var rt route
	if ok {
		rt = *r
	}
	b.mu.Unlock()

	if !ok {
		http.NotFound(w, req)
		return
	}

	if rt.delay > 0 {
		select {
		case <-time.After(rt.delay):
		case <-req.Context().Done():
			return
		}
	}

	if rt.fn != nil {
		rt.fn(w, req)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rt.status)
	_, _ = io.WriteString(w, rt.body)
}
