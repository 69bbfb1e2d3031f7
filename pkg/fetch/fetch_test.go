package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/ipredict/pkg/cache"
	"github.com/NERVsystems/ipredict/pkg/testutil"
)

type item struct {
	ID int `json:"id"`
}

// queue stands in for the event loop: completions are delivered to the test
// goroutine, which runs them one at a time.
type queue chan func()

func (q queue) post(f func()) { q <- f }

func (q queue) next(t *testing.T) {
	t.Helper()
	select {
	case f := <-q:
		f()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func (q queue) empty(t *testing.T) {
	t.Helper()
	select {
	case <-q:
		t.Fatal("unexpected completion")
	case <-time.After(50 * time.Millisecond):
	}
}

type recorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	hits     int
	misses   int
}

func newRecorder() *recorder { return &recorder{outcomes: map[string]int{}} }

func (r *recorder) FetchCompleted(slot, outcome string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}
func (r *recorder) Coalesced()        {}
func (r *recorder) Dispatched(string) {}
func (r *recorder) CacheAccess(hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recorder) count(outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[outcome]
}

// scriptedDoer answers each request only when the test releases it, and
// ignores cancellation, so a superseded request can still succeed late.
type scriptedDoer struct {
	mu      sync.Mutex
	waiting map[string]chan *http.Response
	arrived chan string
}

func newScriptedDoer() *scriptedDoer {
	return &scriptedDoer{
		waiting: map[string]chan *http.Response{},
		arrived: make(chan string, 8),
	}
}

func (d *scriptedDoer) ch(path string) chan *http.Response {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.waiting[path]
	if !ok {
		c = make(chan *http.Response, 1)
		d.waiting[path] = c
	}
	return c
}

func (d *scriptedDoer) Do(req *http.Request) (*http.Response, error) {
	d.arrived <- req.URL.Path
	return <-d.ch(req.URL.Path), nil
}

func (d *scriptedDoer) await(t *testing.T, path string) {
	t.Helper()
	select {
	case got := <-d.arrived:
		require.Equal(t, path, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("request for %s never arrived", path)
	}
}

func (d *scriptedDoer) release(path string, status int, body string) {
	d.ch(path) <- &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func jsonServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"id": 7}`))
		case "/bad":
			_, _ = w.Write([]byte(`{"id": "seven"`))
		case "/missing":
			http.Error(w, "no such property", http.StatusNotFound)
		case "/null":
			_, _ = w.Write([]byte("null\n"))
		case "/detail":
			_, _ = w.Write([]byte(`{"detail": "model not loaded"}`))
		case "/unavailable":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/echo":
			var in map[string]any
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil || r.Method != http.MethodPost ||
				r.Header.Get("Content-Type") != "application/json" {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": in["id"]})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSlot_FetchSuccess(t *testing.T) {
	srv := jsonServer(t, nil)
	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))

	var changes []Result[item]
	s.OnChange(func(r Result[item]) { changes = append(changes, r) })

	s.Fetch(srv.URL+"/ok", "a")
	assert.True(t, s.State().IsLoading)

	q.next(t)
	st := s.State()
	require.NoError(t, st.Err)
	assert.True(t, st.Ready())
	assert.Equal(t, 7, st.Data.ID)
	require.Len(t, changes, 2)
	assert.True(t, changes[0].IsLoading)
}

type checked struct {
	ID *int `json:"id"`
}

func (c *checked) Validate() error {
	if c.ID == nil {
		return errors.New("missing id")
	}
	return nil
}

func TestSlot_MalformedBodies(t *testing.T) {
	srv := jsonServer(t, nil)

	tests := []struct {
		name string
		path string
		run  func(t *testing.T, url string, q queue) error
	}{
		{"null list", "/null", func(t *testing.T, url string, q queue) error {
			s := NewSlot[[]item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))
			s.Fetch(url, "a")
			q.next(t)
			return s.State().Err
		}},
		{"null object", "/null", func(t *testing.T, url string, q queue) error {
			s := NewSlot[checked]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))
			s.Fetch(url, "a")
			q.next(t)
			return s.State().Err
		}},
		{"failed validation", "/detail", func(t *testing.T, url string, q queue) error {
			s := NewSlot[checked]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))
			s.Post(url, map[string]int{"id": 1}, "a")
			q.next(t)
			return s.State().Err
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run(t, srv.URL+tc.path, make(queue, 8))
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, GuidanceDataError, Guidance(err))
		})
	}
}

func TestSlot_ValidBodyPassesValidation(t *testing.T) {
	srv := jsonServer(t, nil)
	q := make(queue, 8)
	s := NewSlot[checked]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))

	s.Fetch(srv.URL+"/ok", "a")
	q.next(t)
	require.NoError(t, s.State().Err)
	require.NotNil(t, s.State().Data.ID)
	assert.Equal(t, 7, *s.State().Data.ID)
}

// ctxDoer answers immediately and keeps the context of the last request.
type ctxDoer struct {
	mu  sync.Mutex
	ctx context.Context
}

func (d *ctxDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.ctx = req.Context()
	d.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(`{"id": 1}`)),
	}, nil
}

func TestSlot_CompletionReleasesContext(t *testing.T) {
	doer := &ctxDoer{}
	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(WithClient(doer)), q.post, WithSlotLogger(testutil.DiscardLogger()))

	s.Fetch("http://backend.test/ok", "a")
	q.next(t)
	require.True(t, s.State().Ready())

	doer.mu.Lock()
	ctx := doer.ctx
	doer.mu.Unlock()
	require.NotNil(t, ctx)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestSlot_Errors(t *testing.T) {
	srv := jsonServer(t, nil)

	t.Run("non-2xx", func(t *testing.T) {
		q := make(queue, 8)
		s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))
		s.Fetch(srv.URL+"/missing", "a")
		q.next(t)

		var httpErr *HTTPError
		require.ErrorAs(t, s.State().Err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, "no such property", httpErr.Message)
		assert.Equal(t, GuidanceNotFound, Guidance(s.State().Err))
		assert.False(t, s.State().IsLoading)
		assert.Zero(t, s.State().Data)
	})

	t.Run("malformed body", func(t *testing.T) {
		q := make(queue, 8)
		s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))
		s.Fetch(srv.URL+"/bad", "a")
		q.next(t)

		var decodeErr *DecodeError
		require.ErrorAs(t, s.State().Err, &decodeErr)
		assert.Equal(t, GuidanceDataError, Guidance(s.State().Err))
	})

	t.Run("unreachable", func(t *testing.T) {
		q := make(queue, 8)
		s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))
		s.Fetch("http://127.0.0.1:1/ok", "a")
		q.next(t)

		require.Error(t, s.State().Err)
		assert.False(t, IsCancelled(s.State().Err))
		assert.Equal(t, GuidanceNetworkError, Guidance(s.State().Err))
	})
}

func TestSlot_StaleResponseDropped(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"stale success", http.StatusOK, `{"id": 1}`},
		{"stale failure", http.StatusInternalServerError, `boom`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doer := newScriptedDoer()
			rec := newRecorder()
			q := make(queue, 8)
			s := NewSlot[item]("test", NewTransport(WithClient(doer)), q.post,
				WithSlotLogger(testutil.DiscardLogger()), WithSlotRecorder(rec))

			s.Fetch("http://backend/a", "A")
			doer.await(t, "/a")
			s.Fetch("http://backend/b", "B")
			doer.await(t, "/b")

			doer.release("/b", http.StatusOK, `{"id": 2}`)
			q.next(t)
			assert.Equal(t, 2, s.State().Data.ID)

			doer.release("/a", tc.status, tc.body)
			q.next(t)

			st := s.State()
			assert.NoError(t, st.Err)
			assert.Equal(t, 2, st.Data.ID, "A's late response must not overwrite B")
			assert.Equal(t, 1, rec.count("stale"))
			assert.Equal(t, 1, rec.count("cancelled"))
			assert.Equal(t, 1, rec.count("success"))
		})
	}
}

func TestSlot_CancellationNotSurfaced(t *testing.T) {
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			started <- struct{}{}
			<-r.Context().Done()
			return
		}
		_, _ = w.Write([]byte(`{"id": 3}`))
	}))
	defer srv.Close()

	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))

	var errs []error
	s.OnChange(func(r Result[item]) {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	})

	s.Fetch(srv.URL+"/slow", "slow")
	<-started
	s.Fetch(srv.URL+"/fast", "fast")

	// Both completions arrive; only the current one has an effect.
	q.next(t)
	q.next(t)

	assert.Empty(t, errs)
	assert.Equal(t, 3, s.State().Data.ID)
	assert.False(t, s.State().IsLoading)
}

func TestSlot_SameKeyIsNoop(t *testing.T) {
	var hits int32
	srv := jsonServer(t, &hits)
	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))

	s.Fetch(srv.URL+"/ok", "a")
	s.Fetch(srv.URL+"/ok", "a")
	q.next(t)
	s.Fetch(srv.URL+"/ok", "a")
	q.empty(t)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSlot_EmptyURLClears(t *testing.T) {
	doer := newScriptedDoer()
	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(WithClient(doer)), q.post, WithSlotLogger(testutil.DiscardLogger()))

	s.Fetch("http://backend/a", "A")
	require.True(t, s.State().IsLoading)

	s.Fetch("", nil)
	assert.Equal(t, Result[item]{}, s.State())
	_, hasKey := s.Key()
	assert.False(t, hasKey)

	doer.release("/a", http.StatusOK, `{"id": 1}`)
	q.next(t)
	assert.Equal(t, Result[item]{}, s.State())
}

func TestSlot_Retry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id": 9}`))
	}))
	defer srv.Close()

	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))

	s.Retry()
	q.empty(t)

	s.Fetch(srv.URL, 1)
	q.next(t)
	var httpErr *HTTPError
	require.ErrorAs(t, s.State().Err, &httpErr)
	assert.True(t, httpErr.Recoverable)

	fail.Store(false)
	s.Retry()
	assert.True(t, s.State().IsLoading)
	q.next(t)
	assert.Equal(t, 9, s.State().Data.ID)
}

func TestSlot_Post(t *testing.T) {
	srv := jsonServer(t, nil)
	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(), q.post, WithSlotLogger(testutil.DiscardLogger()))

	s.Post(srv.URL+"/echo", map[string]int{"id": 42}, "req-1")
	q.next(t)
	require.NoError(t, s.State().Err)
	assert.Equal(t, 42, s.State().Data.ID)
}

func TestSlot_Close(t *testing.T) {
	doer := newScriptedDoer()
	q := make(queue, 8)
	s := NewSlot[item]("test", NewTransport(WithClient(doer)), q.post, WithSlotLogger(testutil.DiscardLogger()))

	calls := 0
	s.OnChange(func(Result[item]) { calls++ })
	s.Fetch("http://backend/a", "A")
	require.Equal(t, 1, calls)

	s.Close()
	doer.release("/a", http.StatusOK, `{"id": 1}`)
	q.next(t)
	assert.Equal(t, 1, calls)
}

func TestTransport_HeadersAndCache(t *testing.T) {
	var hits int32
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rec := newRecorder()
	tr := NewTransport(
		WithUserAgent("ipredict-test/1.0"),
		WithCache(cache.NewResponses(8, time.Minute)),
		WithRecorder(rec),
		WithRateLimit(100, 2),
		WithTransportLogger(testutil.DiscardLogger()),
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		body, err := tr.Get(ctx, srv.URL+"/epc?lat=1&lon=2&top=10")
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(body))
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "ipredict-test/1.0", gotUA.Load())
	assert.Equal(t, 2, rec.hits)
	assert.Equal(t, 1, rec.misses)
}

func TestTransport_CancelledContext(t *testing.T) {
	tr := NewTransport(WithClient(newScriptedDoer()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Get(ctx, "http://backend/a")
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
}

func TestNewHTTPError(t *testing.T) {
	tests := []struct {
		status      int
		guidance    string
		recoverable bool
	}{
		{http.StatusTooManyRequests, GuidanceRateLimit, true},
		{http.StatusGatewayTimeout, GuidanceTimeout, true},
		{http.StatusBadRequest, GuidanceBadRequest, false},
		{http.StatusNotFound, GuidanceNotFound, false},
		{http.StatusInternalServerError, GuidanceServerError, true},
		{http.StatusServiceUnavailable, GuidanceUnavailable, true},
		{http.StatusTeapot, GuidanceGeneral, false},
	}

	for _, tc := range tests {
		err := NewHTTPError("backend", tc.status, "msg")
		assert.Equal(t, tc.guidance, err.Guidance, "status %d", tc.status)
		assert.Equal(t, tc.recoverable, err.Recoverable, "status %d", tc.status)
		assert.Contains(t, err.Error(), "backend responded")
	}

	assert.False(t, IsCancelled(errors.New("x")))
	assert.Equal(t, GuidanceTimeout, Guidance(context.DeadlineExceeded))
}
