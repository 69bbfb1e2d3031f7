package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/NERVsystems/ipredict/pkg/metrics"
)

// Result is the observable state of a Slot.
type Result[T any] struct {
	Data      T
	Err       error
	IsLoading bool
}

// Ready reports whether Data holds a successful response.
func (r Result[T]) Ready() bool {
	return !r.IsLoading && r.Err == nil
}

// SlotOption configures a Slot.
type SlotOption func(*slotOptions)

type slotOptions struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// WithSlotLogger sets the slot's logger.
func WithSlotLogger(logger *slog.Logger) SlotOption {
	return func(o *slotOptions) { o.logger = logger }
}

// WithSlotRecorder sets the metrics recorder for fetch outcomes.
func WithSlotRecorder(r metrics.Recorder) SlotOption {
	return func(o *slotOptions) { o.recorder = r }
}

type request func(ctx context.Context) ([]byte, error)

// Validator is implemented by response types that can tell a well-formed
// body from one that merely decoded without error.
type Validator interface {
	Validate() error
}

var errNullBody = errors.New("response body is null")

// decode unmarshals body into a T and rejects a null body or a value whose
// Validate method fails.
func decode[T any](body []byte) (T, error) {
	var data T
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return data, errNullBody
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return data, err
	}
	if v, ok := any(&data).(Validator); ok {
		if err := v.Validate(); err != nil {
			return data, err
		}
	}
	return data, nil
}

// Slot is one logical fetch whose result depends on a key. Whenever the key
// changes, the in-flight request is cancelled before a new one starts, and a
// response belonging to an older key is dropped on arrival.
//
// A Slot is confined to one goroutine: every method, the completion
// callbacks and the OnChange observers run on the goroutine behind
// dispatch, normally the session's event loop.
type Slot[T any] struct {
	name      string
	transport *Transport
	dispatch  func(func())
	opts      slotOptions
	logger    *slog.Logger

	gen     uint64
	cancel  context.CancelFunc
	key     any
	hasKey  bool
	url     string
	last    request
	started time.Time

	result    Result[T]
	empty     bool
	observers []*func(Result[T])
}

// NewSlot creates an idle slot. dispatch must run the function it is given
// on the slot's goroutine, later; loop.Post does exactly that.
func NewSlot[T any](name string, transport *Transport, dispatch func(func()), opts ...SlotOption) *Slot[T] {
	o := slotOptions{
		logger:   slog.Default(),
		recorder: metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Slot[T]{
		name:      name,
		transport: transport,
		dispatch:  dispatch,
		opts:      o,
		logger:    o.logger.With("component", "fetch", "slot", name),
		empty:     true,
	}
}

// Name returns the slot name used in logs and metrics.
func (s *Slot[T]) Name() string { return s.name }

// State returns the current result.
func (s *Slot[T]) State() Result[T] { return s.result }

// Key returns the dependency key of the current or last request.
func (s *Slot[T]) Key() (any, bool) { return s.key, s.hasKey }

// OnChange registers fn to be called after every result change. It returns
// a function that removes the observer.
func (s *Slot[T]) OnChange(fn func(Result[T])) (unsubscribe func()) {
	p := &fn
	s.observers = append(s.observers, p)
	return func() {
		for i, o := range s.observers {
			if o == p {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Fetch GETs url under key. An empty url clears the slot. Calling Fetch
// again with the current key does nothing. Keys must be comparable.
func (s *Slot[T]) Fetch(url string, key any) {
	if url == "" {
		s.Clear()
		return
	}
	if s.hasKey && s.key == key {
		return
	}
	s.start(key, url, func(ctx context.Context) ([]byte, error) {
		return s.transport.Get(ctx, url)
	})
}

// Post sends body as JSON to url under key, with the same key rules as Fetch.
func (s *Slot[T]) Post(url string, body any, key any) {
	if url == "" {
		s.Clear()
		return
	}
	if s.hasKey && s.key == key {
		return
	}
	s.start(key, url, func(ctx context.Context) ([]byte, error) {
		return s.transport.PostJSON(ctx, url, body)
	})
}

// Retry reissues the last request under the same key. It does nothing if
// the slot is idle or a request is already in flight.
func (s *Slot[T]) Retry() {
	if !s.hasKey || s.last == nil || s.result.IsLoading {
		return
	}
	s.start(s.key, s.url, s.last)
}

// Clear cancels any in-flight request and resets the result.
func (s *Slot[T]) Clear() {
	s.abort()
	s.gen++
	s.key, s.hasKey, s.url, s.last = nil, false, "", nil

	if !s.empty {
		s.set(Result[T]{})
		s.empty = true
	}
}

// Close cancels any in-flight request and drops all observers.
func (s *Slot[T]) Close() {
	s.abort()
	s.gen++
	s.observers = nil
}

func (s *Slot[T]) abort() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	if s.result.IsLoading {
		s.opts.recorder.FetchCompleted(s.name, metrics.OutcomeCancelled, s.opts.now().Sub(s.started))
		s.logger.Debug("request cancelled", "key", s.key)
	}
}

func (s *Slot[T]) start(key any, url string, req request) {
	s.abort()
	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.key, s.hasKey, s.url, s.last = key, true, url, req
	s.started = s.opts.now()

	s.logger.Debug("request started", "key", key, "gen", gen)
	s.set(Result[T]{IsLoading: true})

	go func() {
		body, err := req(ctx)
		s.dispatch(func() { s.complete(gen, body, err) })
	}()
}

func (s *Slot[T]) complete(gen uint64, body []byte, err error) {
	elapsed := s.opts.now().Sub(s.started)

	if gen != s.gen {
		// Superseded or cleared. A cancelled request was already counted.
		if !IsCancelled(err) {
			s.opts.recorder.FetchCompleted(s.name, metrics.OutcomeStale, elapsed)
		}
		s.logger.Debug("dropping stale response", "gen", gen, "current", s.gen)
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if err != nil && IsCancelled(err) {
		return
	}

	if err == nil {
		data, decodeErr := decode[T](body)
		if decodeErr != nil {
			err = &DecodeError{URL: s.url, Err: decodeErr}
		} else {
			s.opts.recorder.FetchCompleted(s.name, metrics.OutcomeSuccess, elapsed)
			s.set(Result[T]{Data: data})
			return
		}
	}

	s.opts.recorder.FetchCompleted(s.name, metrics.OutcomeError, elapsed)
	s.logger.Warn("request failed", "key", s.key, "error", err)
	s.set(Result[T]{Err: err})
}

func (s *Slot[T]) set(r Result[T]) {
	s.result = r
	s.empty = false
	observers := make([]*func(Result[T]), len(s.observers))
	copy(observers, s.observers)
	for _, obs := range observers {
		(*obs)(r)
	}
}
