package state

import (
	"log/slog"
)

// Observer is notified after every dispatch with the states before and
// after the transition.
type Observer func(prev, next State)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithDispatchHook registers fn to be called with every dispatched action,
// before observers run.
func WithDispatchHook(fn func(Action)) StoreOption {
	return func(s *Store) { s.hook = fn }
}

// Store owns the session state. It is not safe for concurrent use; the
// session confines it to the event loop goroutine.
type Store struct {
	initial   State
	current   State
	observers []*Observer
	logger    *slog.Logger
	hook      func(Action)
	count     uint64

	dispatching bool
	queue       []Action
}

// NewStore creates a store whose initial (and Reset) state is initial.
func NewStore(initial State, opts ...StoreOption) *Store {
	s := &Store{
		initial: initial,
		current: initial,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// State returns the current snapshot.
func (s *Store) State() State {
	return s.current
}

// Dispatches returns the number of actions dispatched so far.
func (s *Store) Dispatches() uint64 {
	return s.count
}

// Dispatch applies a and notifies observers in subscription order.
// An action dispatched by an observer is queued and applied once the
// current round of notifications completes, before Dispatch returns, so
// every observer sees transitions in the order they were applied.
func (s *Store) Dispatch(a Action) {
	s.queue = append(s.queue, a)
	if s.dispatching {
		return
	}
	s.dispatching = true
	defer func() { s.dispatching = false }()

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.apply(next)
	}
}

func (s *Store) apply(a Action) {
	prev := s.current
	next := Reduce(s.initial, prev, a)
	s.current = next
	s.count++

	s.logger.Debug("dispatch", "action", a.Name(), "seq", s.count)
	if s.hook != nil {
		s.hook(a)
	}

	for _, obs := range append([]*Observer(nil), s.observers...) {
		if s.subscribed(obs) {
			(*obs)(prev, next)
		}
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	obs := &fn
	s.observers = append(s.observers, obs)
	return func() {
		for i, o := range s.observers {
			if o == obs {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) subscribed(obs *Observer) bool {
	for _, o := range s.observers {
		if o == obs {
			return true
		}
	}
	return false
}
