// Package debounce coalesces bursts of calls into a single call carrying the
// arguments of the last one.
package debounce

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the quiet window used for map clicks.
const DefaultQuietPeriod = 250 * time.Millisecond

// Timer is the handle returned by a Scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler func(d time.Duration, f func()) Timer

func realScheduler(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Coalescer.
type Option func(*options)

type options struct {
	schedule  Scheduler
	dispatch  func(func())
	coalesced func()
}

// WithScheduler replaces time.AfterFunc. Tests use it to drive a fake clock.
func WithScheduler(s Scheduler) Option {
	return func(o *options) { o.schedule = s }
}

// WithDispatcher routes the final call through dispatch, typically
// loop.Post, instead of running it on the timer goroutine.
func WithDispatcher(dispatch func(func())) Option {
	return func(o *options) { o.dispatch = dispatch }
}

// WithCoalescedHook registers a callback invoked once for every call that is
// superseded before it fires.
func WithCoalescedHook(fn func()) Option {
	return func(o *options) { o.coalesced = fn }
}

// Coalescer wraps fn so that only the last of a burst of calls is applied,
// after the quiet period has passed with no further calls.
//
// It is a two-state machine: idle, or pending with the latest arguments and a
// generation number. Every Call bumps the generation, so a timer that fired
// but lost the race with a newer Call finds a stale generation and does
// nothing.
type Coalescer[T any] struct {
	delay time.Duration
	fn    func(T)
	opts  options

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	pending bool
	args    T
}

// New creates a Coalescer with quiet period d.
func New[T any](d time.Duration, fn func(T), opts ...Option) *Coalescer[T] {
	o := options{
		schedule: realScheduler,
		dispatch: func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coalescer[T]{delay: d, fn: fn, opts: o}
}

// Call records v as the pending arguments and restarts the quiet period.
func (c *Coalescer[T]) Call(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		c.timer.Stop()
		if c.opts.coalesced != nil {
			c.opts.coalesced()
		}
	}
	c.gen++
	c.pending = true
	c.args = v

	gen := c.gen
	c.timer = c.opts.schedule(c.delay, func() { c.fire(gen) })
}

// Flush applies the pending call now, through the dispatcher, if any.
func (c *Coalescer[T]) Flush() {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return
	}
	c.timer.Stop()
	gen := c.gen
	c.mu.Unlock()

	c.fire(gen)
}

// Cancel drops the pending call without applying it.
func (c *Coalescer[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		c.timer.Stop()
	}
	c.gen++
	c.pending = false
	var zero T
	c.args = zero
}

// Pending reports whether a call has yet to be applied.
func (c *Coalescer[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// fire hands the call to the dispatcher. The generation is checked again
// when the dispatched closure runs, so a Cancel or a newer Call issued while
// the closure was queued still wins.
func (c *Coalescer[T]) fire(gen uint64) {
	c.mu.Lock()
	live := c.pending && gen == c.gen
	c.mu.Unlock()
	if !live {
		return
	}
	c.opts.dispatch(func() { c.apply(gen) })
}

func (c *Coalescer[T]) apply(gen uint64) {
	c.mu.Lock()
	if !c.pending || gen != c.gen {
		c.mu.Unlock()
		return
	}
	v := c.args
	c.pending = false
	var zero T
	c.args = zero
	c.mu.Unlock()

	c.fn(v)
}
