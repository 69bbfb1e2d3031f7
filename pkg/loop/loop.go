// Package loop provides a single-goroutine event loop. Timer firings,
// network completions and animation frames post closures here so that all
// session state is mutated from one goroutine, in arrival order.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Do when the loop has exited.
var ErrStopped = errors.New("event loop stopped")

// Loop executes posted closures sequentially on the goroutine that calls Run.
type Loop struct {
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}

	stopOnce sync.Once
	doneOnce sync.Once
}

// New creates an idle loop. Call Run to start processing.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger.With("component", "loop"),
		wake:   make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and is safe to call from any goroutine,
// including from inside a closure running on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits for it to finish. It must not be called from the
// loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// The closure may have run just before the loop exited.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Run processes closures until ctx is cancelled or Stop is called. Closures
// still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) error {
	defer l.doneOnce.Do(func() { close(l.done) })

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		l.drain(ctx)
		select {
		case <-ctx.Done():
			if isStopped(l.stop) {
				return nil
			}
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Stop asks Run to return. It is idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func isStopped(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain(ctx context.Context) {
	for ctx.Err() == nil {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.run(fn)
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("recovered panic in event loop", "panic", r)
		}
	}()
	fn()
}
