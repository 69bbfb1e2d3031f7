package session

import (
	"time"
)

// DefaultFrameInterval drives the radius animation at 60 frames per second.
const DefaultFrameInterval = time.Second / 60

// frameTicker posts animation frames to the event loop while there is
// something to animate and goes quiet once the animation rests. All methods
// run on the loop goroutine.
type frameTicker struct {
	interval time.Duration
	post     func(func())
	frame    func(dt time.Duration) (atRest bool)

	stop chan struct{}
	last time.Time
}

func newFrameTicker(interval time.Duration, post func(func()), frame func(time.Duration) bool) *frameTicker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &frameTicker{interval: interval, post: post, frame: frame}
}

// Wake starts ticking if it is not already running.
func (f *frameTicker) Wake() {
	if f.stop != nil {
		return
	}
	stop := make(chan struct{})
	f.stop = stop
	f.last = time.Now()

	go func() {
		t := time.NewTicker(f.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				f.post(func() { f.tick(stop) })
			case <-stop:
				return
			}
		}
	}()
}

// Running reports whether frames are being produced.
func (f *frameTicker) Running() bool {
	return f.stop != nil
}

// Stop halts the ticker.
func (f *frameTicker) Stop() {
	if f.stop == nil {
		return
	}
	close(f.stop)
	f.stop = nil
}

func (f *frameTicker) tick(stop chan struct{}) {
	// Frames queued by a ticker that has since been stopped are ignored.
	if f.stop != stop {
		return
	}
	now := time.Now()
	dt := now.Sub(f.last)
	f.last = now

	if f.frame(dt) {
		f.Stop()
	}
}
