package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/ipredict/pkg/testutil"
)

func fakeScheduler(clock *testutil.FakeClock) Option {
	return WithScheduler(func(d time.Duration, f func()) Timer {
		return clock.AfterFunc(d, f)
	})
}

func TestCoalescer_LastCallWins(t *testing.T) {
	tests := []struct {
		name  string
		calls int
	}{
		{"single call", 1},
		{"two calls", 2},
		{"burst", 25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			clock := testutil.NewFakeClock()
			var got []int
			c := New(DefaultQuietPeriod, func(v int) { got = append(got, v) }, fakeScheduler(clock))

			for i := 1; i <= tc.calls; i++ {
				c.Call(i)
				clock.Advance(DefaultQuietPeriod / 10)
			}
			assert.Empty(t, got, "no call may apply inside the quiet window")

			clock.Advance(DefaultQuietPeriod)
			require.Len(t, got, 1)
			assert.Equal(t, tc.calls, got[0])
			assert.False(t, c.Pending())
		})
	}
}

func TestCoalescer_QuietPeriodRestarts(t *testing.T) {
	clock := testutil.NewFakeClock()
	var got []string
	c := New(DefaultQuietPeriod, func(v string) { got = append(got, v) }, fakeScheduler(clock))

	c.Call("a")
	clock.Advance(200 * time.Millisecond)
	c.Call("b")
	clock.Advance(200 * time.Millisecond)
	assert.Empty(t, got)

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, []string{"b"}, got)
}

func TestCoalescer_SeparateWindows(t *testing.T) {
	clock := testutil.NewFakeClock()
	var got []int
	c := New(DefaultQuietPeriod, func(v int) { got = append(got, v) }, fakeScheduler(clock))

	c.Call(1)
	clock.Advance(time.Second)
	c.Call(2)
	clock.Advance(time.Second)

	assert.Equal(t, []int{1, 2}, got)
}

func TestCoalescer_Cancel(t *testing.T) {
	clock := testutil.NewFakeClock()
	calls := 0
	c := New(DefaultQuietPeriod, func(int) { calls++ }, fakeScheduler(clock))

	c.Call(1)
	assert.True(t, c.Pending())
	c.Cancel()
	assert.False(t, c.Pending())

	clock.Advance(time.Second)
	assert.Zero(t, calls)
}

func TestCoalescer_Flush(t *testing.T) {
	clock := testutil.NewFakeClock()
	var got []int
	c := New(DefaultQuietPeriod, func(v int) { got = append(got, v) }, fakeScheduler(clock))

	c.Flush()
	assert.Empty(t, got)

	c.Call(7)
	c.Flush()
	assert.Equal(t, []int{7}, got)

	clock.Advance(time.Second)
	assert.Equal(t, []int{7}, got, "flushed call must not apply twice")
}

func TestCoalescer_StaleTimerIgnored(t *testing.T) {
	// A timer whose Stop lost the race still runs its callback. The
	// generation check must keep it from applying anything.
	var fired []func()
	sched := WithScheduler(func(d time.Duration, f func()) Timer {
		fired = append(fired, f)
		return noopTimer{}
	})

	var got []int
	c := New(DefaultQuietPeriod, func(v int) { got = append(got, v) }, sched)
	c.Call(1)
	c.Call(2)
	require.Len(t, fired, 2)

	fired[0]()
	assert.Empty(t, got)

	fired[1]()
	assert.Equal(t, []int{2}, got)
}

func TestCoalescer_DispatcherAndHook(t *testing.T) {
	clock := testutil.NewFakeClock()
	var queue []func()
	coalesced := 0

	var got []int
	c := New(DefaultQuietPeriod, func(v int) { got = append(got, v) },
		fakeScheduler(clock),
		WithDispatcher(func(f func()) { queue = append(queue, f) }),
		WithCoalescedHook(func() { coalesced++ }),
	)

	c.Call(1)
	c.Call(2)
	c.Call(3)
	clock.Advance(DefaultQuietPeriod)

	assert.Equal(t, 2, coalesced)
	assert.Empty(t, got, "final call must be routed through the dispatcher")
	assert.True(t, c.Pending(), "a dispatched call stays pending until it runs")
	require.Len(t, queue, 1)
	queue[0]()
	assert.Equal(t, []int{3}, got)
	assert.False(t, c.Pending())
}

func TestCoalescer_CancelWhileQueued(t *testing.T) {
	clock := testutil.NewFakeClock()
	var queue []func()
	calls := 0
	c := New(DefaultQuietPeriod, func(int) { calls++ },
		fakeScheduler(clock),
		WithDispatcher(func(f func()) { queue = append(queue, f) }),
	)

	c.Call(1)
	clock.Advance(DefaultQuietPeriod)
	require.Len(t, queue, 1)

	c.Cancel()
	queue[0]()
	assert.Zero(t, calls)
}

func TestCoalescer_RealTimer(t *testing.T) {
	done := make(chan int, 1)
	c := New(10*time.Millisecond, func(v int) { done <- v })

	for i := 0; i < 5; i++ {
		c.Call(i)
	}

	select {
	case v := <-done:
		assert.Equal(t, 4, v)
	case <-time.After(time.Second):
		t.Fatal("coalesced call never fired")
	}
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }
