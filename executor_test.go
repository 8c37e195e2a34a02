package schedex_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedex/schedex"
	"github.com/schedex/schedex/eventloop"
)

const interval = 100 * time.Millisecond

// window covers 5.5 intervals: with a zero initial delay a healthy
// fixed-rate series fires 6 times inside it.
const window = 550 * time.Millisecond

func TestExecutor_fixed_rate_spacing(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ex, err := schedex.New(schedex.WithName("spacing-test"))
	require.NoError(err)

	var mu sync.Mutex
	var fires []time.Time
	ex.ScheduleFixedRate(0, interval, func(h *eventloop.Handle) {
		mu.Lock()
		fires = append(fires, time.Now())
		mu.Unlock()
	})

	time.Sleep(window)
	ex.Close()

	require.Len(fires, 6)
	for i := 1; i < len(fires); i++ {
		gap := fires[i].Sub(fires[i-1])
		assert.InDelta(float64(interval), float64(gap), float64(30*time.Millisecond),
			"gap %d out of tolerance: %s", i, gap)
	}
}

func TestExecutor_fixed_rate_slow_task_catches_up(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)

	var count int64
	ex.ScheduleFixedRate(0, interval, func(h *eventloop.Handle) {
		if atomic.AddInt64(&count, 1) == 1 {
			time.Sleep(3 * interval)
		}
	})

	time.Sleep(window + 10*time.Millisecond)
	ex.Close()

	// The 3-interval overrun is repaid by back-to-back fires, so the
	// total matches the healthy series.
	require.EqualValues(6, atomic.LoadInt64(&count))
}

func TestExecutor_fixed_interval_slow_task_does_not_catch_up(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)

	var count int64
	ex.ScheduleFixedInterval(0, interval, func(h *eventloop.Handle) {
		if atomic.AddInt64(&count, 1) == 1 {
			time.Sleep(3 * interval)
		}
	})

	time.Sleep(window + 10*time.Millisecond)
	ex.Close()

	// Fires at 0, 3, 4 and 5 intervals: lost time stays lost.
	require.EqualValues(4, atomic.LoadInt64(&count))
}

func TestExecutor_stop_leaves_other_series_untouched(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)

	var count1, count2 int64
	token1 := ex.ScheduleFixedRate(0, interval, func(h *eventloop.Handle) {
		atomic.AddInt64(&count1, 1)
	})
	ex.ScheduleFixedRate(0, interval, func(h *eventloop.Handle) {
		atomic.AddInt64(&count2, 1)
	})

	time.Sleep(window)
	token1.Stop()
	time.Sleep(window - 50*time.Millisecond)
	ex.Close()

	require.EqualValues(6, atomic.LoadInt64(&count1))
	require.EqualValues(11, atomic.LoadInt64(&count2))
}

func TestExecutor_token_is_idempotent_and_observable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)
	defer ex.Close()

	token := ex.ScheduleFixedInterval(0, interval, func(h *eventloop.Handle) {})
	assert.False(token.Stopped())
	token.Stop()
	token.Stop()
	assert.True(token.Stopped())
}

func TestExecutor_close_stops_all_series(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)

	var count int64
	ex.ScheduleFixedRate(0, 50*time.Millisecond, func(h *eventloop.Handle) {
		atomic.AddInt64(&count, 1)
	})

	time.Sleep(220 * time.Millisecond)
	ex.Close()

	// Close blocks until the loop goroutine has exited, so the count is
	// final once it returns.
	snapshot := atomic.LoadInt64(&count)
	require.Greater(snapshot, int64(0))

	time.Sleep(200 * time.Millisecond)
	require.Equal(snapshot, atomic.LoadInt64(&count))
}

func TestExecutor_clone_shares_the_underlying_loop(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)

	clone := ex.Clone()

	var count int64
	clone.ScheduleFixedRate(0, 50*time.Millisecond, func(h *eventloop.Handle) {
		atomic.AddInt64(&count, 1)
	})

	// Releasing one of two handles must not tear the loop down.
	ex.Close()
	time.Sleep(120 * time.Millisecond)
	require.Greater(atomic.LoadInt64(&count), int64(0))

	clone.Close()
	snapshot := atomic.LoadInt64(&count)
	time.Sleep(150 * time.Millisecond)
	require.Equal(snapshot, atomic.LoadInt64(&count))

	// Redundant closes are no-ops.
	ex.Close()
	clone.Close()
}

func TestExecutor_schedule_after_close_yields_dead_token(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)
	ex.Close()

	var count int64
	token := ex.ScheduleFixedRate(0, 10*time.Millisecond, func(h *eventloop.Handle) {
		atomic.AddInt64(&count, 1)
	})
	require.NotNil(token)

	time.Sleep(50 * time.Millisecond)
	require.Zero(atomic.LoadInt64(&count))
}

func TestExecutor_schedule_panics_on_invalid_args(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)
	defer ex.Close()

	assert.Panics(func() {
		ex.ScheduleFixedRate(0, 0, func(h *eventloop.Handle) {})
	})
	assert.Panics(func() {
		ex.ScheduleFixedInterval(0, -time.Second, func(h *eventloop.Handle) {})
	})
	assert.Panics(func() {
		ex.ScheduleFixedRate(0, time.Second, nil)
	})
}

func TestExecutor_initial_delay_defers_first_fire(t *testing.T) {
	require := require.New(t)

	ex, err := schedex.New()
	require.NoError(err)

	var count int64
	ex.ScheduleFixedInterval(150*time.Millisecond, interval, func(h *eventloop.Handle) {
		atomic.AddInt64(&count, 1)
	})

	time.Sleep(100 * time.Millisecond)
	require.Zero(atomic.LoadInt64(&count))

	time.Sleep(100 * time.Millisecond)
	ex.Close()
	require.EqualValues(1, atomic.LoadInt64(&count))
}

func TestExecutor_named(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ex, err := schedex.New(schedex.WithName("my-executor"))
	require.NoError(err)
	defer ex.Close()
	assert.Equal("my-executor", ex.Name())

	anon, err := schedex.New()
	require.NoError(err)
	defer anon.Close()
	assert.NotEmpty(anon.Name())
}
