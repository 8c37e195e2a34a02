package schedex

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ngicks/gommon/pkg/common"
	"github.com/ngicks/gommon/pkg/randstr"
	"github.com/rs/zerolog"

	"github.com/schedex/schedex/eventloop"
)

var nameGen = randstr.New(randstr.EncoderFactory(hex.NewEncoder))

func defaultName(prefix string) string {
	suffix, err := nameGen.StringLen(4)
	if err != nil {
		return prefix
	}
	return prefix + "-" + suffix
}

type config struct {
	name   string
	log    zerolog.Logger
	getNow common.NowGetter
	timer  common.Timer
}

type Option func(c *config)

// WithName sets the executor name, used in log output. Defaults to
// "executor" with a random suffix.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithLogger sets the logger. Defaults to zerolog.Nop().
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

// WithClock swaps the wall clock. Defaults to the real clock.
func WithClock(getNow common.NowGetter) Option {
	return func(c *config) {
		c.getNow = getNow
	}
}

// WithTimer swaps the loop's underlying timer. Defaults to a real timer.
func WithTimer(timer common.Timer) Option {
	return func(c *config) {
		c.timer = timer
	}
}

func newConfig(opts []Option) config {
	c := config{
		log:    zerolog.Nop(),
		getNow: common.NowGetterReal{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.name == "" {
		c.name = defaultName("executor")
	}
	if c.timer == nil {
		c.timer = common.NewTimerReal()
	}
	return c
}

// Executor owns a single background goroutine hosting an event loop that
// both arms timers and runs the scheduled work. Series scheduled on the
// same executor execute sequentially on that goroutine; a long-running
// task delays every other series on it.
//
// Clone shares the underlying loop; the loop is torn down, exactly once,
// when the last handle is closed.
type Executor struct {
	inner    *executorInner
	released uint32
}

type executorInner struct {
	refs int32
	endState
	name   string
	log    zerolog.Logger
	getNow common.NowGetter
	term   chan struct{}
	loop   *eventloop.Loop
	remote eventloop.Remote
}

// New spawns the background loop goroutine, blocking until the loop's
// remote submission handle has been handed back to the constructor.
func New(opts ...Option) (*Executor, error) {
	c := newConfig(opts)

	inner := &executorInner{
		refs:   1,
		name:   c.name,
		log:    c.log.With().Str("executor", c.name).Logger(),
		getNow: c.getNow,
		term:   make(chan struct{}),
	}

	loopCh := make(chan *eventloop.Loop)
	go func() {
		loop := eventloop.New(c.getNow, c.timer)
		loopCh <- loop
		inner.log.Debug().Msg("event loop starting")
		loop.Run(inner.term)
		inner.log.Debug().Msg("event loop terminated")
	}()
	inner.loop = <-loopCh
	inner.remote = inner.loop.Remote()

	return &Executor{inner: inner}, nil
}

// Remote returns the loop's goroutine-safe submission handle.
func (e *Executor) Remote() eventloop.Remote {
	return e.inner.remote
}

// Name returns the executor name.
func (e *Executor) Name() string {
	return e.inner.name
}

// ScheduleFixedInterval schedules work to run every interval, measured
// from the completion of the previous run: an execution that overruns the
// interval permanently shifts all subsequent firings later. The first run
// happens after initial.
func (e *Executor) ScheduleFixedInterval(initial, interval time.Duration, work Work) *CancelToken {
	return e.schedule(fixedInterval, initial, interval, work)
}

// ScheduleFixedRate schedules work targeting one run per interval on
// long-run average: an execution that overruns the interval creates a
// backlog which shortens subsequent waits until repaid. The first run
// happens after initial.
func (e *Executor) ScheduleFixedRate(initial, interval time.Duration, work Work) *CancelToken {
	return e.schedule(fixedRate, initial, interval, work)
}

// panic: if interval is non-positive or work is nil.
func (e *Executor) schedule(d discipline, initial, interval time.Duration, work Work) *CancelToken {
	if interval <= 0 || work == nil {
		panic(
			fmt.Errorf(
				"%w: interval=[%s], work is nil=[%t]",
				ErrInvalidArg,
				interval,
				work == nil,
			),
		)
	}
	if initial < 0 {
		initial = 0
	}

	token := newCancelToken()
	s := &series{
		id:         uuid.NewString(),
		discipline: d,
		interval:   interval,
		token:      token,
		work:       work,
		getNow:     e.inner.getNow,
		log:        e.inner.log,
	}

	submitted := e.inner.remote.Submit(func(h *eventloop.Handle) {
		h.ArmTimer(initial, s.run)
	})
	if !submitted {
		e.inner.log.Debug().Str("series", s.id).Msg("submission dropped, executor closed")
		return token
	}

	e.inner.log.Debug().
		Str("series", s.id).
		Stringer("discipline", d).
		Dur("initial", initial).
		Dur("interval", interval).
		Msg("series scheduled")
	return token
}

// Clone returns a new handle sharing the same underlying executor. The
// receiver must not have been closed yet.
func (e *Executor) Clone() *Executor {
	atomic.AddInt32(&e.inner.refs, 1)
	return &Executor{inner: e.inner}
}

// Close releases this handle. When the last handle is released, the
// termination signal is sent and Close blocks until the background
// goroutine has fully exited; no timer pending at that point ever fires.
// Redundant calls on the same handle are no-ops.
func (e *Executor) Close() {
	if !atomic.CompareAndSwapUint32(&e.released, 0, 1) {
		return
	}
	if atomic.AddInt32(&e.inner.refs, -1) > 0 {
		return
	}
	if e.inner.setEnded() {
		close(e.inner.term)
		<-e.inner.loop.Done()
	}
}
