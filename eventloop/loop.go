// Package eventloop implements the single-goroutine reactor backing an
// executor: it waits on armed timers and cross-goroutine submissions and
// runs the associated continuations, all on the one goroutine that called
// Run.
package eventloop

import (
	"errors"
	"fmt"
	"time"

	"github.com/ngicks/gommon/pkg/common"
)

var (
	ErrInvalidArg = errors.New("invalid argument")
)

// Task is a continuation run on the loop goroutine.
type Task func(h *Handle)

// Loop is a single-threaded event dispatcher. Continuations and timer
// callbacks run sequentially on the goroutine driving Run; a long-running
// continuation delays every other timer armed on the same loop. One
// hardware timer is kept armed at the earliest pending deadline.
type Loop struct {
	submitCh chan Task
	done     chan struct{}
	timers   timerQueue
	getNow   common.NowGetter
	timer    common.Timer
	handle   *Handle
}

// New creates a Loop using getNow as its clock and timer as the single
// underlying timer. timer must be in the stopped state.
//
// panic: if getNow or timer is nil.
func New(getNow common.NowGetter, timer common.Timer) *Loop {
	if getNow == nil || timer == nil {
		panic(
			fmt.Errorf(
				"%w: one or more of arguments is nil. getNow is nil=[%t], timer is nil=[%t]",
				ErrInvalidArg,
				getNow == nil,
				timer == nil,
			),
		)
	}
	l := &Loop{
		submitCh: make(chan Task),
		done:     make(chan struct{}),
		getNow:   getNow,
		timer:    timer,
	}
	l.handle = &Handle{loop: l}
	return l
}

// Remote returns a goroutine-safe handle for submitting continuations onto
// the loop from anywhere. Copies of the returned value share the loop.
func (l *Loop) Remote() Remote {
	return Remote{submitCh: l.submitCh, done: l.done}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run drives the loop until term is closed. Timers still pending at
// termination never fire. Run must be called exactly once, from the
// goroutine that is to own the loop.
func (l *Loop) Run(term <-chan struct{}) {
	defer close(l.done)
	defer l.timer.Stop()

	for {
		select {
		case <-term:
			return
		case task := <-l.submitCh:
			task(l.handle)
			l.rearm()
		case <-l.timer.C():
			now := l.getNow.GetNow()
			for _, ent := range l.timers.popDue(now) {
				ent.fn(l.handle)
			}
			l.rearm()
		}
	}
}

// rearm points the underlying timer at the current earliest deadline. A
// deadline already in the past makes the timer fire on the next loop turn.
func (l *Loop) rearm() {
	if !l.timer.Stop() {
		select {
		case <-l.timer.C():
		default:
		}
	}
	if min := l.timers.peek(); min != nil {
		l.timer.Reset(min.at.Sub(l.getNow.GetNow()))
	}
}

// Handle is the on-loop API handed to every continuation. It must only be
// used from the loop goroutine.
type Handle struct {
	loop *Loop
}

// ArmTimer registers fn to run on the loop goroutine once d has elapsed.
// A non-positive d fires on the next loop turn.
func (h *Handle) ArmTimer(d time.Duration, fn Task) {
	l := h.loop
	l.timers.push(&timerEntry{at: l.getNow.GetNow().Add(d), fn: fn})
}

// Remote returns the loop's goroutine-safe submission handle.
func (h *Handle) Remote() Remote {
	return h.loop.Remote()
}
