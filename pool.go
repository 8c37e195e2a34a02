package schedex

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ngicks/workerpool"
	"github.com/rs/zerolog"

	"github.com/schedex/schedex/eventloop"
)

// RemoteWork is a unit of work executed on a PoolExecutor's worker pool.
// It runs on a worker goroutine and receives the scheduling loop's Remote
// so it may submit further continuations back onto the loop.
type RemoteWork func(r eventloop.Remote)

type poolItem struct {
	fn     RemoteWork
	remote eventloop.Remote
}

var _ workerpool.WorkExecuter[string, poolItem] = &poolRunner{}

type poolRunner struct {
	log zerolog.Logger
}

func (p *poolRunner) Exec(ctx context.Context, id string, item poolItem) error {
	p.log.Debug().Str("worker", id).Msg("executing dispatched work")
	item.fn(item.remote)
	return nil
}

// PoolExecutor composes an Executor, which keeps the timing, with a
// fixed-size worker pool, which runs the work. The scheduling goroutine
// returns right after hand-off, so a slow task does not delay other series
// scheduled on the same executor.
type PoolExecutor struct {
	inner    *poolInner
	released uint32
}

type poolInner struct {
	refs int32
	endState
	executor *Executor
	pool     *workerpool.Pool[string, poolItem]
	workers  int
	closing  chan struct{}
	log      zerolog.Logger
}

// NewPool builds a PoolExecutor with the given number of workers and a
// dedicated underlying Executor. The name configured through opts is
// shared by the executor and the pool's log output.
func NewPool(workers int, opts ...Option) (*PoolExecutor, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers=[%d]", ErrInvalidArg, workers)
	}
	ex, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return newPoolWith(workers, ex), nil
}

// NewPoolWithExecutor is like NewPool but schedules on a clone of the
// given executor instead of creating a new one.
//
// panic: if workers is non-positive.
func NewPoolWithExecutor(workers int, ex *Executor) *PoolExecutor {
	if workers <= 0 {
		panic(fmt.Errorf("%w: workers=[%d]", ErrInvalidArg, workers))
	}
	return newPoolWith(workers, ex.Clone())
}

func newPoolWith(workers int, ex *Executor) *PoolExecutor {
	pool := workerpool.New[string, poolItem](
		&poolRunner{log: ex.inner.log},
		workerpool.NewUuidPool(),
	)
	pool.Add(workers)
	pool.WaitUntil(func(alive, sleeping, active int) bool {
		return alive >= workers
	})

	inner := &poolInner{
		refs:     1,
		executor: ex,
		pool:     pool,
		workers:  workers,
		closing:  make(chan struct{}),
		log:      ex.inner.log,
	}
	return &PoolExecutor{inner: inner}
}

// Executor returns the underlying scheduling executor.
func (p *PoolExecutor) Executor() *Executor {
	return p.inner.executor
}

// ScheduleFixedRate schedules work to run every interval, executing each
// dispatch on the worker pool. Scheduling delegates to the underlying
// executor's fixed-interval loop: the loop goroutine only measures the
// hand-off, which takes near-zero time, so interval and rate coincide at
// the scheduling layer and the fixed-rate backlog arithmetic never
// engages. The first run happens after initial.
func (p *PoolExecutor) ScheduleFixedRate(initial, interval time.Duration, work RemoteWork) *CancelToken {
	if work == nil {
		panic(fmt.Errorf("%w: work is nil", ErrInvalidArg))
	}

	inner := p.inner
	return inner.executor.ScheduleFixedInterval(initial, interval, func(h *eventloop.Handle) {
		item := poolItem{fn: work, remote: h.Remote()}
		select {
		case inner.pool.Sender() <- item:
		default:
			// All workers busy. Hand off from a fresh goroutine so the
			// scheduling loop is never stalled by pool back-pressure.
			inner.log.Debug().Msg("pool intake contended, handing off asynchronously")
			go func() {
				select {
				case inner.pool.Sender() <- item:
				case <-inner.closing:
				}
			}()
		}
	})
}

// Clone returns a new handle sharing the same underlying pool and
// executor. The receiver must not have been closed yet.
func (p *PoolExecutor) Clone() *PoolExecutor {
	atomic.AddInt32(&p.inner.refs, 1)
	return &PoolExecutor{inner: p.inner}
}

// Close releases this handle. On the last release the underlying executor
// is closed first, so no further dispatch reaches the pool, then all
// workers are removed and Close blocks until in-flight work has drained.
// Redundant calls on the same handle are no-ops.
func (p *PoolExecutor) Close() {
	if !atomic.CompareAndSwapUint32(&p.released, 0, 1) {
		return
	}
	if atomic.AddInt32(&p.inner.refs, -1) > 0 {
		return
	}
	if !p.inner.setEnded() {
		return
	}
	p.inner.executor.Close()
	close(p.inner.closing)
	p.inner.pool.Remove(p.inner.workers)
	p.inner.pool.Wait()
}
