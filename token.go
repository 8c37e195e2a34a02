package schedex

import "sync/atomic"

// CancelToken stops one scheduled series. A new token is returned every
// time a series is scheduled. Stopping a series prevents it from running
// the next time it is due, but never interrupts an execution that is
// already in flight.
//
// The token is a shared flag: every holder of the same *CancelToken
// observes the same state. Once stopped it never reverts.
type CancelToken struct {
	stopped uint32
}

func newCancelToken() *CancelToken {
	return &CancelToken{}
}

// Stop prevents any further iteration of the series. Idempotent.
func (t *CancelToken) Stop() {
	atomic.CompareAndSwapUint32(&t.stopped, 0, 1)
}

// Stopped reports whether Stop has been called.
func (t *CancelToken) Stopped() bool {
	return atomic.LoadUint32(&t.stopped) == 1
}
