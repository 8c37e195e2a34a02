package eventloop

// Remote is a goroutine-safe reference to a Loop, usable to submit
// continuations from any goroutine. Obtain one from Loop.Remote or
// Handle.Remote; the zero value is not usable.
type Remote struct {
	submitCh chan<- Task
	done     <-chan struct{}
}

// Submit queues fn to run on the loop goroutine. It reports false when the
// loop has terminated, in which case fn never runs.
//
// Submit must not be called from the loop goroutine itself; continuations
// already hold a Handle there and can arm work directly.
func (r Remote) Submit(fn Task) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.submitCh <- fn:
		return true
	case <-r.done:
		return false
	}
}
