package schedex

import "time"

// nextWait computes the wait until the next fixed-rate iteration and the
// backlog carried into it. execution is the duration the iteration just
// observed; backlog is scheduling debt accumulated by earlier overruns.
//
// An execution of at least one interval consumes the whole period and
// grows the backlog by the overshoot. Otherwise the iteration has slack:
// the slack first repays backlog, and only what remains is waited. This
// keeps the long-run firing rate at one per interval regardless of any
// single overrun.
//
// Pure and total for interval > 0, execution >= 0, backlog >= 0; both
// results are >= 0.
func nextWait(interval, execution, backlog time.Duration) (wait, newBacklog time.Duration) {
	if execution >= interval {
		return 0, backlog + execution - interval
	}
	slack := interval - execution
	switch {
	case backlog == 0:
		return slack, 0
	case backlog < slack:
		return slack - backlog, 0
	default:
		return 0, backlog - slack
	}
}
