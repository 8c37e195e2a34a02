package schedex

import (
	"time"

	"github.com/ngicks/gommon/pkg/common"
	"github.com/rs/zerolog"

	"github.com/schedex/schedex/eventloop"
)

// Work is a unit of work scheduled on an Executor. It runs on the
// executor's loop goroutine and receives the loop Handle so it may arm
// further timers or obtain the Remote for cross-goroutine submission.
type Work func(h *eventloop.Handle)

type discipline int

const (
	fixedInterval discipline = iota
	fixedRate
)

func (d discipline) String() string {
	if d == fixedRate {
		return "fixed_rate"
	}
	return "fixed_interval"
}

// series is one repeating schedule. run re-arms itself on the loop after
// every iteration; advance performs exactly one iteration so that the
// timing arithmetic is testable without a live loop.
type series struct {
	id         string
	discipline discipline
	interval   time.Duration
	backlog    time.Duration
	token      *CancelToken
	work       Work
	getNow     common.NowGetter
	log        zerolog.Logger
}

// advance runs one iteration of the series. stopped is true when the token
// was stopped before the iteration began, in which case nothing ran.
// Otherwise wait is the delay until the next iteration, and for fixed-rate
// series the carried backlog has been updated.
func (s *series) advance(h *eventloop.Handle) (wait time.Duration, stopped bool) {
	if s.token.Stopped() {
		return 0, true
	}

	start := s.getNow.GetNow()
	s.work(h)
	execution := s.getNow.GetNow().Sub(start)

	switch s.discipline {
	case fixedRate:
		wait, s.backlog = nextWait(s.interval, execution, s.backlog)
	default:
		wait = s.interval - execution
		if wait < 0 {
			wait = 0
		}
	}
	return wait, false
}

func (s *series) run(h *eventloop.Handle) {
	wait, stopped := s.advance(h)
	if stopped {
		s.log.Debug().Str("series", s.id).Msg("series stopped")
		return
	}
	h.ArmTimer(wait, s.run)
}
