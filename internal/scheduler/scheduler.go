// Package scheduler provides a cooperative timer facility driven by the host tick.
package scheduler

import (
	"math/rand/v2"
	"time"

	"github.com/OCAP2/underwater/pkg/host"
)

type task struct {
	due       time.Duration
	interval  time.Duration
	jitter    time.Duration
	fn        func()
	cancelled bool
}

// TickScheduler implements host.Scheduler on a simulated clock that only moves
// when Advance is called. It is not safe for concurrent use; the host tick
// owns it.
type TickScheduler struct {
	now   time.Duration
	rng   *rand.Rand
	tasks []*task
}

var _ host.Scheduler = (*TickScheduler)(nil)

// New creates a scheduler. A nil rng uses a randomly seeded source.
func New(rng *rand.Rand) *TickScheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &TickScheduler{rng: rng}
}

// Repeat schedules fn to run roughly every interval.
func (s *TickScheduler) Repeat(interval, jitter time.Duration, fn func()) host.CancelFunc {
	t := &task{
		interval: interval,
		jitter:   jitter,
		fn:       fn,
	}
	t.due = s.now + s.period(t)
	s.tasks = append(s.tasks, t)

	return func() {
		t.cancelled = true
	}
}

// Advance moves the clock forward by dt and fires every task that became due.
// Each task fires at most once per call.
func (s *TickScheduler) Advance(dt time.Duration) {
	s.now += dt

	// tasks scheduled during this pass wait for the next one
	pending := s.tasks[:len(s.tasks):len(s.tasks)]
	for _, t := range pending {
		if t.cancelled || t.due > s.now {
			continue
		}
		t.fn()
		if !t.cancelled {
			t.due = s.now + s.period(t)
		}
	}

	s.compact()
}

// Now returns the simulated clock.
func (s *TickScheduler) Now() time.Duration {
	return s.now
}

// Len returns the number of live tasks.
func (s *TickScheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if !t.cancelled {
			n++
		}
	}
	return n
}

func (s *TickScheduler) period(t *task) time.Duration {
	p := t.interval
	if t.jitter > 0 {
		p += time.Duration((2*s.rng.Float64() - 1) * float64(t.jitter))
	}
	if p <= 0 {
		p = time.Millisecond
	}
	return p
}

func (s *TickScheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}
