package scheduler

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *TickScheduler {
	return New(rand.New(rand.NewPCG(1, 2)))
}

func TestRepeat_FiresOnInterval(t *testing.T) {
	s := newTestScheduler()

	fired := 0
	s.Repeat(250*time.Millisecond, 0, func() { fired++ })

	s.Advance(100 * time.Millisecond)
	assert.Equal(t, 0, fired)

	s.Advance(150 * time.Millisecond)
	assert.Equal(t, 1, fired)

	for i := 0; i < 4; i++ {
		s.Advance(250 * time.Millisecond)
	}
	assert.Equal(t, 5, fired)
}

func TestRepeat_JitterStaysInBounds(t *testing.T) {
	s := newTestScheduler()

	var fireTimes []time.Duration
	s.Repeat(250*time.Millisecond, 50*time.Millisecond, func() {
		fireTimes = append(fireTimes, s.Now())
	})

	for i := 0; i < 2000; i++ {
		s.Advance(time.Millisecond)
	}

	require.Greater(t, len(fireTimes), 5)
	prev := time.Duration(0)
	for _, ft := range fireTimes {
		gap := ft - prev
		assert.GreaterOrEqual(t, gap, 199*time.Millisecond)
		assert.LessOrEqual(t, gap, 301*time.Millisecond)
		prev = ft
	}
}

func TestCancel_StopsFutureFires(t *testing.T) {
	s := newTestScheduler()

	fired := 0
	cancel := s.Repeat(10*time.Millisecond, 0, func() { fired++ })

	s.Advance(10 * time.Millisecond)
	require.Equal(t, 1, fired)

	cancel()
	assert.Equal(t, 0, s.Len())

	s.Advance(time.Second)
	assert.Equal(t, 1, fired)
}

func TestCancel_DuringPassSkipsLaterTask(t *testing.T) {
	s := newTestScheduler()

	secondFired := false
	var cancelSecond func()
	s.Repeat(10*time.Millisecond, 0, func() { cancelSecond() })
	cancelSecond = s.Repeat(10*time.Millisecond, 0, func() { secondFired = true })

	s.Advance(10 * time.Millisecond)

	assert.False(t, secondFired)
	assert.Equal(t, 1, s.Len())
}

func TestCancel_FromInsideOwnCallback(t *testing.T) {
	s := newTestScheduler()

	fired := 0
	var cancel func()
	cancel = s.Repeat(10*time.Millisecond, 0, func() {
		fired++
		cancel()
	})

	s.Advance(10 * time.Millisecond)
	s.Advance(10 * time.Millisecond)

	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, s.Len())
}

func TestRepeat_ScheduledDuringPassWaits(t *testing.T) {
	s := newTestScheduler()

	inner := 0
	s.Repeat(10*time.Millisecond, 0, func() {
		s.Repeat(time.Nanosecond, 0, func() { inner++ })
	})

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, 0, inner)
}
