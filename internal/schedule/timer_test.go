package schedule

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type owned struct {
	mu    sync.Mutex
	timer Timer
	fired []uint64
}

func (o *owned) schedule(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.timer.Schedule(d, func(gen uint64) {
		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.timer.Claim(gen) {
			return
		}
		o.fired = append(o.fired, gen)
	})
}

func (o *owned) firedCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.fired)
}

func TestTimerFiresOnce(t *testing.T) {
	o := &owned{}
	o.schedule(10 * time.Millisecond)

	require.Eventually(t, func() bool { return o.firedCount() == 1 }, time.Second, 5*time.Millisecond)

	o.mu.Lock()
	require.False(t, o.timer.Pending())
	require.True(t, o.timer.Due().IsZero())
	o.mu.Unlock()
}

func TestTimerRescheduleReplacesPending(t *testing.T) {
	o := &owned{}
	o.schedule(20 * time.Millisecond)
	o.schedule(40 * time.Millisecond)

	o.mu.Lock()
	require.True(t, o.timer.Pending())
	o.mu.Unlock()

	time.Sleep(120 * time.Millisecond)
	require.Equal(t, 1, o.firedCount())
}

func TestTimerCancel(t *testing.T) {
	o := &owned{}
	o.schedule(20 * time.Millisecond)

	o.mu.Lock()
	require.True(t, o.timer.Cancel())
	require.False(t, o.timer.Cancel())
	o.mu.Unlock()

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, o.firedCount())
}

func TestTimerStaleClaimRejected(t *testing.T) {
	var tm Timer
	tm.Schedule(time.Hour, func(uint64) {})
	defer tm.Cancel()

	require.False(t, tm.Claim(0))
	require.True(t, tm.Pending())
	require.False(t, tm.Due().IsZero())
}
