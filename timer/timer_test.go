package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerManager_OneShot(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Int32
	id := m.AddTimer(20*time.Millisecond, 0, func() { fired.Add(1) })
	assert.NotZero(t, id)

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)

	// one-shot: must not fire again
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 0, m.Pending())
	assert.False(t, m.RemoveTimer(id), "fired one-shot is no longer pending")
}

func TestTimerManager_RemoveTimer(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Bool
	id := m.AddTimer(30*time.Millisecond, 0, func() { fired.Store(true) })

	assert.True(t, m.RemoveTimer(id))
	assert.False(t, m.RemoveTimer(id))

	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load(), "cancelled timer must not fire")
}

func TestTimerManager_Interval(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Int32
	id := m.AddTimer(0, 10*time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, m.RemoveTimer(id))
	assert.Equal(t, 0, m.Pending())
}

func TestTimerManager_Ordering(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	order := make(chan int, 3)
	m.AddTimer(60*time.Millisecond, 0, func() { order <- 3 })
	m.AddTimer(10*time.Millisecond, 0, func() { order <- 1 })
	m.AddTimer(35*time.Millisecond, 0, func() { order <- 2 })

	for want := 1; want <= 3; want++ {
		select {
		case got := <-order:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("timer %d did not fire", want)
		}
	}
}

func TestTimerManager_Stop(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)

	var fired atomic.Bool
	m.AddTimer(20*time.Millisecond, 0, func() { fired.Store(true) })
	m.Stop()
	m.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}
