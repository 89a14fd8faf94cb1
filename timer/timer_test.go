package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdleManager() *TimerManager {
	return &TimerManager{tasks: make(map[int64]*TimerTask), nextId: 1}
}

func TestTimerManager_Fires(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	fired := make(chan struct{})
	id := m.AddTimer(20*time.Millisecond, 0, func() { close(fired) })
	assert.NotZero(t, id)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Eventually(t, func() bool { return m.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerManager_RemoveBeforeFire(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var fired atomic.Bool
	id := m.AddTimer(40*time.Millisecond, 0, func() { fired.Store(true) })
	m.RemoveTimer(id)
	assert.Equal(t, 0, m.Pending())

	time.Sleep(120 * time.Millisecond)
	assert.False(t, fired.Load())

	// removing twice is harmless
	m.RemoveTimer(id)
	m.RemoveTimer(9999)
}

func TestTimerManager_Interval(t *testing.T) {
	m := NewTimerManager(5 * time.Millisecond)
	defer m.Stop()

	var count atomic.Int32
	id := m.AddTimer(5*time.Millisecond, 10*time.Millisecond, func() { count.Add(1) })

	require.Eventually(t, func() bool { return count.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, m.Pending())

	m.RemoveTimer(id)
	assert.Equal(t, 0, m.Pending())
}

func TestTimerManager_DueOrder(t *testing.T) {
	m := newIdleManager()
	base := time.Now()

	var order []int64
	third := m.AddTimer(30*time.Millisecond, 0, nil)
	first := m.AddTimer(10*time.Millisecond, 0, nil)
	second := m.AddTimer(20*time.Millisecond, 0, nil)

	assert.Empty(t, m.due(base))

	for _, task := range m.due(base.Add(time.Second)) {
		order = append(order, task.Id)
	}
	assert.Equal(t, []int64{first, second, third}, order)
	assert.Equal(t, 0, m.Pending())
}

func TestTimerManager_RemoveMiddleKeepsHeap(t *testing.T) {
	m := newIdleManager()
	base := time.Now()

	a := m.AddTimer(10*time.Millisecond, 0, nil)
	b := m.AddTimer(20*time.Millisecond, 0, nil)
	c := m.AddTimer(30*time.Millisecond, 0, nil)
	m.RemoveTimer(b)

	var ids []int64
	for _, task := range m.due(base.Add(time.Second)) {
		ids = append(ids, task.Id)
	}
	assert.Equal(t, []int64{a, c}, ids)
}

func TestTimerManager_StopIsIdempotent(t *testing.T) {
	m := NewTimerManager(0)
	m.Stop()
	m.Stop()
}
