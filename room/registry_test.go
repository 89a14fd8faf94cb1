package room

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *MockTimers) {
	timers := &MockTimers{}
	return NewRegistry(timers, rand.New(rand.NewSource(42))), timers
}

func TestRegistry_GetOrCreate(t *testing.T) {
	reg, _ := newTestRegistry()

	r, created := reg.GetOrCreate("R1")
	require.True(t, created)
	assert.Equal(t, "R1", r.ID)
	assert.Equal(t, StatusWaiting, r.Status())
	assert.Equal(t, -1, r.TurnIndex)
	assert.Empty(t, r.Host)
	assert.Empty(t, r.Players)
	assert.Len(t, r.TrapFields, TrapFieldCount)
	assert.False(t, r.TimerArmed())

	_, err := r.AddHuman("a")
	require.NoError(t, err)

	again, created := reg.GetOrCreate("R1")
	assert.False(t, created)
	assert.Same(t, r, again)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_GetOrCreate_ResetsStaleRoom(t *testing.T) {
	reg, timers := newTestRegistry()

	stale, _ := reg.GetOrCreate("R1")
	stale.FillWithBots(seqBotIDs())
	stale.ArmTimer(5, 1)

	fresh, created := reg.GetOrCreate("R1")
	assert.True(t, created)
	assert.NotSame(t, stale, fresh)
	assert.Empty(t, fresh.Players)
	assert.Equal(t, []int64{5}, timers.removed)
}

func TestRegistry_BindUnbind(t *testing.T) {
	reg, _ := newTestRegistry()

	reg.BindConnection("a", "R1")
	reg.BindConnection("b", "R1")
	assert.Equal(t, []string{"a", "b"}, reg.Connections("R1"))

	roomID, ok := reg.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, "R1", roomID)

	// rebinding moves the connection
	reg.BindConnection("a", "R2")
	assert.Equal(t, []string{"b"}, reg.Connections("R1"))
	assert.Equal(t, []string{"a"}, reg.Connections("R2"))

	reg.UnbindConnection("a")
	reg.UnbindConnection("a")
	reg.UnbindConnection("nobody")
	_, ok = reg.RoomOf("a")
	assert.False(t, ok)
	assert.Empty(t, reg.Connections("R2"))
}

func TestRegistry_DeleteIfEmpty(t *testing.T) {
	reg, timers := newTestRegistry()

	r, _ := reg.GetOrCreate("R1")
	_, err := r.AddHuman("a")
	require.NoError(t, err)
	r.FillWithBots(seqBotIDs())
	r.ArmTimer(3, 9)

	assert.Nil(t, reg.DeleteIfEmpty("R1"), "humans remain")
	assert.Nil(t, reg.DeleteIfEmpty("missing"))

	r.RemovePlayer("a")
	deleted := reg.DeleteIfEmpty("R1")
	assert.Same(t, r, deleted)
	assert.Equal(t, []int64{3}, timers.removed)
	assert.False(t, r.TimerArmed())

	_, ok := reg.Get("R1")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_RoomsSorted(t *testing.T) {
	reg, _ := newTestRegistry()
	for _, id := range []string{"c", "a", "b"} {
		reg.GetOrCreate(id)
	}

	var ids []string
	for _, r := range reg.Rooms() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
