package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockState records which hooks ran.
type MockState struct {
	ID            string
	OnEnterCalled bool
	OnExitCalled  bool
}

func (m *MockState) OnEnter()      { m.OnEnterCalled = true }
func (m *MockState) OnExit()       { m.OnExitCalled = true }
func (m *MockState) GetID() string { return m.ID }

func (m *MockState) reset() {
	m.OnEnterCalled = false
	m.OnExitCalled = false
}

type fakeRoom struct {
	id      string
	players int
}

func (f *fakeRoom) GetID() string    { return f.id }
func (f *fakeRoom) PlayerCount() int { return f.players }

func TestStateMachine_InitialState(t *testing.T) {
	initial := &MockState{ID: "initial"}
	sm := NewBaseStateMachine(initial)

	assert.True(t, initial.OnEnterCalled)
	assert.Same(t, initial, sm.GetCurrentState())
}

func TestStateMachine_UnregisteredTransitionRejected(t *testing.T) {
	a := &MockState{ID: "A"}
	b := &MockState{ID: "B"}
	sm := NewBaseStateMachine(a)
	a.reset()

	err := sm.ChangeState(b)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.False(t, a.OnExitCalled)
	assert.False(t, b.OnEnterCalled)
	assert.Same(t, a, sm.GetCurrentState())
}

func TestStateMachine_AddAndUseTransition(t *testing.T) {
	stateA := &MockState{ID: "A"}
	stateB := &MockState{ID: "B"}
	stateC := &MockState{ID: "C"}

	sm := NewBaseStateMachine(stateA)
	sm.AddTransition(stateA, stateB, func() bool { return true })
	sm.AddTransition(stateB, stateC, func() bool { return false })

	stateA.reset()
	require.NoError(t, sm.ChangeState(stateB))
	assert.True(t, stateA.OnExitCalled)
	assert.True(t, stateB.OnEnterCalled)
	assert.Equal(t, "B", sm.GetCurrentState().GetID())

	stateB.reset()
	assert.ErrorIs(t, sm.ChangeState(stateC), ErrTransitionNotAllowed)
	assert.Equal(t, "B", sm.GetCurrentState().GetID())
	assert.False(t, stateB.OnExitCalled)
	assert.False(t, stateC.OnEnterCalled)
}

func TestLifecycle_OneWay(t *testing.T) {
	room := &fakeRoom{id: "R1", players: 1}
	l := NewLifecycle(room)

	assert.Equal(t, Waiting, l.Current())
	assert.True(t, l.StartedAt().IsZero())

	require.NoError(t, l.Start())
	assert.Equal(t, Playing, l.Current())
	assert.False(t, l.StartedAt().IsZero())

	assert.ErrorIs(t, l.Start(), ErrTransitionNotAllowed)
	assert.ErrorIs(t, l.ChangeState(l.waiting), ErrTransitionNotAllowed)
	assert.Equal(t, Playing, l.Current())
}

func TestLifecycle_StartNeedsPlayers(t *testing.T) {
	room := &fakeRoom{id: "R2"}
	l := NewLifecycle(room)

	assert.ErrorIs(t, l.Start(), ErrTransitionNotAllowed)
	assert.Equal(t, Waiting, l.Current())

	room.players = 2
	assert.NoError(t, l.Start())
}

func TestStateMachine_AddTransitionReplacesCondition(t *testing.T) {
	a := &MockState{ID: "A"}
	b := &MockState{ID: "B"}
	sm := NewBaseStateMachine(a)

	sm.AddTransition(a, b, func() bool { return false })
	assert.ErrorIs(t, sm.ChangeState(b), ErrTransitionNotAllowed)

	sm.AddTransition(a, b, nil)
	require.NoError(t, sm.ChangeState(b))
	assert.Equal(t, "B", sm.GetCurrentState().GetID())
}
