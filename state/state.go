package state

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/boardserver/logger"
)

// Lifecycle state ids.
const (
	Waiting = "waiting"
	Playing = "playing"
)

type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool)
}

type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a transition was never registered
// or its condition does not hold.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// BaseStateMachine only permits transitions registered with AddTransition.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	conditions, ok := sm.transitions[sm.currentState.GetID()]
	if !ok {
		return ErrTransitionNotAllowed
	}
	condition, ok := conditions[newState.GetID()]
	if !ok || (condition != nil && !condition()) {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

// AddTransition registers from -> to. A nil condition always allows it; a
// second registration for the same pair replaces the first.
func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
}

type RoomStateBase struct {
	ID   string
	Room RoomContext
}

func (s *RoomStateBase) GetID() string {
	return s.ID
}

func (s *RoomStateBase) OnEnter() {}

func (s *RoomStateBase) OnExit() {}

// WaitingState is the lobby: humans join and leave, the host may start.
type WaitingState struct {
	RoomStateBase
}

func NewWaitingState(room RoomContext) *WaitingState {
	return &WaitingState{RoomStateBase: RoomStateBase{ID: Waiting, Room: room}}
}

func (s *WaitingState) OnEnter() {
	logger.Log.Debugf("room %s is waiting for players", s.Room.GetID())
}

// PlayingState is terminal for a room's lifetime.
type PlayingState struct {
	RoomStateBase
	StartedAt time.Time
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{RoomStateBase: RoomStateBase{ID: Playing, Room: room}}
}

func (s *PlayingState) OnEnter() {
	s.StartedAt = time.Now()
	logger.Log.Infof("room %s started with %d seats", s.Room.GetID(), s.Room.PlayerCount())
}

// Lifecycle wires the one-way waiting -> playing machine for a room. The start
// transition requires at least one seated player.
type Lifecycle struct {
	*BaseStateMachine
	waiting *WaitingState
	playing *PlayingState
}

func NewLifecycle(room RoomContext) *Lifecycle {
	l := &Lifecycle{
		waiting: NewWaitingState(room),
		playing: NewPlayingState(room),
	}
	l.BaseStateMachine = NewBaseStateMachine(l.waiting)
	l.AddTransition(l.waiting, l.playing, func() bool { return room.PlayerCount() > 0 })
	return l
}

// Start moves the room to playing.
func (l *Lifecycle) Start() error {
	return l.ChangeState(l.playing)
}

// Current returns the id of the current state.
func (l *Lifecycle) Current() string {
	return l.GetCurrentState().GetID()
}

// StartedAt is zero until Start succeeds.
func (l *Lifecycle) StartedAt() time.Time {
	if l.Current() != Playing {
		return time.Time{}
	}
	return l.playing.StartedAt
}
