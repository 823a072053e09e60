package state

import (
	"errors"
	"fmt"
	"sync"
)

// GameState is the lifecycle phase of a game instance.
type GameState int

const (
	Waiting GameState = iota
	Starting
	Started
)

func (s GameState) String() string {
	switch s {
	case Waiting:
		return "Waiting"
	case Starting:
		return "Starting"
	case Started:
		return "Started"
	default:
		return fmt.Sprintf("GameState(%d)", int(s))
	}
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// StateMachine drives a game instance through its lifecycle.
type StateMachine interface {
	ChangeState(to GameState) error
	GetCurrentState() GameState
	AddTransition(from, to GameState, condition func() bool)
}

// BaseStateMachine only accepts transitions that were registered with
// AddTransition and whose condition (if any) holds.
type BaseStateMachine struct {
	currentState GameState
	transitions  map[GameState]map[GameState]func() bool // from -> to -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initial GameState) *BaseStateMachine {
	return &BaseStateMachine{
		currentState: initial,
		transitions:  make(map[GameState]map[GameState]func() bool),
	}
}

// NewLifecycle returns a machine in Waiting that can only move
// Waiting -> Starting -> Started.
func NewLifecycle() *BaseStateMachine {
	sm := NewBaseStateMachine(Waiting)
	sm.AddTransition(Waiting, Starting, nil)
	sm.AddTransition(Starting, Started, nil)
	return sm
}

func (sm *BaseStateMachine) ChangeState(to GameState) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	conditions, exists := sm.transitions[sm.currentState]
	if !exists {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sm.currentState, to)
	}
	condition, exists := conditions[to]
	if !exists || (condition != nil && !condition()) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sm.currentState, to)
	}

	sm.currentState = to
	return nil
}

func (sm *BaseStateMachine) GetCurrentState() GameState {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from, to GameState, condition func() bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, exists := sm.transitions[from]; !exists {
		sm.transitions[from] = make(map[GameState]func() bool)
	}
	sm.transitions[from][to] = condition
}
