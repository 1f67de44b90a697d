package mqtbridge

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when a connection state change is not allowed
var ErrInvalidTransition = errors.New("invalid connection state transition")

// State is the broker connection state of the bridge
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateShuttingDown:
		return "shutting_down"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Connecting may repeat: paho fires the reconnect handler once per attempt.
// paho runs the lost and reconnecting handlers on separate goroutines, so a
// live session may go straight to Connecting and a reconnect may land while
// the state still reads Disconnected.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting, StateConnected},
	StateConnecting:   {StateConnecting, StateConnected, StateDisconnected},
	StateConnected:    {StateConnecting, StateSubscribed, StateDisconnected},
	StateSubscribed:   {StateConnecting, StateDisconnected},
}

// Machine tracks the connection state. paho calls the connection handlers on
// its own goroutines, so every access goes through the mutex.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []func(from, to State)
}

func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

// Current returns the state at the time of the call
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnTransition registers fn to run after every accepted transition
func (m *Machine) OnTransition(fn func(from, to State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Transition moves to the given state. ShuttingDown is reachable from every
// state except itself and nothing leaves it. A rejected transition leaves the
// state unchanged.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	from := m.state
	if !allowed(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to
	observers := make([]func(from, to State), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(from, to)
	}
	return nil
}

func allowed(from, to State) bool {
	if from == StateShuttingDown {
		return false
	}
	if to == StateShuttingDown {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
