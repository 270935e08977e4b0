// Package state tracks the construction phase of a job. Exactly one state is
// active and transitions follow a fixed table.
package state

import (
	"sync"

	"trackgeo/internal/fault"
)

// State enumerates the construction phases.
type State int

const (
	NotInApplication State = iota
	ConstructGeometry
	MisalignGeometry
	ConstructOpGeometry
)

var names = map[State]string{
	NotInApplication:    "NotInApplication",
	ConstructGeometry:   "ConstructGeometry",
	MisalignGeometry:    "MisalignGeometry",
	ConstructOpGeometry: "ConstructOpGeometry",
}

func (s State) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return "Unknown"
}

var allowed = map[State]map[State]struct{}{
	NotInApplication:    toSet(ConstructGeometry, ConstructOpGeometry),
	ConstructGeometry:   toSet(MisalignGeometry),
	MisalignGeometry:    toSet(NotInApplication),
	ConstructOpGeometry: toSet(NotInApplication),
}

func toSet(states ...State) map[State]struct{} {
	out := make(map[State]struct{}, len(states))
	for _, s := range states {
		out[s] = struct{}{}
	}
	return out
}

// Machine holds the current state and the visited sequence.
type Machine struct {
	mu      sync.Mutex
	current State
	history []State
	observe func(from, to State)
}

// NewMachine starts in NotInApplication.
func NewMachine() *Machine {
	return &Machine{current: NotInApplication}
}

// OnTransition installs a hook called after every successful transition.
func (m *Machine) OnTransition(fn func(from, to State)) {
	m.mu.Lock()
	m.observe = fn
	m.mu.Unlock()
}

// Current returns the active state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Set moves to next. Transitions outside the table are fatal.
func (m *Machine) Set(next State) error {
	m.mu.Lock()
	from := m.current
	if _, ok := allowed[from][next]; !ok {
		m.mu.Unlock()
		return fault.Fatal("StateManager", "SetNewState", "illegal transition %s -> %s", from, next)
	}
	m.current = next
	m.history = append(m.history, next)
	observe := m.observe
	m.mu.Unlock()
	if observe != nil {
		observe(from, next)
	}
	return nil
}

// History returns the states entered so far, in order.
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]State, len(m.history))
	copy(out, m.history)
	return out
}
