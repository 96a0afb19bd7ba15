// Package fsm implements the finite state machine that sequences an experiment
package fsm

import (
	"fmt"
)

// State represents a possible state of the machine
type State string

// Hook is called after every successful transition
type Hook func(from, to State)

// Machine is a finite state machine with an explicit table of allowable transitions.
// States marked terminal accept no further transitions.
type Machine struct {
	current   State
	allowable map[State][]State
	terminal  map[State]bool
	hooks     []Hook
}

// NewMachine returns a new Machine with configured options.  Without options the machine
// has no allowable transitions.
func NewMachine(initial State, opts ...MachineOption) (*Machine, error) {
	machine := &Machine{
		current:   initial,
		allowable: map[State][]State{},
		terminal:  map[State]bool{},
	}
	for _, opt := range opts {
		if err := opt(machine); err != nil {
			return nil, err
		}
	}
	for s := range machine.terminal {
		if len(machine.allowable[s]) > 0 {
			return nil, fmt.Errorf("terminal state %s has outgoing transitions", s)
		}
	}
	return machine, nil
}

// State returns the current state of the Machine
func (m *Machine) State() State {
	return m.current
}

// Allowable checks whether a transition between two states is allowable
func (m *Machine) Allowable(from, to State) bool {
	return contains(to, m.allowable[from])
}

// Terminated reports whether the machine is in a terminal state
func (m *Machine) Terminated() bool {
	return m.terminal[m.current]
}

// Transition changes the current state if the transition is allowable and runs the hooks
func (m *Machine) Transition(to State) error {
	if m.Terminated() {
		return TerminalError{Msg: fmt.Sprintf("state machine is in terminal state %s, cannot transition to %s", m.current, to)}
	}
	if !m.Allowable(m.current, to) {
		return TransitionNotAllowed{Msg: fmt.Sprintf("cannot transition from state %s to %s", m.current, to)}
	}
	from := m.current
	m.current = to
	for _, h := range m.hooks {
		h(from, to)
	}
	return nil
}

func contains(s State, all []State) bool {
	for _, a := range all {
		if s == a {
			return true
		}
	}
	return false
}
