package fsm

// MachineOption represents options to initially set up a machine
type MachineOption func(m *Machine) error

// WithTransition allows the addition of a single edge on the transition graph.  To add multiple
// edges at once, try WithTransitions.
func WithTransition(t Transition) MachineOption {
	return func(m *Machine) error {
		m.allow(t)
		return nil
	}
}

// WithTransitions will allow the addition of multiple transitions using the T(from, to...) short
// function.  For example, you can call `NewMachine(Go, WithTransitions(T(Go, Wait, Hold), T(Wait, Go)))`
func WithTransitions(transitions ...[]Transition) MachineOption {
	return func(m *Machine) error {
		for _, group := range transitions {
			for _, t := range group {
				m.allow(t)
			}
		}
		return nil
	}
}

// WithTerminal marks states that end the machine.  Terminal states may not have outgoing transitions.
func WithTerminal(states ...State) MachineOption {
	return func(m *Machine) error {
		for _, s := range states {
			m.terminal[s] = true
		}
		return nil
	}
}

// WithHook registers a function called after each successful transition
func WithHook(h Hook) MachineOption {
	return func(m *Machine) error {
		m.hooks = append(m.hooks, h)
		return nil
	}
}
