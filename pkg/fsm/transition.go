package fsm

// Transition is one edge of the transition graph
type Transition struct {
	From State
	To   State
}

func (t Transition) String() string {
	return string(t.From) + "->" + string(t.To)
}

// T declares edges from one state to each of the listed states, e.g. T(Go, Wait, Hold, Stop)
func T(from State, tos ...State) []Transition {
	transitions := make([]Transition, 0, len(tos))
	for _, to := range tos {
		transitions = append(transitions, Transition{From: from, To: to})
	}
	return transitions
}

// allow adds an edge unless it is already present
func (m *Machine) allow(t Transition) {
	if contains(t.To, m.allowable[t.From]) {
		return
	}
	m.allowable[t.From] = append(m.allowable[t.From], t.To)
}
