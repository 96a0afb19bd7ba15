package fsm

// TransitionNotAllowed is an error type caused by attempting to transition to a state that is
// not allowed by the FSM
type TransitionNotAllowed struct {
	Msg string
}

func (e TransitionNotAllowed) Error() string {
	return e.Msg
}

// TerminalError is returned when a transition is attempted out of a terminal state
type TerminalError struct {
	Msg string
}

func (e TerminalError) Error() string {
	return e.Msg
}
