package program

import "fmt"

// Reason identifies which constraint a command violated
type Reason string

const (
	ArgCount      Reason = "argument count"
	Type          Reason = "type"
	Range         Reason = "range"
	Direction     Reason = "direction"
	ZeroIncrement Reason = "zero increment"
	Unknown       Reason = "unknown command"
)

// ValidationError is returned when a program line fails validation.  Line is 1-based and
// is zero when a single command was validated outside of a program.
type ValidationError struct {
	Line    int
	Command string
	Reason  Reason
	Msg     string
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func invalid(cmd Kind, reason Reason, format string, args ...interface{}) ValidationError {
	return ValidationError{
		Command: cmd.String(),
		Reason:  reason,
		Msg:     fmt.Sprintf(format, args...),
	}
}
