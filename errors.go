package bathctl

import (
	"fmt"
	"os"

	"github.com/BTBurke/bathctl/pkg/program"
	"github.com/stvp/rollbar"
)

// ConnectionError is returned when an instrument cannot be reached before a run starts
type ConnectionError struct {
	Instrument string
	Err        error
}

func (e ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Instrument, e.Err)
}

func (e ConnectionError) Unwrap() error { return e.Err }

// UnknownCommandError stops a run that reaches a command or state it cannot execute
type UnknownCommandError struct {
	Kind  program.Kind
	State string
}

func (e UnknownCommandError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("unknown state: %s", e.State)
	}
	return fmt.Sprintf("unknown command: %s", e.Kind)
}

// TransientReadError is a read that failed after its retry.  The run continues without the value.
type TransientReadError struct {
	Instrument string
	Err        error
}

func (e TransientReadError) Error() string {
	return fmt.Sprintf("read from %s failed: %v", e.Instrument, e.Err)
}

func (e TransientReadError) Unwrap() error { return e.Err }

// RecordError is a failure to append to the run log.  It stops the run.
type RecordError struct {
	Err error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("failed to record sample: %v", e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// ErrorReporter sends unexpected errors to an external crash reporting service
type ErrorReporter interface {
	ReportError(err error)
}

type noopReporter struct{}

func (noopReporter) ReportError(error) {}

type rollbarReporter struct{}

// NewErrorReporter returns a Rollbar reporter when a token is configured and a reporter
// that drops everything otherwise.
func NewErrorReporter(token string) ErrorReporter {
	if token == "" {
		return noopReporter{}
	}
	switch env := os.Getenv("environment"); env {
	case "development":
		rollbar.Environment = "development"
	default:
		rollbar.Environment = "production"
	}
	rollbar.Token = token
	return rollbarReporter{}
}

// ReportError sends the error to Rollbar
func (rollbarReporter) ReportError(err error) {
	rollbar.Error(rollbar.ERR, err)
}

// FlushReports blocks until queued reports are sent
func FlushReports() {
	rollbar.Wait()
}
