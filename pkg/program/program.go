// Package program parses and validates the command language that drives an experiment.
//
// One command per line, keywords are case insensitive and arguments may be separated by
// commas or whitespace.  Blank lines and lines starting with # are ignored.
//
//	# cool down, then step back up in 1 degree increments
//	set -10.0
//	wait
//	ramp -10, 0, 1.0
//	hold 1800
//	stop
package program

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Limits are the setpoint bounds a program may command, in degrees Celsius
type Limits struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultLimits are the safe operating bounds of the calibration bath
var DefaultLimits = Limits{Min: -25, Max: 50}

// MaxHoldSeconds is the longest hold that fits in a time.Duration
const MaxHoldSeconds = math.MaxInt64 / int64(time.Second)

// Command is a single validated program instruction.  Only the fields for its Kind are set.
type Command struct {
	Kind Kind
	Line int
	Text string

	// HOLD
	Seconds int
	// SET
	Setpoint float64
	// RAMP
	Start     float64
	End       float64
	Increment float64
}

// Program is an immutable, fully validated list of executable commands in source order
type Program struct {
	commands []Command
}

// Len returns the number of executable commands
func (p *Program) Len() int {
	return len(p.commands)
}

// At returns the command at index i
func (p *Program) At(i int) Command {
	return p.commands[i]
}

// Commands returns a copy of the executable commands
func (p *Program) Commands() []Command {
	out := make([]Command, len(p.commands))
	copy(out, p.commands)
	return out
}

// Parse validates every line of text and returns the executable commands.  Lines may end in
// \n, \r\n or a lone \r.  Validation stops
// at the first invalid line and no commands are returned, so a program is either accepted
// whole or rejected whole.
func Parse(text string, limits Limits) (*Program, error) {
	var commands []Command
	for i, line := range strings.Split(lineEndings.Replace(text), "\n") {
		cmd, err := ValidateCommand(line, limits)
		if err != nil {
			var verr ValidationError
			if !errors.As(err, &verr) {
				return nil, err
			}
			verr.Line = i + 1
			return nil, verr
		}
		if cmd.Kind == Comment {
			continue
		}
		cmd.Line = i + 1
		commands = append(commands, cmd)
	}
	return &Program{commands: commands}, nil
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ValidateCommand checks a single line and returns the typed command.  Blank and
// commented lines validate as a Comment.  Failures are returned as a ValidationError.
func ValidateCommand(line string, limits Limits) (Command, error) {
	text := strings.TrimSpace(line)
	fields := strings.Fields(strings.ReplaceAll(text, ",", " "))
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return Command{Kind: Comment, Text: text}, nil
	}

	kind, ok := keywords[strings.ToLower(fields[0])]
	if !ok {
		return Command{}, ValidationError{
			Command: strings.ToUpper(fields[0]),
			Reason:  Unknown,
			Msg:     "invalid command " + strconv.Quote(text),
		}
	}
	args := fields[1:]
	if len(args) != arity[kind] {
		return Command{}, invalid(kind, ArgCount, "%s requires %d argument%s", kind, arity[kind], plural(arity[kind]))
	}

	cmd := Command{Kind: kind, Text: text}
	switch kind {
	case Hold:
		seconds, err := strconv.Atoi(args[0])
		if err != nil {
			return Command{}, invalid(kind, Type, "HOLD requires integer argument")
		}
		if seconds < 0 {
			return Command{}, invalid(kind, Range, "HOLD requires positive integer argument")
		}
		if int64(seconds) > MaxHoldSeconds {
			return Command{}, invalid(kind, Range, "HOLD may not exceed %d seconds", MaxHoldSeconds)
		}
		cmd.Seconds = seconds
	case Set:
		setpoint, err := parseFloat(args[0])
		if err != nil {
			return Command{}, invalid(kind, Type, "SET requires a numeric value")
		}
		if err := checkRange(kind, "setpoint", setpoint, limits); err != nil {
			return Command{}, err
		}
		cmd.Setpoint = setpoint
	case Ramp:
		var values [3]float64
		for i := range values {
			v, err := parseFloat(args[i])
			if err != nil {
				return Command{}, invalid(kind, Type, "RAMP requires 3 numeric values")
			}
			values[i] = v
		}
		start, end, inc := values[0], values[1], values[2]
		if (end-start)*inc < 0 {
			return Command{}, invalid(kind, Direction, "RAMP increment has incorrect sign")
		}
		if inc == 0 && start != end {
			return Command{}, invalid(kind, ZeroIncrement, "RAMP increment must be nonzero when start and end differ")
		}
		if err := checkRange(kind, "start", start, limits); err != nil {
			return Command{}, err
		}
		if err := checkRange(kind, "end", end, limits); err != nil {
			return Command{}, err
		}
		cmd.Start, cmd.End, cmd.Increment = start, end, inc
	}
	return cmd, nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func checkRange(kind Kind, what string, v float64, limits Limits) error {
	switch {
	case v < limits.Min:
		return invalid(kind, Range, "%s %s must be greater than or equal to %g", kind, what, limits.Min)
	case v > limits.Max:
		return invalid(kind, Range, "%s %s must be less than or equal to %g", kind, what, limits.Max)
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
