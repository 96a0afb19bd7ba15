//go:generate stringer -type=Kind -linecomment -output kind_string.go
package program

// Kind is the type of a program command
type Kind int

const (
	_       Kind = iota
	Wait         // WAIT
	Hold         // HOLD
	Ramp         // RAMP
	Set          // SET
	Stop         // STOP
	Comment      // COMMENT
)

// keywords maps the lower case keyword to its command kind
var keywords = map[string]Kind{
	"wait": Wait,
	"hold": Hold,
	"ramp": Ramp,
	"set":  Set,
	"stop": Stop,
}

// arity is the number of arguments each executable command takes
var arity = map[Kind]int{
	Wait: 0,
	Hold: 1,
	Ramp: 3,
	Set:  1,
	Stop: 0,
}
