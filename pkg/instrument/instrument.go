// Package instrument holds the device contracts the controller drives and the drivers that
// implement them over serial lines and telnet, plus simulated devices for dry runs.
package instrument

import (
	"errors"
	"fmt"
)

// Bath is a temperature controlled recirculating bath.  Baths enforce their own setpoint limits
// and return ErrSetpointRange without touching the device when asked for a value outside them.
type Bath interface {
	Connect() error
	Disconnect() error
	SetSetpoint(celsius float64) error
	ReadTemperature() (float64, error)
}

// Probe is a reference thermometer read independently of the sensor array
type Probe interface {
	Connect() error
	Disconnect() error
	ReadTemperature() (float64, error)
}

// SensorArray reads a batch of channels.  ReadValues returns one value per channel in the order
// given to Connect.
type SensorArray interface {
	Connect(channels []int) error
	Disconnect() error
	ReadValues() ([]float64, error)
}

// Limits are the setpoints a bath will accept, inclusive
type Limits struct {
	Min float64
	Max float64
}

func (l Limits) check(celsius float64) error {
	if celsius < l.Min || celsius > l.Max {
		return fmt.Errorf("%w: %g outside [%g, %g]", ErrSetpointRange, celsius, l.Min, l.Max)
	}
	return nil
}

var (
	// ErrSetpointRange is returned when a setpoint is refused by the bath's own limits
	ErrSetpointRange = errors.New("setpoint out of range")
	// ErrNotConnected is returned when a device is used before Connect
	ErrNotConnected = errors.New("instrument not connected")
)

// ResponseError is returned when a device answers with something that cannot be interpreted
type ResponseError struct {
	Command  string
	Response string
	Msg      string
}

func (r ResponseError) Error() string {
	if r.Msg != "" {
		return fmt.Sprintf("instrument response to %q: %s", r.Command, r.Msg)
	}
	return fmt.Sprintf("instrument response to %q could not be parsed: %q", r.Command, r.Response)
}
