package instrument

import (
	"fmt"
	"strconv"
	"strings"
)

var _ Bath = &Fluke7341{}
var _ Probe = &Fluke1502A{}

// Fluke7341Limits are the setpoints the Fluke 7341 calibration bath accepts
var Fluke7341Limits = Limits{Min: -30, Max: 90}

// Fluke7341 is a Fluke 7341 calibration bath on a 2400 baud serial line.  The bath echoes every
// command before its reply.
type Fluke7341 struct {
	port   string
	cfg    serialConfig
	limits Limits
	conn   *line
}

// NewFluke7341 returns a bath driver for the serial port
func NewFluke7341(port string, opts ...SerialOption) *Fluke7341 {
	return &Fluke7341{
		port:   port,
		cfg:    newSerialConfig(2400, opts),
		limits: Fluke7341Limits,
	}
}

// Connect opens the port, selects celsius and turns off automatic sending
func (f *Fluke7341) Connect() error {
	conn, err := openLine(f.port, f.cfg)
	if err != nil {
		return err
	}
	for _, cmd := range []string{"u=c", "sa=0"} {
		if _, err := conn.query(cmd, 1); err != nil {
			conn.close()
			return fmt.Errorf("fluke 7341 setup %q: %w", cmd, err)
		}
	}
	f.conn = conn
	return nil
}

func (f *Fluke7341) Disconnect() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.close()
	f.conn = nil
	return err
}

func (f *Fluke7341) SetSetpoint(celsius float64) error {
	if f.conn == nil {
		return ErrNotConnected
	}
	if err := f.limits.check(celsius); err != nil {
		return err
	}
	_, err := f.conn.query("s="+strconv.FormatFloat(celsius, 'f', -1, 64), 1)
	return err
}

func (f *Fluke7341) ReadTemperature() (float64, error) {
	if f.conn == nil {
		return 0, ErrNotConnected
	}
	res, err := f.conn.query("t", 2)
	if err != nil {
		return 0, err
	}
	// first line is the echo
	return parseReading("t", res[1])
}

// Fluke1502A is a Fluke 1502A thermometer readout on a 9600 baud serial line.  Like the bath it
// echoes every command before its reply.
type Fluke1502A struct {
	port string
	cfg  serialConfig
	conn *line
}

// NewFluke1502A returns a probe driver for the serial port
func NewFluke1502A(port string, opts ...SerialOption) *Fluke1502A {
	return &Fluke1502A{
		port: port,
		cfg:  newSerialConfig(9600, opts),
	}
}

func (f *Fluke1502A) Connect() error {
	conn, err := openLine(f.port, f.cfg)
	if err != nil {
		return err
	}
	for _, cmd := range []string{"u=c", "sa=0"} {
		if _, err := conn.query(cmd, 1); err != nil {
			conn.close()
			return fmt.Errorf("fluke 1502A setup %q: %w", cmd, err)
		}
	}
	f.conn = conn
	return nil
}

func (f *Fluke1502A) Disconnect() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.close()
	f.conn = nil
	return err
}

func (f *Fluke1502A) ReadTemperature() (float64, error) {
	if f.conn == nil {
		return 0, ErrNotConnected
	}
	res, err := f.conn.query("t", 2)
	if err != nil {
		return 0, err
	}
	return parseReading("t", res[1])
}

// parseReading returns the first numeric field of a reply such as "t:   25.003 C"
func parseReading(cmd string, resp string) (float64, error) {
	fields := strings.FieldsFunc(resp, func(r rune) bool {
		return r == ' ' || r == ':' || r == ',' || r == '\t'
	})
	for _, f := range fields {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			return v, nil
		}
	}
	return 0, ResponseError{Command: cmd, Response: resp}
}
