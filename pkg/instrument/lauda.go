package instrument

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var _ Bath = &LaudaRP845{}

// LaudaLimits are conservative setpoint limits for the Lauda RP 845
var LaudaLimits = Limits{Min: -25, Max: 50}

var laudaErrors = map[string]string{
	"2":  "wrong input",
	"3":  "wrong command",
	"5":  "syntax error in value",
	"6":  "illegal value",
	"8":  "module not available",
	"30": "programmer: all segments occupied",
	"31": "setpoint not possible",
	"32": "TiH <= TiL",
	"33": "external sensor missing",
	"34": "analogue value not available",
	"35": "automatic is selected",
	"36": "no setpoint input possible, programmer is running or paused",
	"37": "no start from programmer possible, analogue setpoint input is switched on",
}

var laudaErrPattern = regexp.MustCompile(`ERR_(\d+)`)

// LaudaRP845 is a Lauda RP 845 recirculating bath on a 9600 baud 8N1 serial line
type LaudaRP845 struct {
	port   string
	cfg    serialConfig
	limits Limits
	conn   *line
}

// NewLaudaRP845 returns a bath driver for the serial port
func NewLaudaRP845(port string, opts ...SerialOption) *LaudaRP845 {
	return &LaudaRP845{
		port:   port,
		cfg:    newSerialConfig(9600, opts),
		limits: LaudaLimits,
	}
}

// Connect opens the port and checks the device identifies itself as an RP 845
func (l *LaudaRP845) Connect() error {
	conn, err := openLine(l.port, l.cfg)
	if err != nil {
		return err
	}
	res, err := l.command(conn, "TYPE")
	if err != nil {
		conn.close()
		return err
	}
	if !strings.Contains(strings.Join(strings.Fields(res), " "), "RP 845") {
		conn.close()
		return ResponseError{Command: "TYPE", Response: res, Msg: "device is not a Lauda RP 845"}
	}
	l.conn = conn
	return nil
}

func (l *LaudaRP845) Disconnect() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.close()
	l.conn = nil
	return err
}

func (l *LaudaRP845) SetSetpoint(celsius float64) error {
	if l.conn == nil {
		return ErrNotConnected
	}
	if err := l.limits.check(celsius); err != nil {
		return err
	}
	cmd := fmt.Sprintf("out sp 00 %.2f", celsius)
	res, err := l.command(l.conn, cmd)
	if err != nil {
		return err
	}
	if !strings.Contains(res, "OK") {
		return ResponseError{Command: cmd, Response: res}
	}
	return nil
}

// ReadTemperature reads the bath's internal sensor
func (l *LaudaRP845) ReadTemperature() (float64, error) {
	if l.conn == nil {
		return 0, ErrNotConnected
	}
	const cmd = "in pv 10"
	res, err := l.command(l.conn, cmd)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(res), 64)
	if err != nil {
		return 0, ResponseError{Command: cmd, Response: res}
	}
	return v, nil
}

// command sends cmd and returns the single reply line, translating device error codes
func (l *LaudaRP845) command(conn *line, cmd string) (string, error) {
	res, err := conn.query(cmd, 1)
	if err != nil {
		return "", err
	}
	if m := laudaErrPattern.FindStringSubmatch(res[0]); m != nil {
		msg, ok := laudaErrors[m[1]]
		if !ok {
			msg = "error " + m[1]
		}
		return "", ResponseError{Command: cmd, Response: res[0], Msg: msg}
	}
	return res[0], nil
}
