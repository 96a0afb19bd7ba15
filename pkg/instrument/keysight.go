package instrument

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

var _ SensorArray = &Keysight34972A{}

const keysightPrompt = "34972A>"

// Dialer opens a network connection.  net.Dialer satisfies it.
type Dialer interface {
	Dial(network, address string) (net.Conn, error)
}

// Keysight34972A is a Keysight 34972A data acquisition unit reached over its telnet port.
// Channels are configured as resistance measurements and scanned on every read.
type Keysight34972A struct {
	address  string
	timeout  time.Duration
	dialer   Dialer
	conn     net.Conn
	r        *bufio.Reader
	channels []int
}

// KeysightOption configures a Keysight34972A
type KeysightOption func(*Keysight34972A)

// WithDialer replaces the network dialer
func WithDialer(d Dialer) KeysightOption {
	return func(k *Keysight34972A) {
		k.dialer = d
	}
}

// WithTimeout sets the deadline for each command
func WithTimeout(d time.Duration) KeysightOption {
	return func(k *Keysight34972A) {
		k.timeout = d
	}
}

// NewKeysight34972A returns a driver for the DAQ at address.  A missing port defaults to 5024.
func NewKeysight34972A(address string, opts ...KeysightOption) *Keysight34972A {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, "5024")
	}
	k := &Keysight34972A{
		address: address,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.dialer == nil {
		k.dialer = &net.Dialer{Timeout: k.timeout}
	}
	return k
}

// Connect resets the unit and configures the channels for a resistance scan
func (k *Keysight34972A) Connect(channels []int) error {
	conn, err := k.dialer.Dial("tcp", k.address)
	if err != nil {
		return err
	}
	k.conn = conn
	k.r = bufio.NewReader(conn)
	k.channels = append([]int{}, channels...)

	// consume the greeting up to the first prompt
	if _, err := k.readPrompt(); err != nil {
		k.Disconnect()
		return fmt.Errorf("keysight 34972A greeting: %w", err)
	}
	cmds := []string{"*RST"}
	if len(channels) > 0 {
		list := channelList(channels)
		cmds = append(cmds, "CONF:RES "+list, "ROUT:SCAN "+list)
	}
	for _, cmd := range cmds {
		if _, err := k.query(cmd); err != nil {
			k.Disconnect()
			return fmt.Errorf("keysight 34972A setup %q: %w", cmd, err)
		}
	}
	return nil
}

func (k *Keysight34972A) Disconnect() error {
	if k.conn == nil {
		return nil
	}
	err := k.conn.Close()
	k.conn = nil
	k.r = nil
	return err
}

// ReadValues triggers a scan and returns one reading per configured channel
func (k *Keysight34972A) ReadValues() ([]float64, error) {
	if k.conn == nil {
		return nil, ErrNotConnected
	}
	if len(k.channels) == 0 {
		return nil, nil
	}
	const cmd = "READ?"
	res, err := k.query(cmd)
	if err != nil {
		return nil, err
	}
	fields := strings.Split(strings.TrimSpace(res), ",")
	if len(fields) != len(k.channels) {
		return nil, ResponseError{Command: cmd, Response: res, Msg: fmt.Sprintf("expected %d readings, got %d", len(k.channels), len(fields))}
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, ResponseError{Command: cmd, Response: res}
		}
		values[i] = v
	}
	return values, nil
}

// query sends a command and returns the text the unit printed before its next prompt
func (k *Keysight34972A) query(cmd string) (string, error) {
	if err := k.conn.SetDeadline(time.Now().Add(k.timeout)); err != nil {
		return "", err
	}
	if _, err := k.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", err
	}
	res, err := k.readPrompt()
	if err != nil {
		return "", err
	}
	// the unit echoes the command on telnet sessions
	res = strings.TrimSpace(res)
	res = strings.TrimSpace(strings.TrimPrefix(res, cmd))
	return res, nil
}

func (k *Keysight34972A) readPrompt() (string, error) {
	var b strings.Builder
	for {
		c, err := k.r.ReadByte()
		if err != nil {
			return b.String(), err
		}
		b.WriteByte(c)
		if strings.HasSuffix(b.String(), keysightPrompt) {
			s := b.String()
			return s[:len(s)-len(keysightPrompt)], nil
		}
	}
}

// channelList formats channels as a SCPI list, (@101,102)
func channelList(channels []int) string {
	ids := make([]string, len(channels))
	for i, c := range channels {
		ids[i] = strconv.Itoa(c)
	}
	return "(@" + strings.Join(ids, ",") + ")"
}
