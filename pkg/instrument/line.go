package instrument

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/soypat/cereal"
)

// PortOpener opens a named serial port.  cereal.Tarm satisfies it; tests substitute scripted ports.
type PortOpener interface {
	OpenPort(name string, mode cereal.Mode) (io.ReadWriteCloser, error)
}

// DefaultOpener opens real serial ports
var DefaultOpener PortOpener = cereal.Tarm{}

// SerialOption configures a serial instrument
type SerialOption func(*serialConfig)

type serialConfig struct {
	opener  PortOpener
	timeout time.Duration
	baud    int
}

// WithOpener replaces the serial port implementation
func WithOpener(o PortOpener) SerialOption {
	return func(c *serialConfig) {
		c.opener = o
	}
}

// WithReadTimeout sets how long a read waits for the device before failing
func WithReadTimeout(d time.Duration) SerialOption {
	return func(c *serialConfig) {
		c.timeout = d
	}
}

// WithBaudRate overrides the device's default baud rate
func WithBaudRate(baud int) SerialOption {
	return func(c *serialConfig) {
		c.baud = baud
	}
}

func newSerialConfig(baud int, opts []SerialOption) serialConfig {
	c := serialConfig{
		opener:  DefaultOpener,
		timeout: 2 * time.Second,
		baud:    baud,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// line is a carriage-return terminated command/response channel to a device
type line struct {
	mu   sync.Mutex
	rwc  io.ReadWriteCloser
	r    *bufio.Reader
	endl string
	// set when a reply was cut short; whatever the device sends late belongs to that query
	stale bool
}

func openLine(port string, cfg serialConfig) (*line, error) {
	rwc, err := cfg.opener.OpenPort(port, cereal.Mode{
		BaudRate:    cfg.baud,
		ReadTimeout: cfg.timeout,
	})
	if err != nil {
		return nil, err
	}
	return &line{
		rwc:  rwc,
		r:    bufio.NewReader(rwc),
		endl: "\r",
	}, nil
}

func (l *line) close() error {
	if l == nil {
		return nil
	}
	return l.rwc.Close()
}

// query writes a command and reads n non-empty response lines.  Input left over from an
// earlier exchange is discarded first so a reply always answers its own command.
func (l *line) query(cmd string, n int) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discard()
	if _, err := io.WriteString(l.rwc, cmd+l.endl); err != nil {
		return nil, err
	}
	res := make([]string, 0, n)
	for len(res) < n {
		s, err := l.readLine()
		if err != nil {
			l.stale = true
			return res, err
		}
		res = append(res, s)
	}
	return res, nil
}

// discard drops buffered input.  After a short reply it also reads the port until it runs
// dry, which costs at most one read timeout.
func (l *line) discard() {
	l.r.Reset(l.rwc)
	if !l.stale {
		return
	}
	l.stale = false
	buf := make([]byte, 64)
	for {
		n, err := l.rwc.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

// readLine returns the next non-empty line, accepting \r, \n or both as terminators
func (l *line) readLine() (string, error) {
	var b strings.Builder
	for {
		c, err := l.r.ReadByte()
		if err != nil {
			if err == io.EOF && b.Len() > 0 {
				return b.String(), nil
			}
			return "", err
		}
		if c == '\r' || c == '\n' {
			if b.Len() == 0 {
				continue
			}
			return strings.TrimSpace(b.String()), nil
		}
		b.WriteByte(c)
	}
}
