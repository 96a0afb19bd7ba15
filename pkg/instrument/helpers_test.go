package instrument

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/soypat/cereal"
)

// scriptedPort answers each command written to it from a fixed script
type scriptedPort struct {
	mu      sync.Mutex
	replies map[string]string
	pending bytes.Buffer
	written []string
	closed  bool
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmd := strings.TrimRight(string(b), "\r\n")
	p.written = append(p.written, cmd)
	if reply, ok := p.replies[cmd]; ok {
		p.pending.WriteString(reply)
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending.Len() == 0 {
		return 0, io.EOF
	}
	return p.pending.Read(b)
}

func (p *scriptedPort) Close() error {
	p.closed = true
	return nil
}

type fakeOpener struct {
	port *scriptedPort
	mode cereal.Mode
	name string
	err  error
}

func (f *fakeOpener) OpenPort(name string, mode cereal.Mode) (io.ReadWriteCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.name = name
	f.mode = mode
	return f.port, nil
}

var errNoPort = errors.New("no such port")
