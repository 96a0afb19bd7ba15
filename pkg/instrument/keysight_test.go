package instrument

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pipeDialer struct {
	received chan string
	reading  string
}

// Dial starts a fake 34972A telnet session on one end of a pipe
func (p *pipeDialer) Dial(network, address string) (net.Conn, error) {
	client, server := net.Pipe()
	go func() {
		defer server.Close()
		server.Write([]byte("Welcome to the 34972A\r\n" + keysightPrompt))
		r := bufio.NewReader(server)
		for {
			cmd, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd = strings.TrimSpace(cmd)
			p.received <- cmd
			reply := cmd + "\r\n"
			if cmd == "READ?" {
				reply += p.reading + "\r\n"
			}
			if _, err := server.Write([]byte(reply + keysightPrompt)); err != nil {
				return
			}
		}
	}()
	return client, nil
}

func TestKeysight34972A(t *testing.T) {
	d := &pipeDialer{received: make(chan string, 16), reading: "+1.02300000E+04,+9.87600000E+03"}
	daq := NewKeysight34972A("10.0.0.2", WithDialer(d), WithTimeout(time.Second))
	assert.Equal(t, "10.0.0.2:5024", daq.address)

	require.NoError(t, daq.Connect([]int{101, 102}))
	assert.Equal(t, "*RST", <-d.received)
	assert.Equal(t, "CONF:RES (@101,102)", <-d.received)
	assert.Equal(t, "ROUT:SCAN (@101,102)", <-d.received)

	values, err := daq.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, []float64{10230, 9876}, values)

	d.reading = "+1.0E+04"
	_, err = daq.ReadValues()
	assert.Error(t, err)

	assert.NoError(t, daq.Disconnect())
	_, err = daq.ReadValues()
	assert.Equal(t, ErrNotConnected, err)
}

func TestChannelList(t *testing.T) {
	assert.Equal(t, "(@101)", channelList([]int{101}))
	assert.Equal(t, "(@101,102,205)", channelList([]int{101, 102, 205}))
}
