package metric

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-logfmt/logfmt"
)

type metadata map[string]string

// Name identifies a monitored quantity, such as the probe or one sensor channel.
// Metadata distinguishes quantities of the same kind and is rendered in logfmt,
// e.g. sensor[channel=101 unit=ohm]
type Name struct {
	name string
	md   metadata
}

// NewName returns a new name with the associated metadata
func NewName(name string, md map[string]string) Name {
	return Name{name: name, md: md}
}

// String marshals the name to its bracketed representation
func (n Name) String() string {
	md, err := MarshalText(n.md)
	if err != nil {
		md = []byte{}
	}
	return n.name + string(md)
}

// Base returns the name without metadata
func (n Name) Base() string {
	return n.name
}

// Get returns the metadata value for key, or the empty string
func (n Name) Get(key string) string {
	return n.md[key]
}

// With returns a copy of the name with key=value added
func (n Name) With(key string, value string) Name {
	md := make(map[string]string, len(n.md)+1)
	for k, v := range n.md {
		md[k] = v
	}
	md[key] = value
	return NewName(n.name, md)
}

// MarshalText encodes metadata as [k1=v1 k2=v2] with keys in sorted order.  Empty
// metadata encodes to nothing.
func MarshalText(m metadata) ([]byte, error) {
	if len(m) == 0 {
		return []byte{}, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b bytes.Buffer
	b.WriteByte('[')
	e := logfmt.NewEncoder(&b)
	for _, k := range keys {
		if err := e.EncodeKeyval(k, m[k]); err != nil {
			return nil, fmt.Errorf("failed to encode %s=%s: %v", k, m[k], err)
		}
	}
	b.WriteByte(']')
	return b.Bytes(), nil
}
