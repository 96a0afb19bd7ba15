// Package logging writes leveled key/value log lines in logfmt
package logging

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Level is the severity of a log line
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel converts a level name to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("unknown log level: %s", s)
	}
}

type sink struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// Logger writes one logfmt record per call.  Loggers derived with With share the
// underlying writer and are safe for concurrent use.
type Logger struct {
	out    *sink
	level  Level
	fields []interface{}
}

// New returns a logger writing records at or above level to w
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		out:   &sink{w: w, now: time.Now},
		level: level,
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(io.Discard, Error+1)
}

// With returns a logger that adds keyvals to every record
func (l *Logger) With(keyvals ...interface{}) *Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(keyvals))
	fields = append(append(fields, l.fields...), keyvals...)
	return &Logger{out: l.out, level: l.level, fields: fields}
}

// Enabled reports whether records at level are written
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.log(Debug, msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.log(Info, msg, keyvals) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.log(Warn, msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.log(Error, msg, keyvals) }

func (l *Logger) log(level Level, msg string, keyvals []interface{}) {
	if !l.Enabled(level) {
		return
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	var b bytes.Buffer
	e := logfmt.NewEncoder(&b)
	_ = e.EncodeKeyval("ts", l.out.now().Format(time.RFC3339))
	_ = e.EncodeKeyval("level", level.String())
	_ = e.EncodeKeyval("msg", msg)
	for _, kv := range [][]interface{}{l.fields, keyvals} {
		if len(kv)%2 != 0 {
			kv = append(kv, "(MISSING)")
		}
		for i := 0; i < len(kv); i += 2 {
			if err := e.EncodeKeyval(kv[i], kv[i+1]); err != nil {
				_ = e.EncodeKeyval("logerr", err.Error())
			}
		}
	}
	_ = e.EndRecord()
	_, _ = l.out.w.Write(b.Bytes())
}
