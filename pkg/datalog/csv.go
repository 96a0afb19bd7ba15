package datalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var _ Recorder = &CSV{}

// FileTimeFormat names a run's CSV file after its start time
const FileTimeFormat = "2006-01-02T15-04-05"

type syncer interface {
	Sync() error
}

// CSV writes rows with a header to a CSV stream, flushing after every row
type CSV struct {
	w      *csv.Writer
	out    io.Writer
	closer io.Closer
	path   string
	width  int
	rows   int
	closed bool
}

// NewCSV writes the header for the channels and returns a recorder writing to w
func NewCSV(w io.Writer, channels []int) (*CSV, error) {
	header := []string{"time", "elapsed", "setpoint", "bath", "probe"}
	for _, ch := range channels {
		header = append(header, "ch"+strconv.Itoa(ch))
	}
	c := &CSV{
		w:     csv.NewWriter(w),
		out:   w,
		width: len(channels),
	}
	if err := c.write(header); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCSV creates a new file in dir named after start and writes the header.  An existing
// file is never overwritten.
func CreateCSV(dir string, start time.Time, channels []int) (*CSV, string, error) {
	path := filepath.Join(dir, start.Format(FileTimeFormat)+".csv")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, "", err
	}
	c, err := NewCSV(f, channels)
	if err != nil {
		f.Close()
		return nil, "", err
	}
	c.closer = f
	c.path = path
	return c, path, nil
}

func (c *CSV) Record(row Row) error {
	if len(row.Sensors) != c.width {
		return fmt.Errorf("row has %d sensor readings, log has %d channels", len(row.Sensors), c.width)
	}
	rec := []string{
		row.Time.Format(time.RFC3339),
		FormatElapsed(row.Elapsed),
		formatValue(row.Setpoint),
		formatValue(row.Bath),
		formatValue(row.Probe),
	}
	for _, v := range row.Sensors {
		rec = append(rec, formatValue(v))
	}
	if err := c.write(rec); err != nil {
		return err
	}
	c.rows++
	return nil
}

// Rows returns the number of rows written after the header
func (c *CSV) Rows() int {
	return c.rows
}

func (c *CSV) write(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return err
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	if s, ok := c.out.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// Close flushes and closes the file.  Closing twice is a no-op.
func (c *CSV) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.w.Flush()
	if c.closer != nil {
		return c.closer.Close()
	}
	return c.w.Error()
}

// Discard closes the log and removes a file created by CreateCSV if no rows were written,
// so a run that never sampled leaves no header-only file behind.
func (c *CSV) Discard() error {
	if err := c.Close(); err != nil {
		return err
	}
	if c.rows > 0 || c.path == "" {
		return nil
	}
	return os.Remove(c.path)
}
