package datalog

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	// register the sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

var _ Recorder = &SQLite{}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id       TEXT PRIMARY KEY,
	started  TEXT NOT NULL,
	channels TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run       TEXT NOT NULL REFERENCES runs(id),
	time      TEXT NOT NULL,
	elapsed_s REAL NOT NULL,
	setpoint  REAL,
	bath      REAL,
	probe     REAL
);
CREATE TABLE IF NOT EXISTS readings (
	run     TEXT NOT NULL REFERENCES runs(id),
	time    TEXT NOT NULL,
	channel INTEGER NOT NULL,
	value   REAL
);`

// SQLite records every run into one database, keyed by run id.  Each row is committed before
// Record returns.
type SQLite struct {
	db       *sql.DB
	run      string
	channels []int
}

// OpenSQLite opens or creates the database at path and registers the run
func OpenSQLite(path string, run string, start time.Time, channels []int) (*SQLite, error) {
	_, statErr := os.Stat(path)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if os.IsNotExist(statErr) {
		fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", path)
	}

	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = strconv.Itoa(ch)
	}
	if _, err := db.Exec(`INSERT INTO runs (id, started, channels) VALUES (?, ?, ?)`,
		run, start.Format(time.RFC3339), strings.Join(ids, ",")); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db, run: run, channels: append([]int{}, channels...)}, nil
}

func (s *SQLite) Record(row Row) (err error) {
	if len(row.Sensors) != len(s.channels) {
		return fmt.Errorf("row has %d sensor readings, log has %d channels", len(row.Sensors), len(s.channels))
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	ts := row.Time.Format(time.RFC3339Nano)
	if _, err = tx.Exec(`INSERT INTO samples (run, time, elapsed_s, setpoint, bath, probe) VALUES (?, ?, ?, ?, ?, ?)`,
		s.run, ts, row.Elapsed.Seconds(), nullable(row.Setpoint), nullable(row.Bath), nullable(row.Probe)); err != nil {
		return err
	}
	for i, ch := range s.channels {
		if _, err = tx.Exec(`INSERT INTO readings (run, time, channel, value) VALUES (?, ?, ?, ?)`,
			s.run, ts, ch, nullable(row.Sensors[i])); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}
