package bathctl

import (
	"context"
	"fmt"
	"math"

	"github.com/BTBurke/bathctl/pkg/datalog"
	"github.com/BTBurke/bathctl/pkg/eventbus"
	"github.com/cenkalti/backoff"
)

type connection struct {
	name       string
	connect    func() error
	disconnect func() error
}

// connect brings up the bath, probe and sensor array in order.  If any fails the ones
// already connected are disconnected before returning.
func (c *Controller) connect() error {
	steps := []connection{
		{name: "bath", connect: c.devices.Bath.Connect, disconnect: c.devices.Bath.Disconnect},
		{name: "probe", connect: c.devices.Probe.Connect, disconnect: c.devices.Probe.Disconnect},
	}
	if sensors := c.devices.Sensors; sensors != nil && len(c.cfg.Channels) > 0 {
		steps = append(steps, connection{
			name:       "sensors",
			connect:    func() error { return sensors.Connect(c.cfg.Channels) },
			disconnect: sensors.Disconnect,
		})
	}

	for _, s := range steps {
		if err := s.connect(); err != nil {
			c.disconnect()
			return ConnectionError{Instrument: s.name, Err: err}
		}
		c.connected = append(c.connected, s)
		c.log.Info("connected", "instrument", s.name)
	}
	return nil
}

// disconnect releases connected instruments in reverse order
func (c *Controller) disconnect() {
	for i := len(c.connected) - 1; i >= 0; i-- {
		conn := c.connected[i]
		if err := conn.disconnect(); err != nil {
			c.log.Warn("disconnect failed", "instrument", conn.name, "err", err)
			continue
		}
		c.log.Info("disconnected", "instrument", conn.name)
	}
	c.connected = nil
}

// sample reads every instrument, feeds the monitors, appends a row to the log and then
// sleeps until the next tick.  Ticks start a fixed interval apart regardless of how long
// the work took.
func (c *Controller) sample(ctx context.Context) error {
	now := c.clock.Now()
	row := datalog.Row{
		Time:     now,
		Elapsed:  now.Sub(c.start),
		Setpoint: c.setpoint,
		Bath:     c.readTemperature(ctx, "bath", c.devices.Bath.ReadTemperature),
		Probe:    c.readTemperature(ctx, "probe", c.devices.Probe.ReadTemperature),
		Sensors:  c.readSensors(ctx),
	}

	readings := append([]float64{row.Bath, row.Probe}, row.Sensors...)
	for i, m := range c.monitors {
		if math.IsNaN(readings[i]) {
			m.Miss()
			continue
		}
		m.Update(readings[i])
	}

	if err := c.recorder.Record(row); err != nil {
		return RecordError{Err: err}
	}
	c.bus.Dispatch(eventbus.NewEvent(SampleRecorded, c.sampleEvent(row)), TopicSample)

	next := c.t0.Add(c.cfg.SampleInterval)
	if d := next.Sub(c.clock.Now()); d > 0 {
		if err := c.clock.Sleep(ctx, d); err != nil {
			return err
		}
	}
	c.t0 = next
	return nil
}

func (c *Controller) readTemperature(ctx context.Context, name string, read func() (float64, error)) float64 {
	var v float64
	err := c.retry(ctx, func() error {
		var err error
		v, err = read()
		return err
	})
	if err != nil {
		c.log.Warn("reading skipped", "err", TransientReadError{Instrument: name, Err: err})
		return math.NaN()
	}
	return v
}

// readSensors returns one value per channel.  A failed scan leaves every channel missing.
func (c *Controller) readSensors(ctx context.Context) []float64 {
	n := len(c.cfg.Channels)
	values := make([]float64, n)
	for i := range values {
		values[i] = math.NaN()
	}
	if n == 0 {
		return values
	}
	var got []float64
	err := c.retry(ctx, func() error {
		v, err := c.devices.Sensors.ReadValues()
		if err != nil {
			return err
		}
		if len(v) != n {
			return fmt.Errorf("got %d readings for %d channels", len(v), n)
		}
		got = v
		return nil
	})
	if err != nil {
		c.log.Warn("reading skipped", "err", TransientReadError{Instrument: "sensors", Err: err})
		return values
	}
	return got
}

// retry runs op and, if it fails, once more after the configured delay
func (c *Controller) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.ReadRetryDelay), 1), ctx)
	return backoff.Retry(op, b)
}

func (c *Controller) sampleEvent(row datalog.Row) Sample {
	ptr := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	s := Sample{
		Run:       c.run,
		Time:      row.Time,
		Elapsed:   row.Elapsed.Seconds(),
		Setpoint:  row.Setpoint,
		Bath:      ptr(row.Bath),
		Probe:     ptr(row.Probe),
		Equalized: c.equalized(),
	}
	for _, v := range row.Sensors {
		s.Sensors = append(s.Sensors, ptr(v))
	}
	return s
}
