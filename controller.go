// Package bathctl runs temperature control experiments.  A Controller executes a validated
// program against a bath, a reference probe and an optional sensor array, sampling every
// instrument at a fixed cadence and advancing through the program as the monitored
// quantities reach thermal equilibrium.
package bathctl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/BTBurke/bathctl/pkg/datalog"
	"github.com/BTBurke/bathctl/pkg/eventbus"
	"github.com/BTBurke/bathctl/pkg/fsm"
	"github.com/BTBurke/bathctl/pkg/logging"
	"github.com/BTBurke/bathctl/pkg/metric"
	"github.com/BTBurke/bathctl/pkg/program"
	"github.com/BTBurke/bathctl/pkg/stat"
	"github.com/dustin/go-humanize"
	"github.com/rs/xid"
)

// Controller states.  GO fetches the next command and is left within the same tick.
const (
	StateGo   fsm.State = "GO"
	StateWait fsm.State = "WAIT"
	StateHold fsm.State = "HOLD"
	StateRamp fsm.State = "RAMP"
	StateSet  fsm.State = "SET"
	StateStop fsm.State = "STOP"
)

var transitions = [][]fsm.Transition{
	fsm.T(StateGo, StateWait, StateHold, StateRamp, StateSet, StateStop),
	fsm.T(StateWait, StateGo, StateStop),
	fsm.T(StateHold, StateGo, StateStop),
	fsm.T(StateRamp, StateGo, StateStop),
	fsm.T(StateSet, StateGo, StateStop),
}

// ErrAlreadyRun is returned when Run is called on a controller that has already stopped
var ErrAlreadyRun = errors.New("controller has already run")

// Controller sequences one experiment.  It exclusively owns its instruments and recorder for
// the duration of Run and is not safe for concurrent use.
type Controller struct {
	cfg      *Config
	devices  Devices
	recorder datalog.Recorder
	machine  *fsm.Machine

	program   *program.Program
	index     int
	command   program.Command
	setpoint  float64
	rampEnd   float64
	rampInc   float64
	holdUntil time.Time
	start     time.Time
	t0        time.Time

	monitors  []*stat.EquilibriumMonitor
	gate      []*stat.EquilibriumMonitor
	connected []connection

	run      string
	clock    Clock
	log      *logging.Logger
	bus      eventbus.EventDispatcher
	reporter ErrorReporter
}

// Option configures a Controller
type Option func(c *Controller)

// WithClock replaces the wall clock that paces sampling
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger sets the logger for run, state and monitor lines.  The default discards.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithEventBus publishes state, monitor and sample events
func WithEventBus(bus eventbus.EventDispatcher) Option {
	return func(c *Controller) {
		c.bus = bus
	}
}

// WithReporter forwards unexpected errors to an external service
func WithReporter(r ErrorReporter) Option {
	return func(c *Controller) {
		c.reporter = r
	}
}

// WithRunID overrides the generated run id
func WithRunID(id string) Option {
	return func(c *Controller) {
		c.run = id
	}
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(eventbus.Event, ...eventbus.Topic) {}

// New returns a controller for one run.  Monitors are created for the bath, the probe and
// every configured channel, in that order.
func New(cfg *Config, devices Devices, recorder datalog.Recorder, opts ...Option) (*Controller, error) {
	if devices.Bath == nil || devices.Probe == nil {
		return nil, fmt.Errorf("a bath and a probe are required")
	}
	if len(cfg.Channels) > 0 && devices.Sensors == nil {
		return nil, fmt.Errorf("%d channels configured without a sensor array", len(cfg.Channels))
	}
	c := &Controller{
		cfg:      cfg,
		devices:  devices,
		recorder: recorder,
		run:      xid.New().String(),
		clock:    realClock{},
		log:      logging.Discard(),
		bus:      nopDispatcher{},
		reporter: noopReporter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("run", c.run)

	machine, err := fsm.NewMachine(StateGo,
		fsm.WithTransitions(transitions...),
		fsm.WithTerminal(StateStop),
		fsm.WithHook(c.onTransition),
	)
	if err != nil {
		return nil, err
	}
	c.machine = machine

	names := []metric.Name{metric.NewName("bath", nil), metric.NewName("probe", nil)}
	keys := []string{"bath", "probe"}
	for _, ch := range cfg.Channels {
		names = append(names, metric.NewName("sensor", map[string]string{"channel": fmt.Sprint(ch)}))
		keys = append(keys, channelKey(ch))
	}
	gate := make(map[string]bool)
	for _, k := range cfg.EqualizeOn {
		gate[k] = true
	}
	for i, name := range names {
		m, err := stat.NewEquilibriumMonitor(name, cfg.BufferSize, stat.WithObserver(c.onStatus), stat.WithLogger(c.log))
		if err != nil {
			return nil, err
		}
		c.monitors = append(c.monitors, m)
		sensor := i >= 2
		if len(gate) == 0 || gate[keys[i]] || (sensor && gate["sensors"]) {
			c.gate = append(c.gate, m)
		}
	}
	return c, nil
}

// RunID identifies this run in logs, events and the SQLite log
func (c *Controller) RunID() string {
	return c.run
}

// State returns the current controller state
func (c *Controller) State() fsm.State {
	return c.machine.State()
}

// Setpoint returns the active setpoint
func (c *Controller) Setpoint() float64 {
	return c.setpoint
}

// Run connects the instruments and executes the program until it stops, fails or ctx is
// cancelled.  Instruments are disconnected on every return path.  A run that reaches STOP
// returns nil.
func (c *Controller) Run(ctx context.Context, prog *program.Program) error {
	if c.machine.Terminated() {
		return ErrAlreadyRun
	}
	c.program = prog
	c.index = 0

	if err := c.connect(); err != nil {
		c.reporter.ReportError(err)
		c.log.Error("connection failed", "err", err)
		return err
	}
	defer c.disconnect()

	c.start = c.clock.Now()
	c.t0 = c.start
	c.log.Info("run started", "commands", prog.Len(), "interval", c.cfg.SampleInterval, "buffer", c.cfg.BufferSize, "monitors", len(c.monitors), "gate", len(c.gate))

	if err := c.next(); err != nil {
		return c.fail(err)
	}
	for !c.machine.Terminated() {
		if err := ctx.Err(); err != nil {
			return c.cancel(err)
		}
		if err := c.sample(ctx); err != nil {
			if ctx.Err() != nil {
				return c.cancel(ctx.Err())
			}
			return c.fail(err)
		}
		if err := c.step(); err != nil {
			return c.fail(err)
		}
	}
	c.log.Info("run complete", "elapsed", humanize.RelTime(c.start, c.clock.Now(), "", ""))
	return nil
}

// step evaluates the current state after a sample
func (c *Controller) step() error {
	switch state := c.machine.State(); state {
	case StateWait:
		if c.equalized() {
			return c.next()
		}
	case StateHold:
		if !c.t0.Before(c.holdUntil) {
			return c.next()
		}
	case StateSet:
		c.push()
		return c.next()
	case StateRamp:
		return c.ramp()
	default:
		return UnknownCommandError{State: string(state)}
	}
	return nil
}

// ramp advances the setpoint one increment each time the monitors equalize, and moves on
// once they equalize at the ramp end.
func (c *Controller) ramp() error {
	if !c.equalized() {
		return nil
	}
	if math.Abs(c.setpoint-c.rampEnd) < c.cfg.RampTolerance {
		return c.next()
	}
	c.setpoint += c.rampInc
	if (c.rampInc > 0 && c.setpoint > c.rampEnd) || (c.rampInc < 0 && c.setpoint < c.rampEnd) {
		c.setpoint = c.rampEnd
	}
	c.log.Info("ramp step", "setpoint", c.setpoint, "end", c.rampEnd)
	c.push()
	c.resetMonitors()
	return nil
}

// next moves through GO to the state of the next command, or to STOP at the end of the program
func (c *Controller) next() error {
	if c.machine.State() != StateGo {
		if err := c.machine.Transition(StateGo); err != nil {
			return err
		}
	}
	if c.index >= c.program.Len() {
		return c.machine.Transition(StateStop)
	}
	cmd := c.program.At(c.index)
	c.index++
	return c.dispatch(cmd)
}

func (c *Controller) dispatch(cmd program.Command) error {
	c.command = cmd
	var to fsm.State
	switch cmd.Kind {
	case program.Wait:
		to = StateWait
	case program.Hold:
		c.holdUntil = c.t0.Add(time.Duration(cmd.Seconds) * time.Second)
		c.log.Info("holding", "for", humanize.RelTime(c.t0, c.holdUntil, "", ""), "line", cmd.Line)
		to = StateHold
	case program.Ramp:
		c.setpoint = cmd.Start
		c.rampEnd = cmd.End
		c.rampInc = cmd.Increment
		c.push()
		to = StateRamp
	case program.Set:
		c.setpoint = cmd.Setpoint
		to = StateSet
	case program.Stop:
		to = StateStop
	default:
		return UnknownCommandError{Kind: cmd.Kind}
	}
	c.resetMonitors()
	return c.machine.Transition(to)
}

// push sends the active setpoint to the bath.  A refused setpoint is logged and the run continues.
func (c *Controller) push() {
	if err := c.devices.Bath.SetSetpoint(c.setpoint); err != nil {
		c.log.Warn("setpoint not accepted", "setpoint", c.setpoint, "err", err)
		return
	}
	c.log.Info("setpoint", "value", c.setpoint)
}

func (c *Controller) equalized() bool {
	for _, m := range c.gate {
		if !m.IsEqualized() {
			return false
		}
	}
	return true
}

func (c *Controller) resetMonitors() {
	for _, m := range c.monitors {
		m.Reset()
	}
}

// fail stops the machine after an unrecoverable error
func (c *Controller) fail(err error) error {
	c.log.Error("run failed", "state", c.machine.State(), "err", err)
	c.reporter.ReportError(err)
	c.stop()
	return err
}

func (c *Controller) cancel(err error) error {
	c.log.Warn("run cancelled", "state", c.machine.State(), "err", err)
	c.stop()
	return err
}

func (c *Controller) stop() {
	if !c.machine.Terminated() {
		if err := c.machine.Transition(StateStop); err != nil {
			c.log.Error("unable to stop", "err", err)
		}
	}
}

func (c *Controller) onTransition(from, to fsm.State) {
	c.log.Info("state", "from", from, "to", to, "command", c.index, "setpoint", c.setpoint)
	c.bus.Dispatch(eventbus.NewEvent(StateChanged, StateChange{
		Run:      c.run,
		Time:     c.clock.Now(),
		From:     from,
		To:       to,
		Command:  c.index,
		Line:     c.command.Line,
		Setpoint: c.setpoint,
	}), TopicState)
}

func (c *Controller) onStatus(s stat.Status) {
	if c.log.Enabled(logging.Debug) {
		c.log.Debug("monitor", "name", s.Name, "class", s.Classification, "progress", fmt.Sprintf("%d/%d", s.Count, s.Capacity), "std", s.STD, "fill", s.FillRatio)
	}
	c.bus.Dispatch(eventbus.NewEvent(MonitorUpdated, MonitorUpdate{Run: c.run, Status: s}), TopicMonitor)
}
