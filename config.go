package bathctl

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BTBurke/bathctl/pkg/logging"
	"github.com/BTBurke/bathctl/pkg/program"
)

// Bath models that can be driven
const (
	BathFluke7341 = "fluke7341"
	BathLauda     = "lauda"
	BathSim       = "sim"
)

// Environment variables read by Environment().  cmd/bathctl loads them from a .env file.
const (
	EnvRollbarToken = "BATHCTL_ROLLBAR_TOKEN"
	EnvMQTTPassword = "BATHCTL_MQTT_PASSWORD"
)

// Config is everything a run needs.  It is built once from options and passed to New.
type Config struct {
	SampleInterval time.Duration
	BufferSize     int
	Limits         program.Limits
	RampTolerance  float64
	Channels       []int
	Bath           string
	BathPort       string
	ProbePort      string
	DAQAddress     string
	Simulate       bool
	ValidateOnly   bool
	OutputDir      string
	SQLite         string
	EqualizeOn     []string
	ReadRetryDelay time.Duration
	LogLevel       logging.Level
	MetricsAddr    string
	MQTTBroker     string
	MQTTTopic      string
	MQTTPassword   string
	RollbarToken   string
}

// ConfigOption is a functional option that configures the controller
type ConfigOption func(c *Config) error

// NewConfig applies options over the defaults and validates the result.  Every failed
// option is reported, not only the first.
func NewConfig(options ...ConfigOption) (*Config, []error) {
	c := &Config{
		SampleInterval: 5 * time.Second,
		BufferSize:     30,
		Limits:         program.DefaultLimits,
		RampTolerance:  0.001,
		Bath:           BathFluke7341,
		OutputDir:      ".",
		ReadRetryDelay: 250 * time.Millisecond,
		LogLevel:       logging.Info,
		MQTTTopic:      "bathctl",
	}

	var errors []error
	for _, option := range options {
		if err := option(c); err != nil {
			errors = append(errors, err)
		}
	}
	errors = append(errors, c.validate()...)

	if len(errors) > 0 {
		return nil, errors
	}
	return c, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.BufferSize < 1 {
		errs = append(errs, fmt.Errorf("buffer size must be at least 1, got %d", c.BufferSize))
	}
	if c.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("sample interval must be positive, got %s", c.SampleInterval))
	}
	if c.Limits.Min >= c.Limits.Max {
		errs = append(errs, fmt.Errorf("temperature minimum %g must be below maximum %g", c.Limits.Min, c.Limits.Max))
	}
	if c.RampTolerance <= 0 {
		errs = append(errs, fmt.Errorf("ramp tolerance must be positive, got %g", c.RampTolerance))
	}
	seen := make(map[int]bool)
	for _, ch := range c.Channels {
		if seen[ch] {
			errs = append(errs, fmt.Errorf("channel %d listed more than once", ch))
		}
		seen[ch] = true
	}
	for _, name := range c.EqualizeOn {
		if !c.knownMonitor(name) {
			errs = append(errs, fmt.Errorf("cannot equalize on %s: not a monitored quantity", name))
		}
	}
	switch c.Bath {
	case BathFluke7341, BathLauda:
	case BathSim:
		c.Simulate = true
	default:
		errs = append(errs, fmt.Errorf("unknown bath model %s", c.Bath))
	}
	if !c.Simulate && !c.ValidateOnly {
		if c.BathPort == "" {
			errs = append(errs, fmt.Errorf("bath port is required"))
		}
		if c.ProbePort == "" {
			errs = append(errs, fmt.Errorf("probe port is required"))
		}
		if len(c.Channels) > 0 && c.DAQAddress == "" {
			errs = append(errs, fmt.Errorf("DAQ address is required when channels are configured"))
		}
	}
	return errs
}

func (c *Config) knownMonitor(name string) bool {
	switch name {
	case "bath", "probe":
		return true
	case "sensors":
		return len(c.Channels) > 0
	}
	for _, ch := range c.Channels {
		if name == channelKey(ch) {
			return true
		}
	}
	return false
}

func channelKey(ch int) string {
	return "ch" + strconv.Itoa(ch)
}

// SampleInterval sets the time between tick starts, e.g. 5s
func SampleInterval(interval string) ConfigOption {
	return func(c *Config) error {
		d, err := parseSeconds(interval)
		if err != nil {
			return fmt.Errorf("unrecognized sample interval: %s", interval)
		}
		c.SampleInterval = d
		return nil
	}
}

// BufferSize sets the capacity of every equilibrium monitor
func BufferSize(size string) ConfigOption {
	return func(c *Config) error {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("could not convert buffer-size to integer")
		}
		c.BufferSize = n
		return nil
	}
}

// TempMin sets the lowest setpoint a program may command
func TempMin(celsius string) ConfigOption {
	return func(c *Config) error {
		v, err := strconv.ParseFloat(celsius, 64)
		if err != nil {
			return fmt.Errorf("could not convert temp-min to a number")
		}
		c.Limits.Min = v
		return nil
	}
}

// TempMax sets the highest setpoint a program may command
func TempMax(celsius string) ConfigOption {
	return func(c *Config) error {
		v, err := strconv.ParseFloat(celsius, 64)
		if err != nil {
			return fmt.Errorf("could not convert temp-max to a number")
		}
		c.Limits.Max = v
		return nil
	}
}

// RampTolerance sets how close a ramp setpoint must be to its end to count as reached
func RampTolerance(tol string) ConfigOption {
	return func(c *Config) error {
		v, err := strconv.ParseFloat(tol, 64)
		if err != nil {
			return fmt.Errorf("could not convert ramp-tolerance to a number")
		}
		c.RampTolerance = v
		return nil
	}
}

// Channels adds DAQ channels from a comma separated list, e.g. 101,102
func Channels(list string) ConfigOption {
	return func(c *Config) error {
		for _, s := range splitList(list) {
			ch, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("invalid channel %s", s)
			}
			c.Channels = append(c.Channels, ch)
		}
		return nil
	}
}

// Bath selects the bath model
func Bath(model string) ConfigOption {
	return func(c *Config) error {
		c.Bath = strings.ToLower(model)
		return nil
	}
}

// BathPort sets the serial port of the bath
func BathPort(port string) ConfigOption {
	return func(c *Config) error {
		c.BathPort = port
		return nil
	}
}

// ProbePort sets the serial port of the reference probe readout
func ProbePort(port string) ConfigOption {
	return func(c *Config) error {
		c.ProbePort = port
		return nil
	}
}

// DAQAddress sets the host or host:port of the sensor array
func DAQAddress(addr string) ConfigOption {
	return func(c *Config) error {
		c.DAQAddress = addr
		return nil
	}
}

// Simulate runs against simulated instruments
func Simulate() ConfigOption {
	return func(c *Config) error {
		c.Simulate = true
		return nil
	}
}

// ValidateOnly checks the program and exits without connecting to anything
func ValidateOnly() ConfigOption {
	return func(c *Config) error {
		c.ValidateOnly = true
		return nil
	}
}

// OutputDir sets where the CSV log is written
func OutputDir(dir string) ConfigOption {
	return func(c *Config) error {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("output directory %s: %v", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("output directory %s is not a directory", dir)
		}
		c.OutputDir = dir
		return nil
	}
}

// SQLite also records samples to the database at path
func SQLite(path string) ConfigOption {
	return func(c *Config) error {
		c.SQLite = path
		return nil
	}
}

// EqualizeOn limits the equilibrium decision to the named monitors: bath, probe, sensors
// or a single channel such as ch101.  By default every monitor must equalize.
func EqualizeOn(names string) ConfigOption {
	return func(c *Config) error {
		c.EqualizeOn = append(c.EqualizeOn, splitList(names)...)
		return nil
	}
}

// ReadRetryDelay sets the pause before retrying a failed instrument read
func ReadRetryDelay(delay string) ConfigOption {
	return func(c *Config) error {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return fmt.Errorf("unrecognized retry delay: %s", delay)
		}
		c.ReadRetryDelay = d
		return nil
	}
}

// LogLevel sets the lowest level written: debug, info, warn or error
func LogLevel(level string) ConfigOption {
	return func(c *Config) error {
		l, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		c.LogLevel = l
		return nil
	}
}

// MetricsAddr serves Prometheus metrics and run status on addr, e.g. :9100
func MetricsAddr(addr string) ConfigOption {
	return func(c *Config) error {
		c.MetricsAddr = addr
		return nil
	}
}

// MQTTBroker publishes run events to the broker, e.g. tcp://localhost:1883
func MQTTBroker(broker string) ConfigOption {
	return func(c *Config) error {
		c.MQTTBroker = broker
		return nil
	}
}

// MQTTTopic sets the prefix events are published under
func MQTTTopic(topic string) ConfigOption {
	return func(c *Config) error {
		c.MQTTTopic = topic
		return nil
	}
}

// RollbarToken enables reporting of unexpected errors
func RollbarToken(token string) ConfigOption {
	return func(c *Config) error {
		c.RollbarToken = token
		return nil
	}
}

// Environment reads secrets from the process environment
func Environment() ConfigOption {
	return func(c *Config) error {
		if token := os.Getenv(EnvRollbarToken); token != "" {
			c.RollbarToken = token
		}
		c.MQTTPassword = os.Getenv(EnvMQTTPassword)
		return nil
	}
}

// parseSeconds accepts a duration such as 5s or a bare number of seconds
func parseSeconds(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}
