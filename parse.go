package bathctl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-yaml/yaml"
	"github.com/spf13/pflag"
)

type options struct {
	options []ConfigOption
	err     error
}

// ParseCommandLine configures the controller from command line options or from a YAML
// configuration file passed with the -c flag.  Returns the remaining arguments, the program
// file, and a slice of functional options that can be applied to the configuration.
func ParseCommandLine() ([]string, []ConfigOption, error) {
	pf := createFlagSet()
	return parse(os.Args[1:], pf)
}

func parse(args []string, pf *pflag.FlagSet) ([]string, []ConfigOption, error) {
	options := options{}
	if err := pf.ParseAll(args, parseFlag(&options)); err != nil {
		return pf.Args(), options.options, err
	}
	return pf.Args(), options.options, options.err
}

func createFlagSet() *pflag.FlagSet {
	pf := pflag.NewFlagSet("bathctl", pflag.ContinueOnError)
	pf.Usage = func() {
		fmt.Printf("Usage of bathctl:\nbathctl <options> program.txt\n")
		fmt.Printf("\n%s", pf.FlagUsagesWrapped(10))
		fmt.Printf("\n\nPrograms contain one command per line: set <C>, wait, hold <seconds>, ramp <start>, <end>, <increment>, stop\n")
	}

	pf.StringP("config", "c", "", "Use yaml configuration file")
	pf.String("interval", "5s", "Time between samples.  Accepts a duration (5s) or seconds.")
	pf.Int("buffer-size", 30, "Number of consecutive stable samples required for equilibrium")
	pf.Float64("temp-min", -25, "Lowest setpoint a program may command (C)")
	pf.Float64("temp-max", 50, "Highest setpoint a program may command (C)")
	pf.Float64("ramp-tolerance", 0.001, "Distance from the ramp end at which a ramp is complete (C)")
	pf.String("channels", "", "DAQ channels to read, comma separated (e.g. 101,102)")
	pf.String("bath", "fluke7341", "Bath model: fluke7341, lauda or sim")
	pf.String("bath-port", "", "Serial port of the bath")
	pf.String("probe-port", "", "Serial port of the probe readout")
	pf.String("daq", "", "Address of the DAQ as host or host:port")
	pf.Bool("simulate", false, "Run against simulated instruments")
	pf.Bool("validate", false, "Validate the program and exit without connecting to instruments")
	pf.StringP("output-dir", "o", ".", "Directory for the CSV log")
	pf.String("sqlite", "", "Also record samples to this SQLite database")
	pf.String("equalize-on", "", "Monitors that must equalize: bath, probe, sensors or chNNN.  Default all.")
	pf.String("retry-delay", "250ms", "Pause before retrying a failed instrument read")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("metrics-addr", "", "Serve Prometheus metrics and status on this address (e.g. :9100)")
	pf.String("mqtt-broker", "", "Publish run events to this MQTT broker (e.g. tcp://localhost:1883)")
	pf.String("mqtt-topic", "bathctl", "Topic prefix for MQTT events")
	pf.String("rollbar-token", "", "Report unexpected errors to Rollbar")

	return pf
}

func parseFlag(o *options) func(*pflag.Flag, string) error {
	return func(flag *pflag.Flag, value string) error {
		switch flag.Name {
		case "config":
			opts, err := parseFromFile(value)
			if err != nil {
				o.err = err
				return err
			}
			o.options = append(o.options, opts...)
		default:
			option, err := handleOption(flag.Name, value)
			if err != nil {
				o.err = err
				return err
			}
			if option != nil {
				o.options = append(o.options, option)
			}
		}
		return nil
	}
}

// handleOption maps a flag or YAML key to its option.  Boolean options return nil when false.
func handleOption(name string, value string) (ConfigOption, error) {
	switch name {
	case "interval":
		return SampleInterval(value), nil
	case "buffer-size":
		return BufferSize(value), nil
	case "temp-min":
		return TempMin(value), nil
	case "temp-max":
		return TempMax(value), nil
	case "ramp-tolerance":
		return RampTolerance(value), nil
	case "channels":
		return Channels(value), nil
	case "bath":
		return Bath(value), nil
	case "bath-port":
		return BathPort(value), nil
	case "probe-port":
		return ProbePort(value), nil
	case "daq":
		return DAQAddress(value), nil
	case "simulate":
		return boolOption(name, value, Simulate())
	case "validate":
		return boolOption(name, value, ValidateOnly())
	case "output-dir":
		return OutputDir(value), nil
	case "sqlite":
		return SQLite(value), nil
	case "equalize-on":
		return EqualizeOn(value), nil
	case "retry-delay":
		return ReadRetryDelay(value), nil
	case "log-level":
		return LogLevel(value), nil
	case "metrics-addr":
		return MetricsAddr(value), nil
	case "mqtt-broker":
		return MQTTBroker(value), nil
	case "mqtt-topic":
		return MQTTTopic(value), nil
	case "rollbar-token":
		return RollbarToken(value), nil
	default:
		return nil, fmt.Errorf("Unknown option: %s", name)
	}
}

func boolOption(name string, value string, opt ConfigOption) (ConfigOption, error) {
	if value == "" {
		return opt, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("option %s expects true or false, got %s", name, value)
	}
	if !b {
		return nil, nil
	}
	return opt, nil
}

func parseFromFile(fpath string) ([]ConfigOption, error) {
	var options []ConfigOption
	data, err := os.ReadFile(fpath)
	if err != nil {
		return options, err
	}

	cfg := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return options, err
	}
	for k, v := range cfg {
		value, err := yamlValue(k, v)
		if err != nil {
			return options, err
		}
		opt, err := handleOption(k, value)
		if err != nil {
			return options, err
		}
		if opt != nil {
			options = append(options, opt)
		}
	}
	return options, nil
}

// yamlValue renders a YAML scalar or list of scalars the way it would appear on the command line
func yamlValue(key string, v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int:
		return strconv.Itoa(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			s, err := yamlValue(key, item)
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return strings.Join(items, ","), nil
	default:
		return "", fmt.Errorf("Could not process config key %s, unknown type", key)
	}
}
