package bathctl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-yaml/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tt := []struct {
		Name     string
		Cmdline  string
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "interval", Cmdline: "--interval 10s", Expected: []ConfigOption{SampleInterval("10s")}, Error: false},
		{Name: "buffer-size", Cmdline: "--buffer-size 20", Expected: []ConfigOption{BufferSize("20")}, Error: false},
		{Name: "temp-min", Cmdline: "--temp-min -30", Expected: []ConfigOption{TempMin("-30")}, Error: false},
		{Name: "temp-max", Cmdline: "--temp-max 80", Expected: []ConfigOption{TempMax("80")}, Error: false},
		{Name: "ramp-tolerance", Cmdline: "--ramp-tolerance 0.01", Expected: []ConfigOption{RampTolerance("0.01")}, Error: false},
		{Name: "channels", Cmdline: "--channels 101,102", Expected: []ConfigOption{Channels("101,102")}, Error: false},
		{Name: "channels multiple", Cmdline: "--channels 101 --channels 102", Expected: []ConfigOption{Channels("101"), Channels("102")}, Error: false},
		{Name: "bath", Cmdline: "--bath lauda", Expected: []ConfigOption{Bath("lauda")}, Error: false},
		{Name: "bath-port", Cmdline: "--bath-port /dev/ttyUSB0", Expected: []ConfigOption{BathPort("/dev/ttyUSB0")}, Error: false},
		{Name: "probe-port", Cmdline: "--probe-port COM7", Expected: []ConfigOption{ProbePort("COM7")}, Error: false},
		{Name: "daq", Cmdline: "--daq 10.0.0.2", Expected: []ConfigOption{DAQAddress("10.0.0.2")}, Error: false},
		{Name: "simulate", Cmdline: "--simulate", Expected: []ConfigOption{Simulate()}, Error: false},
		{Name: "validate", Cmdline: "--validate", Expected: []ConfigOption{ValidateOnly()}, Error: false},
		{Name: "output-dir", Cmdline: "-o .", Expected: []ConfigOption{OutputDir(".")}, Error: false},
		{Name: "sqlite", Cmdline: "--sqlite runs.db", Expected: []ConfigOption{SQLite("runs.db")}, Error: false},
		{Name: "equalize-on", Cmdline: "--equalize-on probe", Expected: []ConfigOption{EqualizeOn("probe")}, Error: false},
		{Name: "retry-delay", Cmdline: "--retry-delay 1s", Expected: []ConfigOption{ReadRetryDelay("1s")}, Error: false},
		{Name: "log-level", Cmdline: "--log-level debug", Expected: []ConfigOption{LogLevel("debug")}, Error: false},
		{Name: "metrics-addr", Cmdline: "--metrics-addr :9100", Expected: []ConfigOption{MetricsAddr(":9100")}, Error: false},
		{Name: "mqtt-broker", Cmdline: "--mqtt-broker tcp://localhost:1883", Expected: []ConfigOption{MQTTBroker("tcp://localhost:1883")}, Error: false},
		{Name: "mqtt-topic", Cmdline: "--mqtt-topic lab/bath", Expected: []ConfigOption{MQTTTopic("lab/bath")}, Error: false},
		{Name: "rollbar-token", Cmdline: "--rollbar-token abc", Expected: []ConfigOption{RollbarToken("abc")}, Error: false},
		{Name: "error on unknown flag", Cmdline: "--does-not-exist", Expected: []ConfigOption{}, Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			pf := createFlagSet()
			_, options, err := parse(strings.Split(tc.Cmdline, " "), pf)
			if tc.Error {
				assert.Error(t, err)
			} else {
				expected, received := createComparisonConfigs(tc.Expected, options)
				assert.Equal(t, expected, received)
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseProgramArgument(t *testing.T) {
	pf := createFlagSet()
	args, options, err := parse([]string{"--simulate", "program.txt"}, pf)
	require.NoError(t, err)
	assert.Equal(t, []string{"program.txt"}, args)
	assert.Len(t, options, 1)
}

func TestParseYAML(t *testing.T) {
	tt := []struct {
		Name     string
		Yaml     map[string]interface{}
		Expected []ConfigOption
		Error    bool
	}{
		{Name: "interval", Yaml: map[string]interface{}{"interval": "10s"}, Expected: []ConfigOption{SampleInterval("10s")}, Error: false},
		{Name: "buffer-size", Yaml: map[string]interface{}{"buffer-size": 20}, Expected: []ConfigOption{BufferSize("20")}, Error: false},
		{Name: "temp-min", Yaml: map[string]interface{}{"temp-min": -30.5}, Expected: []ConfigOption{TempMin("-30.5")}, Error: false},
		{Name: "channels list", Yaml: map[string]interface{}{"channels": []int{101, 102}}, Expected: []ConfigOption{Channels("101,102")}, Error: false},
		{Name: "equalize-on list", Yaml: map[string]interface{}{"equalize-on": []string{"probe", "bath"}}, Expected: []ConfigOption{EqualizeOn("probe,bath")}, Error: false},
		{Name: "simulate", Yaml: map[string]interface{}{"simulate": true}, Expected: []ConfigOption{Simulate()}, Error: false},
		{Name: "simulate false", Yaml: map[string]interface{}{"simulate": false}, Expected: []ConfigOption{}, Error: false},
		{Name: "bath-port", Yaml: map[string]interface{}{"bath-port": "COM5"}, Expected: []ConfigOption{BathPort("COM5")}, Error: false},
		{Name: "unknown key", Yaml: map[string]interface{}{"colour": "blue"}, Expected: []ConfigOption{}, Error: true},
		{Name: "nested map", Yaml: map[string]interface{}{"bath": map[string]string{"port": "COM5"}}, Expected: []ConfigOption{}, Error: true},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bathctl.yml")
			data, err := yaml.Marshal(tc.Yaml)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, data, 0o644))

			pf := createFlagSet()
			_, options, err := parse([]string{"-c", path}, pf)
			if tc.Error {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			expected, received := createComparisonConfigs(tc.Expected, options)
			assert.Equal(t, expected, received)
		})
	}
}

// createComparisonConfigs applies both option lists to empty configurations so they can be compared
func createComparisonConfigs(expected []ConfigOption, received []ConfigOption) (*Config, *Config) {
	apply := func(opts []ConfigOption) *Config {
		c := &Config{}
		for _, opt := range opts {
			_ = opt(c)
		}
		return c
	}
	return apply(expected), apply(received)
}
