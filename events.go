package bathctl

import (
	"time"

	"github.com/BTBurke/bathctl/pkg/eventbus"
	"github.com/BTBurke/bathctl/pkg/fsm"
	"github.com/BTBurke/bathctl/pkg/stat"
)

// Events dispatched on the bus during a run
const (
	StateChanged   eventbus.EventType = "state_change"
	MonitorUpdated eventbus.EventType = "monitor_status"
	SampleRecorded eventbus.EventType = "sample"
)

// Topics group events for subscribers that only want part of the stream
const (
	TopicState   eventbus.Topic = "state"
	TopicMonitor eventbus.Topic = "monitor"
	TopicSample  eventbus.Topic = "sample"
)

// StateChange is the data of a StateChanged event
type StateChange struct {
	Run      string    `json:"run"`
	Time     time.Time `json:"time"`
	From     fsm.State `json:"from"`
	To       fsm.State `json:"to"`
	Command  int       `json:"command"`
	Line     int       `json:"line,omitempty"`
	Setpoint float64   `json:"setpoint"`
}

// MonitorUpdate is the data of a MonitorUpdated event
type MonitorUpdate struct {
	Run    string      `json:"run"`
	Status stat.Status `json:"status"`
}

// Sample is the data of a SampleRecorded event.  Missing readings are nil.
type Sample struct {
	Run       string     `json:"run"`
	Time      time.Time  `json:"time"`
	Elapsed   float64    `json:"elapsed_s"`
	Setpoint  float64    `json:"setpoint"`
	Bath      *float64   `json:"bath"`
	Probe     *float64   `json:"probe"`
	Sensors   []*float64 `json:"sensors"`
	Equalized bool       `json:"equalized"`
}
