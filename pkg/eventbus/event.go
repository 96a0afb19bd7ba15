package eventbus

// EventType represents the type of event being passed on the bus.  It allows handlers receiving the event to
// decide how to interpret the data or whether processing is required
type EventType string

// Event is passed on the event bus to every subscriber on the topic
type Event struct {
	EventType EventType
	Data      interface{}
}

// NewEvent returns an event carrying data
func NewEvent(t EventType, data interface{}) Event {
	return Event{EventType: t, Data: data}
}
