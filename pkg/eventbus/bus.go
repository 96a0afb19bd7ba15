package eventbus

import (
	"context"
	"sync"
)

// Topic creates a group of subscribers that only receive events published to that topic
type Topic string

const (
	defaultTopic Topic = "__default__"

	// subscriberBuffer is the number of undelivered events held per subscriber before new events are dropped
	subscriberBuffer = 256
)

// EventDispatcher is implemented by anything that can publish events
type EventDispatcher interface {
	Dispatch(event Event, topics ...Topic)
}

// ShutdownFunc is called by a subscriber once it has finished processing after its channel closed
type ShutdownFunc func()

type subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

func (s *subscriber) finish() {
	s.once.Do(func() { close(s.done) })
}

// EventBus dispatches events to all subscribers on one or more topics.  Subscribers on the default
// topic receive every event.  Delivery never blocks the publisher: events for a subscriber whose
// buffer is full are dropped and counted.
type EventBus struct {
	mutex       sync.RWMutex
	subscribers map[Topic][]*subscriber
	all         []*subscriber
	closed      bool
	dropped     int
}

// New returns a new event bus
func New() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic][]*subscriber),
	}
}

// Subscribe will register a subscriber to 0 or more topics.  If no topic is defined, the subscriber is added to the
// default topic and receives all events published on any topic.
//
// The returned channel is closed when the bus shuts down.  Subscribers should drain it, finish their work and then
// call the returned ShutdownFunc.
func (e *EventBus) Subscribe(topics ...Topic) (<-chan Event, ShutdownFunc, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return nil, nil, ErrClosed
	}

	s := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	if len(topics) == 0 {
		topics = []Topic{defaultTopic}
	}
	for _, topic := range topics {
		e.subscribers[topic] = append(e.subscribers[topic], s)
	}
	e.all = append(e.all, s)
	return s.ch, s.finish, nil
}

// Dispatch sends the event to subscribers on the topics and to every default topic subscriber
func (e *EventBus) Dispatch(event Event, topics ...Topic) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.closed {
		return
	}

	// a subscriber on several matching topics still receives the event once
	seen := make(map[*subscriber]bool)
	for _, topic := range append(topics, defaultTopic) {
		for _, s := range e.subscribers[topic] {
			if seen[s] {
				continue
			}
			seen[s] = true
			select {
			case s.ch <- event:
			default:
				e.dropped++
			}
		}
	}
}

// Dropped returns the number of events that could not be delivered because a subscriber fell behind
func (e *EventBus) Dropped() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.dropped
}

// Shutdown closes every subscriber channel and blocks until all subscribers have called their
// ShutdownFunc.  ErrShutdownTimeout is returned if the context ends first.
func (e *EventBus) Shutdown(ctx context.Context) error {
	e.mutex.Lock()
	if e.closed {
		e.mutex.Unlock()
		return nil
	}
	e.closed = true
	subs := append([]*subscriber{}, e.all...)
	for _, s := range subs {
		close(s.ch)
	}
	e.mutex.Unlock()

	done := make(chan struct{})
	go shutdownNotify(done, subs)

	select {
	case <-ctx.Done():
		return ErrShutdownTimeout
	case <-done:
		return nil
	}
}

// shutdownNotify closes done once every subscriber has signalled that it finished
func shutdownNotify(done chan struct{}, all []*subscriber) {
	for _, s := range all {
		<-s.done
	}
	close(done)
}
