// Package events provides an in-memory event bus using Go channels.
// Dispatch rounds, selections and model calls are published here so that
// loggers and trackers can observe them without touching the REPL.
package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// VS mode
	EventVsEntered    EventType = "vs.entered"
	EventVsExited     EventType = "vs.exited"
	EventVsDispatch   EventType = "vs.dispatch"
	EventVsResult     EventType = "vs.result"
	EventVsSelected   EventType = "vs.selected"
	EventVsAggregated EventType = "vs.aggregated"

	// Single-model conversation
	EventAssistantMessage EventType = "assistant.message"

	// Internal (analytics/tracing)
	EventLLMCall EventType = "internal.llm.call"

	// Session lifecycle
	EventSessionCreated EventType = "session.created"
	EventSessionClosed  EventType = "session.closed"

	// Configuration
	EventConfigReloaded EventType = "config.reloaded"
)

// EventSource identifies the component that emitted an event.
type EventSource string

const (
	SourceRepl       EventSource = "repl"
	SourceDispatcher EventSource = "dispatcher"
	SourceSelector   EventSource = "selector"
	SourceChat       EventSource = "chat"
	SourceConfig     EventSource = "config"
)

// Event represents an event in the system.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    EventSource    `json:"source"`
	Payload   map[string]any `json:"payload"`
}

// eventIDCounter is used to generate sequential event IDs.
var eventIDCounter uint64

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, source EventSource, payload map[string]any) Event {
	return Event{
		ID:        generateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

// NewEventWithSession creates a new event with session context.
func NewEventWithSession(eventType EventType, source EventSource, payload map[string]any, sessionID string) Event {
	return Event{
		ID:        generateEventID(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Payload:   payload,
	}
}

func generateEventID() string {
	seq := atomic.AddUint64(&eventIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), seq)
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// subscription delivers matching events to its handler from a single
// goroutine, in publish order.
type subscription struct {
	id         int
	eventTypes []EventType
	handler    Subscriber
	queue      chan Event
	stop       func() // runs after the last delivery
}

func (s *subscription) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for e := range s.queue {
		s.handler(e)
	}
	if s.stop != nil {
		s.stop()
	}
}

// Bus is an in-memory event bus using Go channels. Each subscriber sees
// events in the order they were published.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscription
	nextID      int
	eventChan   chan Event
	bufferSize  int
	ringBuffer  *RingBuffer
	closed      bool
	done        chan struct{}
	handlers    sync.WaitGroup
	dropped     uint64
}

// NewBus creates a new event bus. A non-positive size falls back to 256.
// The size bounds both the publish buffer and each subscriber's queue.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	b := &Bus{
		subscribers: make(map[int]*subscription),
		eventChan:   make(chan Event, bufferSize),
		bufferSize:  bufferSize,
		ringBuffer:  NewRingBuffer(bufferSize),
		done:        make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for event := range b.eventChan {
		b.ringBuffer.Add(event)
		b.notifySubscribers(event)
	}

	b.mu.Lock()
	for id, sub := range b.subscribers {
		close(sub.queue)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// notifySubscribers queues event for every matching subscriber. Queues are
// only closed under the write lock, so sending under the read lock is safe.
func (b *Bus) notifySubscribers(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if !b.matches(sub, event) {
			continue
		}
		select {
		case sub.queue <- event:
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

func (b *Bus) matches(sub *subscription, event Event) bool {
	if len(sub.eventTypes) == 0 {
		return true
	}
	for _, t := range sub.eventTypes {
		if t == event.Type {
			return true
		}
	}
	return false
}

// Publish sends an event to the bus. It never blocks; events that do not
// fit in the buffer are counted as dropped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- event:
	default:
		atomic.AddUint64(&b.dropped, 1)
	}
}

// Dropped returns how many events were discarded because the bus buffer
// or a subscriber queue was full.
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Subscribe registers a handler for specific event types.
// Returns an unsubscribe function. Events already queued for the handler
// are still delivered after unsubscribing.
func (b *Bus) Subscribe(handler Subscriber, eventTypes ...EventType) func() {
	return b.subscribe(handler, nil, eventTypes)
}

func (b *Bus) subscribe(handler Subscriber, stop func(), eventTypes []EventType) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscription{
		id:         id,
		eventTypes: eventTypes,
		handler:    handler,
		queue:      make(chan Event, b.bufferSize),
		stop:       stop,
	}
	b.handlers.Add(1)
	if b.closed {
		close(sub.queue)
	} else {
		b.subscribers[id] = sub
	}
	go sub.run(&b.handlers)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(s.queue)
		}
	}
}

// SubscribeChan returns a channel that receives events. The channel is
// closed once delivery has stopped, after unsubscribe or Close.
func (b *Bus) SubscribeChan(bufSize int, eventTypes ...EventType) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)

	unsubscribe := b.subscribe(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	}, func() { close(ch) }, eventTypes)

	return ch, unsubscribe
}

// History returns up to limit recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	return b.ringBuffer.Get(limit)
}

// Close stops accepting events, delivers everything already published and
// waits for handlers to return. It must not be called from a handler.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.eventChan)
	b.mu.Unlock()

	<-b.done
	b.handlers.Wait()
}

// RingBuffer is a circular buffer for storing recent events.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	size   int
	pos    int
	count  int
}

// NewRingBuffer creates a new ring buffer.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		events: make([]Event, size),
		size:   size,
	}
}

// Add stores event, overwriting the oldest one when full.
func (r *RingBuffer) Add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.pos] = event
	r.pos = (r.pos + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Get returns up to n of the most recent events, oldest first.
func (r *RingBuffer) Get(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Event, n)
	start := (r.pos - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result[i] = r.events[(start+i)%r.size]
	}
	return result
}
