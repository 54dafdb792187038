package events

import (
	"sync"
	"time"
)

// Event is one per-file stage transition within a batch request
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Filename  string    `json:"filename,omitempty"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
}

// Bus keeps a bounded history of events and fans new ones out to
// subscribers. Slow subscribers drop events rather than block publishers.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	nextSub   int
	subs      map[int]chan Event
}

// NewBus creates a bounded in-memory event bus
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		subs:      make(map[int]chan Event),
	}
}

// Publish assigns sequence and timestamp, stores the event and delivers it
// to current subscribers.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}

	return event
}

// Since returns stored events with sequence greater than seq. An empty
// requestID matches every request.
func (b *Bus) Since(requestID string, seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0)
	for _, event := range b.events {
		if event.Seq > seq && (requestID == "" || event.RequestID == requestID) {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe registers a live listener
func (b *Bus) Subscribe(buffer int) (int, <-chan Event) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSub++
	ch := make(chan Event, buffer)
	b.subs[b.nextSub] = ch
	return b.nextSub, ch
}

// Unsubscribe removes a listener and closes its channel
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}
