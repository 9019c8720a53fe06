package tracking

import "sync"

// Event is one dataLayer entry. The "event" key carries the event name.
type Event map[string]any

// Name returns the event name.
func (e Event) Name() string {
	name, _ := e["event"].(string)
	return name
}

// EventLog is the append-only log a tag manager consumes.
type EventLog interface {
	Push(Event)
}

// DataLayer is an in-memory EventLog.
type DataLayer struct {
	mu     sync.Mutex
	events []Event
}

// NewDataLayer returns an empty dataLayer.
func NewDataLayer() *DataLayer {
	return &DataLayer{}
}

func (d *DataLayer) Push(e Event) {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
}

// Events returns a copy of everything pushed so far.
func (d *DataLayer) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Len is the number of pushed events.
func (d *DataLayer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

type nullEventLog struct{}

func (nullEventLog) Push(Event) {}
