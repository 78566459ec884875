package host

import "fmt"

// Event identifies a document lifecycle notification.
type Event int

const (
	// Loaded fires after a document's content was read from disk.
	Loaded Event = iota
	// PreSave fires before the buffer is written to disk.
	PreSave
	// PostSave fires after the buffer was written to disk.
	PostSave
	// Modified fires after the buffer content changed.
	Modified
	// Closed fires when the document instance is closed.
	Closed
)

// Events lists every lifecycle event in declaration order.
var Events = []Event{Loaded, PreSave, PostSave, Modified, Closed}

func (e Event) String() string {
	switch e {
	case Loaded:
		return "loaded"
	case PreSave:
		return "pre_save"
	case PostSave:
		return "post_save"
	case Modified:
		return "modified"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Handler reacts to a lifecycle event. Handlers run to completion on the
// emitting goroutine.
type Handler func(doc Document)

// Subscriber registers lifecycle handlers.
type Subscriber interface {
	Subscribe(event Event, handler Handler)
}

// Bus dispatches events to handlers in subscription order. It is meant for
// the single event thread of a host and does no locking.
type Bus struct {
	handlers map[Event][]Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Event][]Handler)}
}

// Subscribe appends handler to the handlers for event.
func (b *Bus) Subscribe(event Event, handler Handler) {
	if b.handlers == nil {
		b.handlers = make(map[Event][]Handler)
	}
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit runs every handler subscribed to event, in order.
func (b *Bus) Emit(event Event, doc Document) {
	for _, h := range b.handlers[event] {
		h(doc)
	}
}
