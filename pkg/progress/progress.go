// Package progress carries pipeline advancement events from the research
// engine to a streaming transport. Events are immutable, emitted once in the
// order the coordinator produces them, and never retracted. Delivery is
// best-effort: dropping an event must never affect the final report.
package progress

// EventType tags the variant of an Event.
type EventType string

const (
	EventStatus      EventType = "status"
	EventThinking    EventType = "thinking"
	EventSearchQuery EventType = "search_query"
	EventSource      EventType = "source"
	EventContent     EventType = "content"
)

// Event is a tagged union. Which fields are set depends on Type:
// status{title}, thinking{content}, search_query{id,query},
// source{id,title,url}, content{id,title,url,excerpt}.
type Event struct {
	Type    EventType `json:"type"`
	ID      string    `json:"id,omitempty"`
	Title   string    `json:"title,omitempty"`
	Content string    `json:"content,omitempty"`
	Query   string    `json:"query,omitempty"`
	URL     string    `json:"url,omitempty"`
	Excerpt string    `json:"excerpt,omitempty"`
}

func Status(title string) Event {
	return Event{Type: EventStatus, Title: title}
}

func Thinking(content string) Event {
	return Event{Type: EventThinking, Content: content}
}

func SearchQuery(id, query string) Event {
	return Event{Type: EventSearchQuery, ID: id, Query: query}
}

func Source(id, title, url string) Event {
	return Event{Type: EventSource, ID: id, Title: title, URL: url}
}

func ContentEvent(id, title, url, excerpt string) Event {
	return Event{Type: EventContent, ID: id, Title: title, URL: url, Excerpt: excerpt}
}

// Emitter publishes events. Implementations must not block the caller.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) {}

// Channel is a buffered single-writer event queue drained by a transport.
// Emit never blocks: when the consumer falls behind and the buffer is full,
// the event is dropped.
type Channel struct {
	ch chan Event
}

func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 256
	}
	return &Channel{ch: make(chan Event, buffer)}
}

func (c *Channel) Emit(ev Event) {
	select {
	case c.ch <- ev:
	default:
	}
}

// Events returns the consumer side of the queue.
func (c *Channel) Events() <-chan Event { return c.ch }

// Close signals the consumer that no further events will arrive. The
// producer must not Emit after Close.
func (c *Channel) Close() { close(c.ch) }
