package timer

// EventType names one of the engine's lifecycle events.
type EventType string

const (
	EventStarted      EventType = "started"
	EventUpdated      EventType = "updated"
	EventPaused       EventType = "paused"
	EventResumed      EventType = "resumed"
	EventCompleted    EventType = "completed"
	EventAbandoned    EventType = "abandoned"
	EventInterruption EventType = "interruption"
)

// Event is implemented by every event the engine emits. Switch on the
// concrete type to read the payload.
type Event interface {
	Type() EventType
	isEvent()
}

// Started is emitted when Start creates a session.
type Started struct{ Session Session }

// Updated is emitted after every countdown tick and visibility resync.
type Updated struct{ Session Session }

// Paused is emitted when a running session is paused.
type Paused struct{ Session Session }

// Resumed is emitted when a paused session is resumed.
type Resumed struct{ Session Session }

// Completed carries the final snapshot of a completed session.
type Completed struct{ Session Session }

// Abandoned carries the final snapshot of an abandoned session. Hosts
// typically treat it as "clear the current session".
type Abandoned struct{ Session Session }

// Interruption is emitted when an interruption is recorded.
type Interruption struct {
	SessionID string
	Count     int
}

func (Started) Type() EventType      { return EventStarted }
func (Updated) Type() EventType      { return EventUpdated }
func (Paused) Type() EventType       { return EventPaused }
func (Resumed) Type() EventType      { return EventResumed }
func (Completed) Type() EventType    { return EventCompleted }
func (Abandoned) Type() EventType    { return EventAbandoned }
func (Interruption) Type() EventType { return EventInterruption }

func (Started) isEvent()      {}
func (Updated) isEvent()      {}
func (Paused) isEvent()       {}
func (Resumed) isEvent()      {}
func (Completed) isEvent()    {}
func (Abandoned) isEvent()    {}
func (Interruption) isEvent() {}

// Handler receives events for the type it was registered with.
type Handler func(Event)

// Subscription identifies a registered handler so it can be removed with Off.
type Subscription struct {
	id    uint64
	event EventType
}

type subscriber struct {
	id      uint64
	handler Handler
}
