package taskdep

import "time"

// EventType names the domain events emitted after successful mutations.
type EventType string

const (
	EventDependencyCreated    EventType = "DependencyCreated"
	EventDependencyRemoved    EventType = "DependencyRemoved"
	EventDependencyOverridden EventType = "DependencyOverridden"
	EventDependencyResolved   EventType = "DependencyResolved"
	EventTaskRemoved          EventType = "TaskRemoved"
)

// Event describes a committed graph mutation for external consumers
// (live-update channels, webhooks). Emission is best effort: the engine does
// not depend on delivery succeeding.
type Event struct {
	Type       EventType   `json:"type"`
	TaskID     string      `json:"task_id,omitempty"`
	Dependency *Dependency `json:"dependency,omitempty"`
	At         time.Time   `json:"at"`
}

// Notifier receives domain events. Implementations must not block the
// calling goroutine for long; a slow consumer should buffer or drop.
type Notifier interface {
	Notify(Event)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
