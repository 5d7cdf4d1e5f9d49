package interfaces

import "context"

// EventType identifies the kind of an event
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunProgress  EventType = "run.progress"
	EventRunPaused    EventType = "run.paused"
	EventRunResumed   EventType = "run.resumed"
	EventRunCompleted EventType = "run.completed"
	EventRunCanceled  EventType = "run.canceled"
	EventRunFailed    EventType = "run.failed"
)

// Event is a notification published on run lifecycle transitions
type Event struct {
	Type    EventType
	Payload map[string]interface{}
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService is a lightweight in-process pub/sub bus used to surface run
// lifecycle transitions to observers (logging, scheduler)
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
