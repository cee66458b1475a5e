package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventPending    EventType = "pending"
	EventConsumed   EventType = "consumed"
	EventDropped    EventType = "dropped"
	EventEmitFailed EventType = "emit_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time  `json:"timestamp"`
	Type      EventType  `json:"type"`
	Key       MessageKey `json:"key"`
}

// PendingEvent is emitted when a message enters the pending state.
type PendingEvent struct {
	EventBase
	ConnectionID string `json:"connection_id,omitempty"`
	Tasks        int    `json:"tasks"`
	Format       Format `json:"format"`
}

// ChecklistEvent is emitted when a pending entry was consumed, whether delivery succeeded or not.
type ChecklistEvent struct {
	EventBase
	Request ChecklistRequest `json:"request"`
	Err     error            `json:"-"`
}

// DropEvent is emitted when an event is ignored by the workflow.
type DropEvent struct {
	EventBase
	Reason string `json:"reason"`
}

// LifecycleHooks defines callbacks for workflow observability.
type LifecycleHooks struct {
	OnPending    func(context.Context, *PendingEvent)
	OnConsumed   func(context.Context, *ChecklistEvent)
	OnEmitFailed func(context.Context, *ChecklistEvent)
	OnDropped    func(context.Context, *DropEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnPending:    chain(h.OnPending, other.OnPending),
		OnConsumed:   chain(h.OnConsumed, other.OnConsumed),
		OnEmitFailed: chain(h.OnEmitFailed, other.OnEmitFailed),
		OnDropped:    chain(h.OnDropped, other.OnDropped),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
