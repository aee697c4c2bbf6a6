package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSignal         EventType = "signal"
	EventPolicyResolved EventType = "policy_resolved"
	EventCallout        EventType = "callout"
	EventEntryAdded     EventType = "entry_added"
	EventEntryRemoved   EventType = "entry_removed"
)

// CalloutOp says what happened to a callout.
type CalloutOp string

const (
	CalloutCreated   CalloutOp = "created"
	CalloutRestored  CalloutOp = "restored"
	CalloutDiscarded CalloutOp = "discarded"
	CalloutSkipped   CalloutOp = "skipped"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	EntryID   uint32    `json:"entry_id"`
}

// SignalEvent reports a lifecycle signal taken off the bus.
type SignalEvent struct {
	EventBase
	Kind    SignalKind `json:"kind"`
	Path    string     `json:"path"`
	Handled bool       `json:"handled"`
}

// PolicyEvent reports the classification chosen for an entry.
type PolicyEvent struct {
	EventBase
	EventID string `json:"event_id"`
	Message string `json:"message"`
	Outcome string `json:"outcome"`
}

// CalloutEvent reports a callout being created, restored, discarded or skipped.
type CalloutEvent struct {
	EventBase
	Op            CalloutOp `json:"op"`
	Index         uint32    `json:"index"`
	InventoryPath string    `json:"inventory_path,omitempty"`
}

// EntryEvent reports an entry entering or leaving the registry.
type EntryEvent struct {
	EventBase
	Path     string `json:"path"`
	Callouts int    `json:"callouts"`
	Tracked  int    `json:"tracked"`
}

// LifecycleHooks defines callbacks for manager observability.
// Hooks run on the dispatch loop and must not block.
type LifecycleHooks struct {
	OnSignal         func(context.Context, *SignalEvent)
	OnPolicyResolved func(context.Context, *PolicyEvent)
	OnCallout        func(context.Context, *CalloutEvent)
	OnEntryAdded     func(context.Context, *EntryEvent)
	OnEntryRemoved   func(context.Context, *EntryEvent)
}
