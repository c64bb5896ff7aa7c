// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

// EventType identifies a kind of change notification. Application
// modules may define additional types above EventTypeUser; such values
// are also usable as a field's extra change-event type.
type EventType int

const (
	// TargetChanged is the generic "this object changed" notification
	// raised after a field mutation. It is the only built-in event type
	// that propagates transitively along reference edges.
	TargetChanged EventType = iota + 1

	// ReferenceChanged signals that a single reference field's target
	// was replaced.
	ReferenceChanged

	// ReferenceAdded signals an insertion into a vector reference field.
	ReferenceAdded

	// ReferenceRemoved signals a removal from a vector reference field.
	ReferenceRemoved

	// TargetDeleted announces that the sender is being deleted. Every
	// dependent receiving it clears its references to the sender; the
	// event never propagates further.
	TargetDeleted

	// TitleChanged signals that an object's display title changed.
	// GUI-level consumers use it to refresh labels without a pipeline
	// re-evaluation.
	TitleChanged

	// EventTypeUser is the first value available for application-defined
	// event types.
	EventTypeUser EventType = 1000
)

// String returns the event type name for diagnostics.
func (t EventType) String() string {
	switch t {
	case TargetChanged:
		return "TargetChanged"
	case ReferenceChanged:
		return "ReferenceChanged"
	case ReferenceAdded:
		return "ReferenceAdded"
	case ReferenceRemoved:
		return "ReferenceRemoved"
	case TargetDeleted:
		return "TargetDeleted"
	case TitleChanged:
		return "TitleChanged"
	default:
		return "UserEvent"
	}
}

// Event is a change notification traveling along reference-graph edges.
//
// Sender is the object that originated the notification; it stays fixed
// while the event propagates through intermediate dependents. Field,
// OldTarget, NewTarget and Index are populated for reference-field
// mutations, Field alone for property mutations.
type Event struct {
	Type   EventType
	Sender Target

	// Field is the descriptor of the mutated field, if the event was
	// raised by the mutation protocol. Nil for manual notifications.
	Field *FieldDescriptor

	OldTarget Target
	NewTarget Target

	// Index is the vector slot affected by a reference mutation, or -1.
	Index int
}

// ShouldPropagate reports whether dependents forward the event to their
// own dependents by default. Only the generic TargetChanged notification
// cascades.
func (e *Event) ShouldPropagate() bool { return e.Type == TargetChanged }
