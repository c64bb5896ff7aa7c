// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import (
	"github.com/google/uuid"
)

// Target is the interface of objects that can be pointed at by
// reference fields. Gained by embedding RefTarget.
type Target interface {
	Object

	// ID returns the target's stable unique identifier.
	ID() uuid.UUID

	target() *RefTarget
}

// dependentLink records one inbound dependent together with the number
// of reference slots through which it currently points here.
type dependentLink struct {
	maker *RefMaker
	count int
}

// RefTarget is the embeddable base of objects that can be referenced.
// It extends RefMaker with the inbound side of the graph: the list of
// dependents to notify when the object changes.
type RefTarget struct {
	RefMaker

	id         uuid.UUID
	dependents []dependentLink
}

func (t *RefTarget) target() *RefTarget { return t }

// ID returns the target's stable unique identifier.
func (t *RefTarget) ID() uuid.UUID { return t.id }

// ObjectTitle returns the display title of the object. The default is
// the class name.
func (t *RefTarget) ObjectTitle() string {
	return t.class.Name()
}

// registerDependent adds or bumps the inbound link from m. Called by
// the reference field mutators only.
func (t *RefTarget) registerDependent(m *RefMaker) {
	for i := range t.dependents {
		if t.dependents[i].maker == m {
			t.dependents[i].count++
			return
		}
	}
	t.dependents = append(t.dependents, dependentLink{maker: m, count: 1})
}

// unregisterDependent drops one inbound link from m, removing the entry
// when its slot count reaches zero.
func (t *RefTarget) unregisterDependent(m *RefMaker) {
	for i := range t.dependents {
		if t.dependents[i].maker == m {
			t.dependents[i].count--
			if t.dependents[i].count == 0 {
				t.dependents = append(t.dependents[:i], t.dependents[i+1:]...)
			}
			return
		}
	}
	panic("oo: unregisterDependent for a maker that is not a dependent")
}

// DependentCount returns the number of distinct objects currently
// referencing this target.
func (t *RefTarget) DependentCount() int { return len(t.dependents) }

// IsReferencedBy reports whether obj references this target, directly
// or through any chain of intermediate objects. An object is considered
// to reference itself.
func (t *RefTarget) IsReferencedBy(obj Object) bool {
	if t.self == obj {
		return true
	}
	for _, link := range t.dependents {
		if link.maker.self == obj {
			return true
		}
		if dt, ok := link.maker.self.(Target); ok {
			if dt.target().IsReferencedBy(obj) {
				return true
			}
		}
	}
	return false
}

// NotifyDependents sends a plain event of the given type to all
// dependents of the object.
func (t *RefTarget) NotifyDependents(eventType EventType) {
	t.notifyDependentsEvent(Event{Type: eventType, Sender: t.self.(Target), Index: -1})
}

// NotifyTargetChanged signals that the object's contents changed; field
// may name the property that caused the change, or be nil. The event
// propagates along the inbound edges of the graph.
func (t *RefTarget) NotifyTargetChanged(field *FieldDescriptor) {
	t.notifyDependentsEvent(Event{Type: TargetChanged, Sender: t.self.(Target), Field: field, Index: -1})
}

// notifyDependentsEvent delivers e to every current dependent. Handlers
// may mutate the dependents list (a deletion notification typically
// does), so delivery iterates over a snapshot. Dependents that elect to
// forward the event pass it on to their own dependents with the sender
// unchanged.
func (t *RefTarget) notifyDependentsEvent(e Event) {
	if t.session != nil {
		t.session.assertOwner("NotifyDependents")
	}
	snapshot := make([]*RefMaker, len(t.dependents))
	for i, link := range t.dependents {
		snapshot[i] = link.maker
	}
	source := t.self.(Target)
	for _, m := range snapshot {
		if m.handleReferenceEvent(source, e) {
			if dt, ok := m.self.(Target); ok {
				dt.target().notifyDependentsEvent(e)
			}
		}
	}
}

// DeleteReferenceObject removes the object from the reference graph: it
// announces its own deletion so that all dependents detach, then drops
// its outgoing references. The detachments run through the normal
// mutation protocol and are undoable while recording is active; undoing
// them restores the object into the graph.
func (t *RefTarget) DeleteReferenceObject() {
	t.NotifyDependents(TargetDeleted)
	t.ClearAllReferences()
}
