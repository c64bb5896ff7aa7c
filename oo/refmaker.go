// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import (
	"fmt"

	"github.com/google/uuid"
)

// Object is the interface satisfied by every participant of the
// reference graph. Concrete types gain it by embedding RefMaker (for
// pure reference holders) or RefTarget (for objects that can themselves
// be referenced) and calling Init during construction.
type Object interface {
	// OOClass returns the runtime class descriptor.
	OOClass() *Class

	// Session returns the owning session.
	Session() *Session

	maker() *RefMaker
}

// PropertyChangedHandler is implemented by objects that want a callback
// after one of their property fields changed value.
type PropertyChangedHandler interface {
	OnPropertyChanged(field *FieldDescriptor)
}

// ReferenceReplacedHandler is implemented by objects that want a
// callback after a reference field was redirected to a new target.
// index is -1 for single-valued fields.
type ReferenceReplacedHandler interface {
	OnReferenceReplaced(field *FieldDescriptor, oldTarget, newTarget Target, index int)
}

// ReferenceInsertedHandler is implemented by objects that want a
// callback after an entry was added to a vector reference field.
type ReferenceInsertedHandler interface {
	OnReferenceInserted(field *FieldDescriptor, target Target, index int)
}

// ReferenceRemovedHandler is implemented by objects that want a
// callback after an entry was removed from a vector reference field.
type ReferenceRemovedHandler interface {
	OnReferenceRemoved(field *FieldDescriptor, target Target, index int)
}

// ReferenceEventHandler lets an object intercept notification events
// arriving from its referenced targets. Returning true forwards the
// event to the object's own dependents. Implementations that only want
// to observe should delegate to DefaultReferenceEvent for the return
// value.
type ReferenceEventHandler interface {
	OnReferenceEvent(source Target, event Event) bool
}

// RefMaker is the embeddable base of every object that holds tracked
// references. It stores the per-instance bookkeeping the descriptors
// operate on.
type RefMaker struct {
	self    Object
	class   *Class
	session *Session
}

// Init binds the embedded base to its concrete instance, class and
// session. Must be called exactly once before the object is used;
// factories registered with RegisterClass do this.
func Init(obj Object, class *Class, session *Session) {
	m := obj.maker()
	if m.self != nil {
		panic("oo: Init called twice on the same object")
	}
	if class == nil || session == nil {
		panic("oo: Init requires a class and a session")
	}
	m.self = obj
	m.class = class
	m.session = session
	if t, ok := obj.(Target); ok {
		t.target().id = uuid.New()
	}
}

func (m *RefMaker) maker() *RefMaker { return m }

// OOClass returns the runtime class descriptor.
func (m *RefMaker) OOClass() *Class { return m.class }

// Session returns the owning session.
func (m *RefMaker) Session() *Session { return m.session }

// recordingActive reports whether a mutation of the given field must be
// captured on the undo stack right now.
func (m *RefMaker) recordingActive(d *FieldDescriptor) bool {
	if d.flags.Has(FlagNoUndo) {
		return false
	}
	return m.session != nil && m.session.stack.IsRecording()
}

// handleReferenceEvent dispatches a notification arriving from a
// referenced target. The concrete object may intercept via
// ReferenceEventHandler; otherwise DefaultReferenceEvent applies.
func (m *RefMaker) handleReferenceEvent(source Target, e Event) bool {
	if h, ok := m.self.(ReferenceEventHandler); ok {
		return h.OnReferenceEvent(source, e)
	}
	return m.DefaultReferenceEvent(source, e)
}

// DefaultReferenceEvent implements the standard reaction to an event
// from a referenced target: a deleted target is detached from all
// fields, and mutation notifications are forwarded to the object's own
// dependents unless every field referencing the source opts out of
// propagation.
func (m *RefMaker) DefaultReferenceEvent(source Target, e Event) bool {
	if e.Type == TargetDeleted {
		m.ClearReferencesTo(source)
		return false
	}
	if !e.ShouldPropagate() {
		return false
	}
	// Propagate only if some field referencing the source permits it.
	// The same target may be referenced through several fields with
	// different flags.
	for _, d := range m.class.PropertyFields() {
		if !d.IsReferenceField() || d.flags.Has(FlagDontPropagateMessages) {
			continue
		}
		if m.fieldReferences(d, source) {
			return true
		}
	}
	return false
}

// fieldReferences reports whether the given reference field currently
// points at target.
func (m *RefMaker) fieldReferences(d *FieldDescriptor, target Target) bool {
	if d.IsVector() {
		vf := d.vectorRef(m.self)
		for _, t := range vf.targets {
			if t == target {
				return true
			}
		}
		return false
	}
	return d.singleRef(m.self).target == target
}

// HasReferenceTo reports whether any reference field of the object
// currently points at target.
func (m *RefMaker) HasReferenceTo(target Target) bool {
	for _, d := range m.class.PropertyFields() {
		if d.IsReferenceField() && m.fieldReferences(d, target) {
			return true
		}
	}
	return false
}

// ClearReferencesTo detaches every reference the object holds to the
// given target. The detachments run through the normal mutation
// protocol, so they are undoable while recording is active.
func (m *RefMaker) ClearReferencesTo(target Target) {
	for _, d := range m.class.PropertyFields() {
		if !d.IsReferenceField() {
			continue
		}
		if d.IsVector() {
			vf := d.vectorRef(m.self)
			for i := len(vf.targets) - 1; i >= 0; i-- {
				if vf.targets[i] == target {
					vf.RemoveAt(m.self, d, i)
				}
			}
		} else if d.singleRef(m.self).target == target {
			// Type and cycle checks cannot fail for nil.
			_ = d.singleRef(m.self).Set(m.self, d, nil)
		}
	}
}

// ClearReferenceField empties one reference field, detaching its target
// or, for a vector field, all of its entries.
func (m *RefMaker) ClearReferenceField(d *FieldDescriptor) {
	if !d.IsReferenceField() {
		panic(fmt.Sprintf("oo: ClearReferenceField called on property field %s", d))
	}
	if d.IsVector() {
		vf := d.vectorRef(m.self)
		for len(vf.targets) > 0 {
			vf.RemoveAt(m.self, d, len(vf.targets)-1)
		}
	} else {
		_ = d.singleRef(m.self).Set(m.self, d, nil)
	}
}

// ClearAllReferences empties every reference field of the object.
func (m *RefMaker) ClearAllReferences() {
	for _, d := range m.class.PropertyFields() {
		if d.IsReferenceField() {
			m.ClearReferenceField(d)
		}
	}
}

// ReplaceReferencesTo redirects every reference the object holds to
// oldTarget so that it points at newTarget instead, preserving vector
// positions. Returns the first error from the mutation protocol, such
// as a type or cycle violation.
func (m *RefMaker) ReplaceReferencesTo(oldTarget, newTarget Target) error {
	for _, d := range m.class.PropertyFields() {
		if !d.IsReferenceField() {
			continue
		}
		if d.IsVector() {
			vf := d.vectorRef(m.self)
			for i := 0; i < len(vf.targets); i++ {
				if vf.targets[i] == oldTarget {
					if err := vf.SetAt(m.self, d, i, newTarget); err != nil {
						return err
					}
				}
			}
		} else if d.singleRef(m.self).target == oldTarget {
			if err := d.singleRef(m.self).Set(m.self, d, newTarget); err != nil {
				return err
			}
		}
	}
	return nil
}

// VisitDependencies invokes fn for every target currently referenced by
// the object, once per occurrence, in field registration order.
func (m *RefMaker) VisitDependencies(fn func(target Target, field *FieldDescriptor)) {
	for _, d := range m.class.PropertyFields() {
		if !d.IsReferenceField() {
			continue
		}
		if d.IsVector() {
			for _, t := range d.vectorRef(m.self).targets {
				if t != nil {
					fn(t, d)
				}
			}
		} else if t := d.singleRef(m.self).target; t != nil {
			fn(t, d)
		}
	}
}

// AllDependencies returns the distinct set of targets the object
// currently references, directly or transitively.
func (m *RefMaker) AllDependencies() []Target {
	seen := make(map[Target]bool)
	var out []Target
	var walk func(obj Object)
	walk = func(obj Object) {
		obj.maker().VisitDependencies(func(t Target, _ *FieldDescriptor) {
			if seen[t] {
				return
			}
			seen[t] = true
			out = append(out, t)
			walk(t)
		})
	}
	walk(m.self)
	return out
}

// PropertyValue returns the current value of the named property field.
func (m *RefMaker) PropertyValue(identifier string) (any, error) {
	d := m.class.FieldDescriptor(identifier)
	if d == nil || d.IsReferenceField() {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoSuchField, m.class, identifier)
	}
	return d.property(m.self).valueAny(), nil
}

// SetPropertyValue assigns a new value to the named property field
// through the normal mutation protocol. The value's dynamic type must
// match the field's storage type.
func (m *RefMaker) SetPropertyValue(identifier string, value any) error {
	d := m.class.FieldDescriptor(identifier)
	if d == nil || d.IsReferenceField() {
		return fmt.Errorf("%w: %s.%s", ErrNoSuchField, m.class, identifier)
	}
	return d.property(m.self).setAny(m.self, d, value)
}

// CopyPropertyValue copies the value of the shared field d from another
// instance of a compatible class into this object.
func (m *RefMaker) CopyPropertyValue(d *FieldDescriptor, from Object) error {
	if d.IsReferenceField() {
		return fmt.Errorf("%w: %s is a reference field", ErrValueType, d)
	}
	return d.property(m.self).copyFrom(m.self, d, d.property(from))
}

// LoadUserDefaults overwrites memorized property fields of the object,
// and recursively of all referenced sub-objects, with the user-defined
// defaults persisted in the session's defaults store. Objects without a
// store keep their programmatic defaults.
func (m *RefMaker) LoadUserDefaults() error {
	store := m.session.Defaults()
	if store == nil {
		return nil
	}
	seen := make(map[Object]bool)
	var walk func(obj Object) error
	walk = func(obj Object) error {
		if seen[obj] {
			return nil
		}
		seen[obj] = true
		for _, d := range obj.OOClass().PropertyFields() {
			if !d.IsReferenceField() && d.flags.Has(FlagMemorize) {
				if _, err := d.LoadDefaultValue(obj, store); err != nil {
					return err
				}
			}
		}
		var firstErr error
		obj.maker().VisitDependencies(func(t Target, _ *FieldDescriptor) {
			if firstErr == nil {
				firstErr = walk(t)
			}
		})
		return firstErr
	}
	return walk(m.self)
}
