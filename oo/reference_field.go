// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import (
	"fmt"
)

// ReferenceField holds a single tracked reference to another object.
// Embed one per registered reference field and route all writes through
// Set.
type ReferenceField struct {
	target Target
}

// Get returns the currently referenced target, or nil.
func (f *ReferenceField) Get() Target { return f.target }

// Set redirects the field to newTarget (which may be nil) through the
// full mutation protocol. Setting the current target again is a
// complete no-op. Returns ErrIncompatibleTarget when newTarget is not
// an instance of the field's declared target class, or
// ErrCyclicReference when the new edge would close a reference cycle.
func (f *ReferenceField) Set(owner Object, d *FieldDescriptor, newTarget Target) error {
	m := owner.maker()
	if m.session != nil {
		m.session.assertOwner("reference field write")
	}
	if f.target == newTarget {
		return nil
	}
	if err := validateReference(owner, d, newTarget); err != nil {
		return err
	}
	var old Target
	if m.recordingActive(d) {
		op := &setReferenceOperation{owner: owner, d: d, field: f, target: newTarget}
		old = f.swap(owner, newTarget)
		op.target = old
		m.session.stack.Push(op)
	} else {
		old = f.swap(owner, newTarget)
	}
	notifyReferenceReplaced(owner, d, old, newTarget, -1)
	return nil
}

// swap exchanges the stored target and keeps the dependent bookkeeping
// of both ends consistent. Returns the displaced target.
func (f *ReferenceField) swap(owner Object, newTarget Target) (old Target) {
	m := owner.maker()
	old = f.target
	if old != nil {
		old.target().unregisterDependent(m)
	}
	f.target = newTarget
	if newTarget != nil {
		newTarget.target().registerDependent(m)
	}
	return old
}

// VectorReferenceField holds an ordered list of tracked references.
type VectorReferenceField struct {
	targets []Target
}

// Count returns the number of entries.
func (f *VectorReferenceField) Count() int { return len(f.targets) }

// At returns the entry at index. Panics when index is out of range,
// like a slice access.
func (f *VectorReferenceField) At(index int) Target { return f.targets[index] }

// Targets returns a copy of the entry list.
func (f *VectorReferenceField) Targets() []Target {
	out := make([]Target, len(f.targets))
	copy(out, f.targets)
	return out
}

// Index returns the position of the first entry equal to target, or -1.
func (f *VectorReferenceField) Index(target Target) int {
	for i, t := range f.targets {
		if t == target {
			return i
		}
	}
	return -1
}

// Append adds target at the end of the list.
func (f *VectorReferenceField) Append(owner Object, d *FieldDescriptor, target Target) error {
	return f.Insert(owner, d, -1, target)
}

// Insert adds target at the given position; index -1 appends. The entry
// must not be nil.
func (f *VectorReferenceField) Insert(owner Object, d *FieldDescriptor, index int, target Target) error {
	m := owner.maker()
	if m.session != nil {
		m.session.assertOwner("vector reference insert")
	}
	if target == nil {
		return fmt.Errorf("%w: nil entry in vector field %s", ErrIncompatibleTarget, d)
	}
	if index == -1 {
		index = len(f.targets)
	}
	if index < 0 || index > len(f.targets) {
		return fmt.Errorf("%w: insert at %d, length %d in %s", ErrIndexOutOfRange, index, len(f.targets), d)
	}
	if err := validateReference(owner, d, target); err != nil {
		return err
	}
	if m.recordingActive(d) {
		op := &insertReferenceOperation{owner: owner, d: d, field: f, target: target, index: index}
		f.insertRaw(owner, index, target)
		op.inserted = true
		m.session.stack.Push(op)
	} else {
		f.insertRaw(owner, index, target)
	}
	notifyReferenceInserted(owner, d, target, index)
	return nil
}

// RemoveAt deletes the entry at the given position.
func (f *VectorReferenceField) RemoveAt(owner Object, d *FieldDescriptor, index int) error {
	m := owner.maker()
	if m.session != nil {
		m.session.assertOwner("vector reference remove")
	}
	if index < 0 || index >= len(f.targets) {
		return fmt.Errorf("%w: remove at %d, length %d in %s", ErrIndexOutOfRange, index, len(f.targets), d)
	}
	var removed Target
	if m.recordingActive(d) {
		op := &insertReferenceOperation{owner: owner, d: d, field: f, index: index}
		removed = f.removeAtRaw(owner, index)
		op.target = removed
		op.inserted = false
		m.session.stack.Push(op)
	} else {
		removed = f.removeAtRaw(owner, index)
	}
	notifyReferenceRemoved(owner, d, removed, index)
	return nil
}

// SetAt replaces the entry at the given position, keeping its slot.
func (f *VectorReferenceField) SetAt(owner Object, d *FieldDescriptor, index int, target Target) error {
	m := owner.maker()
	if m.session != nil {
		m.session.assertOwner("vector reference replace")
	}
	if index < 0 || index >= len(f.targets) {
		return fmt.Errorf("%w: replace at %d, length %d in %s", ErrIndexOutOfRange, index, len(f.targets), d)
	}
	if target == nil {
		return fmt.Errorf("%w: nil entry in vector field %s", ErrIncompatibleTarget, d)
	}
	if f.targets[index] == target {
		return nil
	}
	if err := validateReference(owner, d, target); err != nil {
		return err
	}
	var old Target
	if m.recordingActive(d) {
		op := &replaceReferenceOperation{owner: owner, d: d, field: f, target: target, index: index}
		old = f.replaceRaw(owner, index, target)
		op.target = old
		m.session.stack.Push(op)
	} else {
		old = f.replaceRaw(owner, index, target)
	}
	notifyReferenceReplaced(owner, d, old, target, index)
	return nil
}

func (f *VectorReferenceField) insertRaw(owner Object, index int, target Target) {
	f.targets = append(f.targets, nil)
	copy(f.targets[index+1:], f.targets[index:])
	f.targets[index] = target
	target.target().registerDependent(owner.maker())
}

func (f *VectorReferenceField) removeAtRaw(owner Object, index int) Target {
	t := f.targets[index]
	f.targets = append(f.targets[:index], f.targets[index+1:]...)
	t.target().unregisterDependent(owner.maker())
	return t
}

func (f *VectorReferenceField) replaceRaw(owner Object, index int, target Target) (old Target) {
	old = f.targets[index]
	old.target().unregisterDependent(owner.maker())
	f.targets[index] = target
	target.target().registerDependent(owner.maker())
	return old
}

// validateReference checks a candidate target against the field's
// declared target class and the acyclicity invariant of the graph.
func validateReference(owner Object, d *FieldDescriptor, target Target) error {
	if target == nil {
		return nil
	}
	m := owner.maker()
	if target.Session() != m.session {
		panic(fmt.Sprintf("oo: target %s belongs to a different session than %s", target.OOClass(), d))
	}
	if d.targetClass != nil && !target.OOClass().IsDerivedFrom(d.targetClass) {
		return fmt.Errorf("%w: field %s expects %s, got %s", ErrIncompatibleTarget, d, d.targetClass, target.OOClass())
	}
	if ot, ok := owner.(Target); ok && ot.target().IsReferencedBy(target) {
		return fmt.Errorf("%w: %s -> %s", ErrCyclicReference, d, target.OOClass())
	}
	return nil
}

func notifyReferenceReplaced(owner Object, d *FieldDescriptor, oldTarget, newTarget Target, index int) {
	if h, ok := owner.(ReferenceReplacedHandler); ok {
		h.OnReferenceReplaced(d, oldTarget, newTarget, index)
	}
	emitReferenceEvent(owner, d, Event{Type: ReferenceChanged, Field: d, OldTarget: oldTarget, NewTarget: newTarget, Index: index})
}

func notifyReferenceInserted(owner Object, d *FieldDescriptor, target Target, index int) {
	if h, ok := owner.(ReferenceInsertedHandler); ok {
		h.OnReferenceInserted(d, target, index)
	}
	emitReferenceEvent(owner, d, Event{Type: ReferenceAdded, Field: d, NewTarget: target, Index: index})
}

func notifyReferenceRemoved(owner Object, d *FieldDescriptor, target Target, index int) {
	if h, ok := owner.(ReferenceRemovedHandler); ok {
		h.OnReferenceRemoved(d, target, index)
	}
	emitReferenceEvent(owner, d, Event{Type: ReferenceRemoved, Field: d, OldTarget: target, Index: index})
}

func emitReferenceEvent(owner Object, d *FieldDescriptor, e Event) {
	t, ok := owner.(Target)
	if !ok {
		return
	}
	if d.ShouldGenerateChangeEvent() {
		e.Sender = t
		t.target().notifyDependentsEvent(e)
	}
	if d.extraChangeEvent != 0 {
		t.target().NotifyDependents(d.extraChangeEvent)
	}
}

// setReferenceOperation is the undo record of one single-reference
// assignment. Like its property counterpart it swaps on every replay.
type setReferenceOperation struct {
	owner  Object
	d      *FieldDescriptor
	field  *ReferenceField
	target Target
}

func (op *setReferenceOperation) Undo() error {
	newTarget := op.target
	op.target = op.field.swap(op.owner, newTarget)
	notifyReferenceReplaced(op.owner, op.d, op.target, newTarget, -1)
	return nil
}

func (op *setReferenceOperation) Redo() error { return op.Undo() }

func (op *setReferenceOperation) DisplayName() string {
	return "Change " + op.d.DisplayName()
}

// insertReferenceOperation records one vector insertion or removal; the
// two are inverses of each other, so a single toggling record covers
// both directions.
type insertReferenceOperation struct {
	owner    Object
	d        *FieldDescriptor
	field    *VectorReferenceField
	target   Target
	index    int
	inserted bool
}

func (op *insertReferenceOperation) Undo() error {
	if op.inserted {
		op.field.removeAtRaw(op.owner, op.index)
		op.inserted = false
		notifyReferenceRemoved(op.owner, op.d, op.target, op.index)
	} else {
		op.field.insertRaw(op.owner, op.index, op.target)
		op.inserted = true
		notifyReferenceInserted(op.owner, op.d, op.target, op.index)
	}
	return nil
}

func (op *insertReferenceOperation) Redo() error { return op.Undo() }

func (op *insertReferenceOperation) DisplayName() string {
	if op.inserted {
		return "Add to " + op.d.DisplayName()
	}
	return "Remove from " + op.d.DisplayName()
}

// replaceReferenceOperation records an in-place vector entry swap.
type replaceReferenceOperation struct {
	owner  Object
	d      *FieldDescriptor
	field  *VectorReferenceField
	target Target
	index  int
}

func (op *replaceReferenceOperation) Undo() error {
	newTarget := op.target
	op.target = op.field.replaceRaw(op.owner, op.index, newTarget)
	notifyReferenceReplaced(op.owner, op.d, op.target, newTarget, op.index)
	return nil
}

func (op *replaceReferenceOperation) Redo() error { return op.Undo() }

func (op *replaceReferenceOperation) DisplayName() string {
	return "Change " + op.d.DisplayName()
}
