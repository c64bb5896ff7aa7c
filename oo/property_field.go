// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// propertyStorage is the type-erased access path to a property field,
// used by the generic RefMaker operations and the defaults store.
type propertyStorage interface {
	valueAny() any
	setAny(owner Object, d *FieldDescriptor, v any) error
	copyFrom(owner Object, d *FieldDescriptor, src propertyStorage) error
	encodeBytes() ([]byte, error)
	setFromBytes(owner Object, d *FieldDescriptor, data []byte) error
}

// PropertyField holds the value of a described non-reference field.
// Embed one per registered property field and route all writes through
// Set so that undo recording and change notification stay consistent.
type PropertyField[T comparable] struct {
	value T
}

// Value returns the current field value.
func (f *PropertyField[T]) Value() T { return f.value }

// Set assigns a new value through the full mutation protocol: assigning
// the current value again is a complete no-op, otherwise the change is
// captured on the undo stack while recording is active, the value is
// swapped in, and change notifications fire.
func (f *PropertyField[T]) Set(owner Object, d *FieldDescriptor, v T) {
	m := owner.maker()
	if m.session != nil {
		m.session.assertOwner("property field write")
	}
	if f.value == v {
		return
	}
	if m.recordingActive(d) {
		op := &setPropertyOperation[T]{owner: owner, d: d, field: f, value: v}
		op.swap()
		m.session.stack.Push(op)
	} else {
		f.value = v
	}
	notifyPropertyChanged(owner, d)
}

// notifyPropertyChanged runs the owner's change hook and emits the
// configured events, in that order.
func notifyPropertyChanged(owner Object, d *FieldDescriptor) {
	if h, ok := owner.(PropertyChangedHandler); ok {
		h.OnPropertyChanged(d)
	}
	t, ok := owner.(Target)
	if !ok {
		return
	}
	if d.ShouldGenerateChangeEvent() {
		t.target().NotifyTargetChanged(d)
	}
	if d.extraChangeEvent != 0 {
		t.target().NotifyDependents(d.extraChangeEvent)
	}
}

// setPropertyOperation is the undo record of one property assignment.
// It stores the displaced value and swaps on every replay, making it
// its own inverse.
type setPropertyOperation[T comparable] struct {
	owner Object
	d     *FieldDescriptor
	field *PropertyField[T]
	value T
}

func (op *setPropertyOperation[T]) swap() {
	op.value, op.field.value = op.field.value, op.value
}

func (op *setPropertyOperation[T]) Undo() error {
	op.swap()
	notifyPropertyChanged(op.owner, op.d)
	return nil
}

func (op *setPropertyOperation[T]) Redo() error { return op.Undo() }

func (op *setPropertyOperation[T]) DisplayName() string {
	return "Change " + op.d.DisplayName()
}

func (f *PropertyField[T]) valueAny() any { return f.value }

func (f *PropertyField[T]) setAny(owner Object, d *FieldDescriptor, v any) error {
	tv, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: field %s holds %T, got %T", ErrValueType, d, f.value, v)
	}
	f.Set(owner, d, tv)
	return nil
}

func (f *PropertyField[T]) copyFrom(owner Object, d *FieldDescriptor, src propertyStorage) error {
	return f.setAny(owner, d, src.valueAny())
}

func (f *PropertyField[T]) encodeBytes() ([]byte, error) {
	return msgpack.Marshal(f.value)
}

func (f *PropertyField[T]) setFromBytes(owner Object, d *FieldDescriptor, data []byte) error {
	var v T
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Set(owner, d, v)
	return nil
}
