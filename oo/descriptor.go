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

// fieldKind discriminates the three descriptor categories.
type fieldKind int

const (
	kindProperty fieldKind = iota
	kindReference
	kindVectorReference
)

// DefaultsStore persists user-defined default values of memorized fields
// across sessions. Implemented by the settings package; defined here so
// the object model does not depend on a concrete storage backend.
type DefaultsStore interface {
	// PutDefault stores an encoded value under a stable key.
	PutDefault(key string, value []byte) error

	// GetDefault retrieves an encoded value; the second result is false
	// when no value has been memorized for the key.
	GetDefault(key string) ([]byte, bool, error)
}

// FieldDescriptor is the static, per-class metadata record of one
// described member field: identity, kind, behavior flags, and the typed
// accessor installed at registration time.
//
// Descriptors are created once during class registration and never
// mutated afterwards; all generic infrastructure (undo, serialization,
// GUI binding, scripting) operates on objects exclusively through them.
type FieldDescriptor struct {
	identifier    string
	definingClass *Class
	targetClass   *Class
	kind          fieldKind
	flags         Flags

	label            string
	unitLabel        string
	minValue         float64
	maxValue         float64
	hasRange         bool
	extraChangeEvent EventType

	// Exactly one accessor is set, matching kind.
	property  func(Object) propertyStorage
	singleRef func(Object) *ReferenceField
	vectorRef func(Object) *VectorReferenceField
}

// FieldOption customizes a descriptor at registration time.
type FieldOption func(*FieldDescriptor)

// WithLabel sets the human-readable display name of the field.
func WithLabel(label string) FieldOption {
	return func(d *FieldDescriptor) { d.label = label }
}

// WithUnits attaches numeric-parameter metadata: a unit label and the
// valid value range.
func WithUnits(unit string, minValue, maxValue float64) FieldOption {
	return func(d *FieldDescriptor) {
		d.unitLabel = unit
		d.minValue = minValue
		d.maxValue = maxValue
		d.hasRange = true
	}
}

// WithChangeEvent requests an additional notification of the given type
// whenever the field changes, on top of the generic TargetChanged event.
func WithChangeEvent(t EventType) FieldOption {
	return func(d *FieldDescriptor) { d.extraChangeEvent = t }
}

// RegisterPropertyField creates the descriptor for a non-reference
// property field of type T.
//
// # Description
//
// storage resolves the field's typed storage inside a concrete instance;
// it is the only bridge between the generic descriptor and the Go struct
// member. Registration happens once per field during the startup phase;
// a duplicate identifier within the defining class panics.
//
// # Inputs
//
//   - cls: Defining class.
//   - identifier: Field identifier, unique within the defining class.
//   - flags: Behavior bitset.
//   - storage: Accessor from an instance to the field's storage.
//   - opts: Optional label, units, extra change event.
func RegisterPropertyField[T comparable](cls *Class, identifier string, flags Flags, storage func(Object) *PropertyField[T], opts ...FieldOption) *FieldDescriptor {
	d := &FieldDescriptor{
		identifier:    identifier,
		definingClass: cls,
		kind:          kindProperty,
		flags:         flags,
		property:      func(o Object) propertyStorage { return storage(o) },
	}
	for _, opt := range opts {
		opt(d)
	}
	cls.addField(d)
	return d
}

// RegisterReferenceField creates the descriptor for a single-valued
// reference field pointing at instances of targetClass.
func RegisterReferenceField(cls, targetClass *Class, identifier string, flags Flags, storage func(Object) *ReferenceField, opts ...FieldOption) *FieldDescriptor {
	d := &FieldDescriptor{
		identifier:    identifier,
		definingClass: cls,
		targetClass:   targetClass,
		kind:          kindReference,
		flags:         flags,
		singleRef:     storage,
	}
	for _, opt := range opts {
		opt(d)
	}
	cls.addField(d)
	return d
}

// RegisterVectorReferenceField creates the descriptor for an ordered,
// vector-valued reference field. FlagVector is implied.
func RegisterVectorReferenceField(cls, targetClass *Class, identifier string, flags Flags, storage func(Object) *VectorReferenceField, opts ...FieldOption) *FieldDescriptor {
	d := &FieldDescriptor{
		identifier:    identifier,
		definingClass: cls,
		targetClass:   targetClass,
		kind:          kindVectorReference,
		flags:         flags | FlagVector,
		vectorRef:     storage,
	}
	for _, opt := range opts {
		opt(d)
	}
	cls.addField(d)
	return d
}

// Identifier returns the field identifier.
func (d *FieldDescriptor) Identifier() string { return d.identifier }

// DefiningClass returns the class the field was registered on.
func (d *FieldDescriptor) DefiningClass() *Class { return d.definingClass }

// TargetClass returns the declared target class of a reference field,
// or nil for property fields.
func (d *FieldDescriptor) TargetClass() *Class { return d.targetClass }

// Flags returns the behavior bitset.
func (d *FieldDescriptor) Flags() Flags { return d.flags }

// IsReferenceField reports whether the field holds references to other
// tracked objects (single or vector valued).
func (d *FieldDescriptor) IsReferenceField() bool { return d.kind != kindProperty }

// IsVector reports whether the field is a vector reference field.
func (d *FieldDescriptor) IsVector() bool { return d.kind == kindVectorReference }

// IsWeakReference reports whether the edge is non-owning.
func (d *FieldDescriptor) IsWeakReference() bool { return d.flags.Has(FlagWeakRef) }

// AutomaticUndo reports whether mutations of this field are recorded on
// the undo stack.
func (d *FieldDescriptor) AutomaticUndo() bool { return !d.flags.Has(FlagNoUndo) }

// ShouldGenerateChangeEvent reports whether mutations raise the generic
// target-changed notification.
func (d *FieldDescriptor) ShouldGenerateChangeEvent() bool { return !d.flags.Has(FlagNoChangeMessage) }

// ExtraChangeEvent returns the additional event type raised on change,
// or 0 when none was configured.
func (d *FieldDescriptor) ExtraChangeEvent() EventType { return d.extraChangeEvent }

// DisplayName returns the assigned label, falling back to the field
// identifier.
func (d *FieldDescriptor) DisplayName() string {
	if d.label != "" {
		return d.label
	}
	return d.identifier
}

// UnitLabel returns the numeric-parameter unit label, or "".
func (d *FieldDescriptor) UnitLabel() string { return d.unitLabel }

// ValueRange returns the numeric-parameter range; ok is false when no
// range metadata was attached.
func (d *FieldDescriptor) ValueRange() (minValue, maxValue float64, ok bool) {
	return d.minValue, d.maxValue, d.hasRange
}

// String identifies the field for diagnostics.
func (d *FieldDescriptor) String() string {
	return fmt.Sprintf("%s.%s", d.definingClass, d.identifier)
}

// GetReference returns the target of a single-valued reference field in
// obj. Panics for other field kinds.
func (d *FieldDescriptor) GetReference(obj Object) Target {
	if d.kind != kindReference {
		panic(fmt.Sprintf("oo: GetReference called on %s", d))
	}
	return d.singleRef(obj).Get()
}

// SetReference redirects a single-valued reference field of obj through
// the full mutation protocol. Panics for other field kinds.
func (d *FieldDescriptor) SetReference(obj Object, target Target) error {
	if d.kind != kindReference {
		panic(fmt.Sprintf("oo: SetReference called on %s", d))
	}
	return d.singleRef(obj).Set(obj, d, target)
}

// GetReferences returns the entries of a vector reference field in obj.
// Panics for other field kinds.
func (d *FieldDescriptor) GetReferences(obj Object) []Target {
	if d.kind != kindVectorReference {
		panic(fmt.Sprintf("oo: GetReferences called on %s", d))
	}
	return d.vectorRef(obj).Targets()
}

// AppendReference adds an entry to a vector reference field of obj
// through the full mutation protocol. Panics for other field kinds.
func (d *FieldDescriptor) AppendReference(obj Object, target Target) error {
	if d.kind != kindVectorReference {
		panic(fmt.Sprintf("oo: AppendReference called on %s", d))
	}
	return d.vectorRef(obj).Append(obj, d, target)
}

// EncodeValue returns the msgpack encoding of a property field's
// current value in obj. Panics for reference fields.
func (d *FieldDescriptor) EncodeValue(obj Object) ([]byte, error) {
	if d.kind != kindProperty {
		panic(fmt.Sprintf("oo: EncodeValue called on reference field %s", d))
	}
	return d.property(obj).encodeBytes()
}

// DecodeValue assigns a property field of obj from its msgpack
// encoding, through the full mutation protocol. Panics for reference
// fields.
func (d *FieldDescriptor) DecodeValue(obj Object, data []byte) error {
	if d.kind != kindProperty {
		panic(fmt.Sprintf("oo: DecodeValue called on reference field %s", d))
	}
	return d.property(obj).setFromBytes(obj, d, data)
}

// ShouldSaveRecomputableData reports whether the field's contents
// belong in a saved document when the writer elects to drop cached,
// recomputable state.
func (d *FieldDescriptor) ShouldSaveRecomputableData() bool {
	return !d.flags.Has(FlagDontSaveRecomputableData)
}

// settingsKey is the stable key of the field in the defaults store.
func (d *FieldDescriptor) settingsKey() string {
	return d.definingClass.plugin + "/" + d.definingClass.name + "/" + d.identifier
}

// MemorizeDefaultValue persists the field's current value in obj as the
// user-defined default. Only meaningful for property fields carrying
// FlagMemorize; calling it for reference fields is a programming error.
func (d *FieldDescriptor) MemorizeDefaultValue(obj Object, store DefaultsStore) error {
	if d.kind != kindProperty {
		panic(fmt.Sprintf("oo: MemorizeDefaultValue called on reference field %s", d))
	}
	data, err := d.property(obj).encodeBytes()
	if err != nil {
		return fmt.Errorf("memorizing %s: %w", d, err)
	}
	return store.PutDefault(d.settingsKey(), data)
}

// LoadDefaultValue overwrites the field's value in obj with the
// memorized default, if one exists. Returns true when a default was
// found and applied. The assignment runs through the normal mutation
// protocol, so change notifications fire as usual.
func (d *FieldDescriptor) LoadDefaultValue(obj Object, store DefaultsStore) (bool, error) {
	if d.kind != kindProperty {
		panic(fmt.Sprintf("oo: LoadDefaultValue called on reference field %s", d))
	}
	data, ok, err := store.GetDefault(d.settingsKey())
	if err != nil || !ok {
		return false, err
	}
	if err := d.property(obj).setFromBytes(obj, d, data); err != nil {
		return false, fmt.Errorf("loading default for %s: %w", d, err)
	}
	return true, nil
}
