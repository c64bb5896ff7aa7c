// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package oo implements the reference-graph object model: introspectable
// property fields, owning and weak reference fields, change notification,
// and automatic undo recording.
//
// Every mutable object in an application participates in a directed
// reference graph. An object's class describes its fields through
// FieldDescriptor metadata registered once at startup; every mutation of
// a described field runs through a uniform choke point that captures an
// undo record, swaps the value, and raises change notifications that
// propagate along reference edges to dependents.
//
// # Object Model
//
// Concrete types embed RefTarget (or RefMaker, for pure observers that
// cannot themselves be referenced) and register a Class with one
// FieldDescriptor per described field:
//
//	type SceneNode struct {
//		oo.RefTarget
//		name     oo.PropertyField[string]
//		children oo.VectorReferenceField
//	}
//
//	var SceneNodeClass = oo.RegisterClass("core", "SceneNode", nil,
//		func(c *oo.Class, s *oo.Session) oo.Object { n := &SceneNode{}; oo.Init(n, c, s); return n })
//
//	var nameField = oo.RegisterPropertyField(SceneNodeClass, "name", oo.FlagMemorize,
//		func(o oo.Object) *oo.PropertyField[string] { return &o.(*SceneNode).name })
//
// # Ownership Model
//
// An owning reference keeps its target alive for the garbage collector
// and marks the edge as a lifetime dependency for cloning and
// serialization. A weak reference never extends the target's lifetime:
// when the target announces its deletion, every field referencing it,
// weak fields included, is cleared.
//
// # Thread Safety
//
// NOT safe for concurrent use. All mutation is bound to the owning
// goroutine of the object's Session; violating the affinity is a
// programming error and panics. Class and field registration is the only
// concurrency-safe surface (guarded for use from package init functions
// and explicit startup phases).
package oo

import "errors"

// Sentinel errors for object-model operations.
var (
	// ErrCyclicReference is returned when assigning a reference would
	// close a cycle in the reference graph.
	ErrCyclicReference = errors.New("cyclic reference")

	// ErrIncompatibleTarget is returned when the assigned target's class
	// is not derived from the reference field's declared target class.
	ErrIncompatibleTarget = errors.New("incompatible target class")

	// ErrIndexOutOfRange is returned by vector reference field
	// operations addressing a slot that does not exist.
	ErrIndexOutOfRange = errors.New("vector reference index out of range")

	// ErrValueType is returned when a generic property access supplies a
	// value of the wrong dynamic type for the field.
	ErrValueType = errors.New("property value has wrong type")

	// ErrNoSuchField is returned when a field identifier cannot be
	// resolved against a class's descriptor chain.
	ErrNoSuchField = errors.New("no such field")
)
