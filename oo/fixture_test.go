// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo_test

import (
	"testing"

	"github.com/vizworks/refcore/oo"
	"github.com/vizworks/refcore/undo"
)

// sceneNode is the fixture type used throughout the package tests. It
// carries one field of every descriptor category plus flag variants,
// and records the hook calls and events it observes.
type sceneNode struct {
	oo.RefTarget
	name     oo.PropertyField[string]
	radius   oo.PropertyField[float64]
	cache    oo.PropertyField[int]
	input    oo.ReferenceField
	source   oo.ReferenceField
	children oo.VectorReferenceField

	propertyChanges []*oo.FieldDescriptor
	received        []oo.Event
	onEvent         func(e oo.Event)
}

func (n *sceneNode) OnPropertyChanged(d *oo.FieldDescriptor) {
	n.propertyChanges = append(n.propertyChanges, d)
}

func (n *sceneNode) OnReferenceEvent(source oo.Target, e oo.Event) bool {
	n.received = append(n.received, e)
	if n.onEvent != nil {
		n.onEvent(e)
	}
	return n.DefaultReferenceEvent(source, e)
}

// material is a second, unrelated target class for type-check tests.
type material struct {
	oo.RefTarget
	color oo.PropertyField[string]
}

const radiusChangedEvent = oo.EventTypeUser + 1

var (
	nodeClass = oo.RegisterClass("oo_test", "SceneNode", nil, func(c *oo.Class, s *oo.Session) oo.Object {
		n := &sceneNode{}
		oo.Init(n, c, s)
		return n
	})

	nameField = oo.RegisterPropertyField(nodeClass, "name", 0,
		func(o oo.Object) *oo.PropertyField[string] { return &o.(*sceneNode).name },
		oo.WithLabel("Name"))

	radiusField = oo.RegisterPropertyField(nodeClass, "radius", oo.FlagMemorize,
		func(o oo.Object) *oo.PropertyField[float64] { return &o.(*sceneNode).radius },
		oo.WithLabel("Radius"), oo.WithUnits("nm", 0, 1000), oo.WithChangeEvent(radiusChangedEvent))

	cacheField = oo.RegisterPropertyField(nodeClass, "cache", oo.FlagNoUndo|oo.FlagNoChangeMessage,
		func(o oo.Object) *oo.PropertyField[int] { return &o.(*sceneNode).cache })

	inputField = oo.RegisterReferenceField(nodeClass, nodeClass, "input", 0,
		func(o oo.Object) *oo.ReferenceField { return &o.(*sceneNode).input },
		oo.WithLabel("Input"))

	sourceField = oo.RegisterReferenceField(nodeClass, nodeClass, "source",
		oo.FlagWeakRef|oo.FlagNoUndo|oo.FlagDontPropagateMessages,
		func(o oo.Object) *oo.ReferenceField { return &o.(*sceneNode).source })

	childrenField = oo.RegisterVectorReferenceField(nodeClass, nodeClass, "children", 0,
		func(o oo.Object) *oo.VectorReferenceField { return &o.(*sceneNode).children })

	materialClass = oo.RegisterClass("oo_test", "Material", nil, func(c *oo.Class, s *oo.Session) oo.Object {
		m := &material{}
		oo.Init(m, c, s)
		return m
	})

	colorField = oo.RegisterPropertyField(materialClass, "color", 0,
		func(o oo.Object) *oo.PropertyField[string] { return &o.(*material).color })
)

func newNode(s *oo.Session) *sceneNode {
	return nodeClass.NewInstance(s).(*sceneNode)
}

// record runs fn inside a committed compound operation so that field
// mutations are captured on the session's undo stack.
func record(t *testing.T, s *oo.Session, label string, fn func()) {
	t.Helper()
	if err := undo.Do(s.UndoStack(), label, func() error {
		fn()
		return nil
	}); err != nil {
		t.Fatalf("recording %q: %v", label, err)
	}
}

// mustSet fails the test when a reference assignment reports an error.
func mustSet(t *testing.T, owner oo.Object, f *oo.ReferenceField, d *oo.FieldDescriptor, target oo.Target) {
	t.Helper()
	if err := f.Set(owner, d, target); err != nil {
		t.Fatalf("setting %s: %v", d, err)
	}
}

// memStore is an in-memory DefaultsStore for memorize/load tests.
type memStore struct {
	values map[string][]byte
}

func newMemStore() *memStore { return &memStore{values: map[string][]byte{}} }

func (m *memStore) PutDefault(key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memStore) GetDefault(key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}
