// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import (
	"fmt"
	"sync"
)

// Factory instantiates an object of a class within a session. The
// class is passed in so that the closure registered at package init
// time does not have to reference its own class variable, which would
// form an initialization cycle. The returned object must already be
// initialized via Init.
type Factory func(*Class, *Session) Object

// Class is the run-time metadata record of one tracked-object type: its
// identity, its place in the class hierarchy, and the chain of field
// descriptors registered against it.
//
// A Class is created once per type through RegisterClass, before any
// instance of the type exists, and is immutable afterwards except for
// field registration, which also belongs to the startup phase.
type Class struct {
	plugin string
	name   string
	super  *Class

	factory Factory

	mu        sync.Mutex
	fields    []*FieldDescriptor
	fieldByID map[string]*FieldDescriptor
}

// Process-wide class registry.
var (
	classRegistryMu sync.RWMutex
	classRegistry   = make(map[string]*Class)
)

// RegisterClass creates and registers the metadata record for a
// tracked-object type.
//
// # Description
//
// Must run during the startup/registration phase, before any instance of
// the class is created; package init functions are the usual place.
// Registering two classes under the same plugin-qualified name is a
// programming error and panics.
//
// # Inputs
//
//   - plugin: Namespace of the defining module (e.g. "core").
//   - name: Class name, unique within the plugin.
//   - super: Base class, or nil for a root class.
//   - factory: Constructor used by generic infrastructure (deserialization,
//     scripting). May be nil for abstract classes.
func RegisterClass(plugin, name string, super *Class, factory Factory) *Class {
	c := &Class{
		plugin:    plugin,
		name:      name,
		super:     super,
		factory:   factory,
		fieldByID: make(map[string]*FieldDescriptor),
	}
	key := plugin + "." + name
	classRegistryMu.Lock()
	defer classRegistryMu.Unlock()
	if _, exists := classRegistry[key]; exists {
		panic(fmt.Sprintf("oo: class %q registered twice", key))
	}
	classRegistry[key] = c
	return c
}

// LookupClass resolves a plugin-qualified class name, returning nil when
// the class is unknown.
func LookupClass(plugin, name string) *Class {
	classRegistryMu.RLock()
	defer classRegistryMu.RUnlock()
	return classRegistry[plugin+"."+name]
}

// Plugin returns the namespace of the defining module.
func (c *Class) Plugin() string { return c.plugin }

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Super returns the base class, or nil.
func (c *Class) Super() *Class { return c.super }

// String returns the plugin-qualified class name.
func (c *Class) String() string { return c.plugin + "." + c.name }

// IsDerivedFrom reports whether c equals other or inherits from it.
func (c *Class) IsDerivedFrom(other *Class) bool {
	for cur := c; cur != nil; cur = cur.super {
		if cur == other {
			return true
		}
	}
	return false
}

// NewInstance creates an object of this class in the given session.
// Panics for abstract classes (nil factory).
func (c *Class) NewInstance(session *Session) Object {
	if c.factory == nil {
		panic(fmt.Sprintf("oo: class %s is abstract and cannot be instantiated", c))
	}
	return c.factory(c, session)
}

// FieldDescriptor looks up a field by identifier, searching the class
// and its base classes. Returns nil when the identifier is unknown.
func (c *Class) FieldDescriptor(identifier string) *FieldDescriptor {
	for cur := c; cur != nil; cur = cur.super {
		cur.mu.Lock()
		d := cur.fieldByID[identifier]
		cur.mu.Unlock()
		if d != nil {
			return d
		}
	}
	return nil
}

// PropertyFields returns every field descriptor visible on the class,
// base-class fields first, in registration order.
func (c *Class) PropertyFields() []*FieldDescriptor {
	if c.super == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return append([]*FieldDescriptor(nil), c.fields...)
	}
	out := c.super.PropertyFields()
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(out, c.fields...)
}

// addField links a descriptor into the class. Duplicate identifiers
// within one defining class are a programming error.
func (c *Class) addField(d *FieldDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.fieldByID[d.identifier]; exists {
		panic(fmt.Sprintf("oo: field %q registered twice for class %s", d.identifier, c))
	}
	c.fieldByID[d.identifier] = d
	c.fields = append(c.fields, d)
}
