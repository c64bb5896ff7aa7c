// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package objstream saves and restores reference graphs as msgpack
// documents.
//
// The writer walks the graph reachable from a root target and emits
// every object exactly once, identified by its position in the object
// table; reference fields store those positions, so shared sub-objects
// stay shared after a round trip. Property values travel as opaque
// msgpack payloads produced by the field descriptors, which keeps the
// document format independent of the Go types behind the fields.
//
// Documents written by newer builds with additional fields load in
// older builds: unknown classes fail the load, unknown fields are
// skipped.
package objstream

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vizworks/refcore/oo"
)

const formatVersion = 1

var (
	// ErrUnknownClass is returned when a document names a class that is
	// not registered in this build.
	ErrUnknownClass = errors.New("unknown object class")

	// ErrFormatVersion is returned when a document was written by an
	// incompatible format revision.
	ErrFormatVersion = errors.New("unsupported document format version")

	// ErrCorruptDocument is returned when a document's internal
	// references are inconsistent.
	ErrCorruptDocument = errors.New("corrupt document")
)

// field kinds on the wire.
const (
	wireProperty int8 = iota
	wireReference
	wireVectorReference
)

type document struct {
	Version int          `msgpack:"version"`
	Objects []wireObject `msgpack:"objects"`
}

type wireObject struct {
	Plugin string      `msgpack:"plugin"`
	Class  string      `msgpack:"class"`
	Fields []wireField `msgpack:"fields"`
}

type wireField struct {
	Identifier string `msgpack:"id"`
	Kind       int8   `msgpack:"kind"`
	Value      []byte `msgpack:"value,omitempty"`
	Ref        int    `msgpack:"ref,omitempty"`
	Refs       []int  `msgpack:"refs,omitempty"`
}

// WriteOptions control what the writer includes.
type WriteOptions struct {
	// DropRecomputableData omits fields whose contents can be rebuilt
	// after loading. Smaller documents, longer first access.
	DropRecomputableData bool
}

// Write saves the graph reachable from root to w. The root object is
// always the first entry of the document's object table.
func Write(w io.Writer, root oo.Target, opts WriteOptions) error {
	objects, index := collect(root)

	doc := document{Version: formatVersion, Objects: make([]wireObject, 0, len(objects))}
	for _, obj := range objects {
		wo := wireObject{
			Plugin: obj.OOClass().Plugin(),
			Class:  obj.OOClass().Name(),
		}
		for _, d := range obj.OOClass().PropertyFields() {
			if opts.DropRecomputableData && !d.ShouldSaveRecomputableData() {
				continue
			}
			wf := wireField{Identifier: d.Identifier()}
			switch {
			case d.IsVector():
				wf.Kind = wireVectorReference
				for _, t := range d.GetReferences(obj) {
					wf.Refs = append(wf.Refs, index[t])
				}
			case d.IsReferenceField():
				wf.Kind = wireReference
				if t := d.GetReference(obj); t != nil {
					wf.Ref = index[t]
				} else {
					wf.Ref = -1
				}
			default:
				wf.Kind = wireProperty
				data, err := d.EncodeValue(obj)
				if err != nil {
					return fmt.Errorf("encoding %s: %w", d, err)
				}
				wf.Value = data
			}
			wo.Fields = append(wo.Fields, wf)
		}
		doc.Objects = append(doc.Objects, wo)
	}
	return msgpack.NewEncoder(w).Encode(&doc)
}

// collect returns the root and all transitively referenced targets in
// deterministic order, with their table positions.
func collect(root oo.Target) ([]oo.Target, map[oo.Target]int) {
	index := map[oo.Target]int{root: 0}
	objects := []oo.Target{root}
	var walk func(obj oo.Target)
	walk = func(obj oo.Target) {
		for _, d := range obj.OOClass().PropertyFields() {
			if !d.IsReferenceField() {
				continue
			}
			var targets []oo.Target
			if d.IsVector() {
				targets = d.GetReferences(obj)
			} else if t := d.GetReference(obj); t != nil {
				targets = []oo.Target{t}
			}
			for _, t := range targets {
				if _, seen := index[t]; seen {
					continue
				}
				index[t] = len(objects)
				objects = append(objects, t)
				walk(t)
			}
		}
	}
	walk(root)
	return objects, index
}

// Read restores a graph previously saved with Write into the given
// session and returns its root target. Field assignments run outside
// any compound operation, so loading never pollutes the undo history.
func Read(r io.Reader, s *oo.Session) (oo.Target, error) {
	var doc document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrFormatVersion, doc.Version)
	}
	if len(doc.Objects) == 0 {
		return nil, fmt.Errorf("%w: empty object table", ErrCorruptDocument)
	}

	// Instantiate the whole table first so that reference fields can be
	// resolved in a single second pass.
	objects := make([]oo.Target, len(doc.Objects))
	for i, wo := range doc.Objects {
		cls := oo.LookupClass(wo.Plugin, wo.Class)
		if cls == nil {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownClass, wo.Plugin, wo.Class)
		}
		obj := cls.NewInstance(s)
		t, ok := obj.(oo.Target)
		if !ok {
			return nil, fmt.Errorf("%w: class %s is not a reference target", ErrCorruptDocument, cls)
		}
		objects[i] = t
	}

	for i, wo := range doc.Objects {
		obj := objects[i]
		for _, wf := range wo.Fields {
			d := obj.OOClass().FieldDescriptor(wf.Identifier)
			if d == nil {
				// Written by a newer build; skip.
				continue
			}
			if err := applyField(obj, d, wf, objects); err != nil {
				return nil, err
			}
		}
	}
	return objects[0], nil
}

func applyField(obj oo.Target, d *oo.FieldDescriptor, wf wireField, objects []oo.Target) error {
	switch wf.Kind {
	case wireProperty:
		if d.IsReferenceField() {
			return fmt.Errorf("%w: %s changed kind", ErrCorruptDocument, d)
		}
		return d.DecodeValue(obj, wf.Value)
	case wireReference:
		if !d.IsReferenceField() || d.IsVector() {
			return fmt.Errorf("%w: %s changed kind", ErrCorruptDocument, d)
		}
		if wf.Ref == -1 {
			return nil
		}
		t, err := resolve(wf.Ref, objects)
		if err != nil {
			return err
		}
		return d.SetReference(obj, t)
	case wireVectorReference:
		if !d.IsVector() {
			return fmt.Errorf("%w: %s changed kind", ErrCorruptDocument, d)
		}
		for _, ref := range wf.Refs {
			t, err := resolve(ref, objects)
			if err != nil {
				return err
			}
			if err := d.AppendReference(obj, t); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: field kind %d", ErrCorruptDocument, wf.Kind)
	}
}

func resolve(ref int, objects []oo.Target) (oo.Target, error) {
	if ref < 0 || ref >= len(objects) {
		return nil, fmt.Errorf("%w: reference to object %d of %d", ErrCorruptDocument, ref, len(objects))
	}
	return objects[ref], nil
}
