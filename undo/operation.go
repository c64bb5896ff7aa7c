// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package undo

import (
	"fmt"
	"io"
)

// Operation is a reversible, replayable record of one mutation or group
// of mutations.
//
// Every atomic edit made to a tracked object is captured as an Operation
// and registered with the Stack via Push. Operation kinds are open-ended:
// the object model defines operations for property and reference-field
// changes, and application modules are free to add their own.
type Operation interface {
	// Undo reverses the mutation encapsulated by this record. It is
	// called by the Stack while replaying history backwards.
	Undo() error

	// Redo re-applies the mutation, assuming it has been undone before.
	Redo() error

	// DisplayName returns a human-readable description of the operation,
	// shown in the application's edit menu.
	DisplayName() string
}

// CompoundOperation combines multiple operations into one atomic history
// entry.
//
// A compound undoes its sub-operations in reverse insertion order and
// redoes them in forward order. Sub-operations may themselves be
// compounds; undo and redo recurse through the shared Operation contract.
//
// Compounds are normally created implicitly by Stack.BeginCompoundOperation
// and populated by nested Push calls while open.
type CompoundOperation struct {
	displayName string
	subOps      []Operation
}

// NewCompoundOperation creates an empty compound with the given display
// name.
func NewCompoundOperation(displayName string) *CompoundOperation {
	return &CompoundOperation{displayName: displayName}
}

// DisplayName returns the compound's label.
func (c *CompoundOperation) DisplayName() string { return c.displayName }

// SetDisplayName changes the compound's label. Valid at any time, even
// after the compound has been committed to the history.
func (c *CompoundOperation) SetDisplayName(name string) { c.displayName = name }

// AddOperation appends a sub-operation. Only valid while the compound is
// still being built (on top of the stack's compound stack).
func (c *CompoundOperation) AddOperation(op Operation) { c.subOps = append(c.subOps, op) }

// IsSignificant reports whether the compound contains at least one
// sub-operation. Insignificant compounds are dropped instead of being
// pushed to the history.
func (c *CompoundOperation) IsSignificant() bool { return len(c.subOps) > 0 }

// OperationCount returns the number of direct sub-operations.
func (c *CompoundOperation) OperationCount() int { return len(c.subOps) }

// Undo reverses all sub-operations in reverse insertion order
// (last-applied-undone-first). It stops at the first failing
// sub-operation and returns its error.
func (c *CompoundOperation) Undo() error {
	for i := len(c.subOps) - 1; i >= 0; i-- {
		if err := c.subOps[i].Undo(); err != nil {
			return fmt.Errorf("sub-operation %d (%s): %w", i, c.subOps[i].DisplayName(), err)
		}
	}
	return nil
}

// Redo re-applies all sub-operations in forward insertion order.
func (c *CompoundOperation) Redo() error {
	for i, op := range c.subOps {
		if err := op.Redo(); err != nil {
			return fmt.Errorf("sub-operation %d (%s): %w", i, op.DisplayName(), err)
		}
	}
	return nil
}

// clearOps drops all sub-operations without undoing them.
func (c *CompoundOperation) clearOps() { c.subOps = nil }

// debugPrint writes an indented description of the compound and its
// sub-operations. Diagnostics only.
func (c *CompoundOperation) debugPrint(w io.Writer, level int) {
	for i, op := range c.subOps {
		fmt.Fprintf(w, "%*s%d: %s\n", level*2, "", i, op.DisplayName())
		if sub, ok := op.(*CompoundOperation); ok {
			sub.debugPrint(w, level+1)
		}
	}
}
