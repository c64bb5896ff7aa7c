// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package undo

import (
	"errors"
	"testing"
)

func TestCompound_CommitProducesOneHistoryEntry(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	s.BeginCompoundOperation("Move 3 objects")
	if !s.IsRecording() {
		t.Fatal("IsRecording() = false with an open compound")
	}
	pushApplied(s, newSetValueOp(&cell, 1, "step 1"))
	pushApplied(s, newSetValueOp(&cell, 2, "step 2"))
	pushApplied(s, newSetValueOp(&cell, 3, "step 3"))
	s.EndCompoundOperation(true)

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 (three steps grouped)", s.Count())
	}
	if s.UndoText() != "Move 3 objects" {
		t.Errorf("UndoText() = %q, want compound label", s.UndoText())
	}

	s.Undo()
	if cell != 0 {
		t.Errorf("cell = %d after compound undo, want 0", cell)
	}
	s.Redo()
	if cell != 3 {
		t.Errorf("cell = %d after compound redo, want 3", cell)
	}
}

func TestCompound_UndoOrderIsReversed(t *testing.T) {
	s := NewStack(nil)
	var order []string
	record := func(name string) Operation {
		return &orderedOp{name: name, log: &order}
	}

	s.BeginCompoundOperation("batch")
	s.Push(record("first"))
	s.Push(record("second"))
	s.Push(record("third"))
	s.EndCompoundOperation(true)

	s.Undo()
	want := []string{"undo third", "undo second", "undo first"}
	if len(order) != 3 {
		t.Fatalf("got %d replay events, want 3", len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("replay event %d = %q, want %q", i, order[i], want[i])
		}
	}

	order = nil
	s.Redo()
	want = []string{"redo first", "redo second", "redo third"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("replay event %d = %q, want %q", i, order[i], want[i])
		}
	}
}

type orderedOp struct {
	name string
	log  *[]string
}

func (o *orderedOp) Undo() error {
	*o.log = append(*o.log, "undo "+o.name)
	return nil
}
func (o *orderedOp) Redo() error {
	*o.log = append(*o.log, "redo "+o.name)
	return nil
}
func (o *orderedOp) DisplayName() string { return o.name }

func TestCompound_InsignificantDropped(t *testing.T) {
	s := NewStack(nil)

	s.BeginCompoundOperation("nothing happened")
	s.EndCompoundOperation(true)

	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0 (empty compound dropped)", s.Count())
	}
}

func TestCompound_AbortRollsBack(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	s.BeginCompoundOperation("aborted edit")
	pushApplied(s, newSetValueOp(&cell, 5, "step"))
	pushApplied(s, newSetValueOp(&cell, 9, "step"))
	s.EndCompoundOperation(false)

	if cell != 0 {
		t.Errorf("cell = %d after abort, want 0", cell)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d after abort, want 0", s.Count())
	}
}

func TestCompound_Nesting(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	s.BeginCompoundOperation("outer")
	pushApplied(s, newSetValueOp(&cell, 1, "outer step"))
	s.BeginCompoundOperation("inner")
	pushApplied(s, newSetValueOp(&cell, 2, "inner step"))
	s.EndCompoundOperation(true) // inner lands inside outer
	if s.Count() != 0 {
		t.Fatalf("Count() = %d with outer compound still open, want 0", s.Count())
	}
	s.EndCompoundOperation(true)

	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
	s.Undo()
	if cell != 0 {
		t.Errorf("cell = %d after nested undo, want 0", cell)
	}
	s.Redo()
	if cell != 2 {
		t.Errorf("cell = %d after nested redo, want 2", cell)
	}
}

func TestCompound_CommitWhileSuspendedDropsSilently(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	s.BeginCompoundOperation("suspended commit")
	pushApplied(s, newSetValueOp(&cell, 4, "step"))
	s.Suspend()
	s.EndCompoundOperation(true)
	s.Resume()

	// Mutations stay in effect; only the history record is dropped.
	if cell != 4 {
		t.Errorf("cell = %d, want 4 (mutation kept)", cell)
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0 (record dropped)", s.Count())
	}
}

func TestCompound_ResetCurrent(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	s.BeginCompoundOperation("drag preview")
	pushApplied(s, newSetValueOp(&cell, 10, "drag to 10"))
	pushApplied(s, newSetValueOp(&cell, 20, "drag to 20"))

	s.ResetCurrentCompoundOperation()
	if cell != 0 {
		t.Errorf("cell = %d after reset, want 0", cell)
	}

	// Compound stays open and usable.
	pushApplied(s, newSetValueOp(&cell, 30, "drag to 30"))
	s.EndCompoundOperation(true)

	if s.Count() != 1 || cell != 30 {
		t.Errorf("Count()=%d cell=%d, want 1 and 30", s.Count(), cell)
	}
	s.Undo()
	if cell != 0 {
		t.Errorf("cell = %d after undo, want 0", cell)
	}
}

func TestCompound_ResetReplayErrorReported(t *testing.T) {
	s := NewStack(nil)
	var reported []error
	s.SetErrorReporter(func(err error) { reported = append(reported, err) })

	s.BeginCompoundOperation("bad preview")
	s.Push(failingOp{err: errors.New("stuck")})
	s.ResetCurrentCompoundOperation()
	s.EndCompoundOperation(true)

	if len(reported) != 1 {
		t.Errorf("reported %d errors, want 1", len(reported))
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestCompound_EndWithoutBeginPanics(t *testing.T) {
	s := NewStack(nil)
	defer func() {
		if recover() == nil {
			t.Error("EndCompoundOperation without Begin did not panic")
		}
	}()
	s.EndCompoundOperation(true)
}

func TestCompound_UndoWithOpenCompoundPanics(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	s.BeginCompoundOperation("open")
	defer func() {
		if recover() == nil {
			t.Error("Undo with an open compound did not panic")
		}
	}()
	s.Undo()
}
