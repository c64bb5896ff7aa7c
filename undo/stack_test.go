// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package undo

import (
	"errors"
	"strings"
	"testing"
)

// setValueOp assigns a value to a shared cell and restores the previous
// value on undo.
type setValueOp struct {
	cell     *int
	value    int
	inactive int
	name     string
}

func newSetValueOp(cell *int, value int, name string) *setValueOp {
	return &setValueOp{cell: cell, value: value, inactive: *cell, name: name}
}

func (o *setValueOp) apply() {
	o.inactive, *o.cell = *o.cell, o.value
}

func (o *setValueOp) Undo() error {
	*o.cell, o.inactive = o.inactive, *o.cell
	return nil
}

func (o *setValueOp) Redo() error { return o.Undo() }

func (o *setValueOp) DisplayName() string { return o.name }

// pushApplied applies the op and records it, mimicking the capture-then-
// push order of the mutation protocol.
func pushApplied(s *Stack, o *setValueOp) {
	o.apply()
	s.Push(o)
}

// failingOp always errors during replay.
type failingOp struct{ err error }

func (o failingOp) Undo() error         { return o.err }
func (o failingOp) Redo() error         { return o.err }
func (o failingOp) DisplayName() string { return "failing operation" }

func TestStack_InitialState(t *testing.T) {
	s := NewStack(nil)

	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	if s.Index() != -1 {
		t.Errorf("Index() = %d, want -1", s.Index())
	}
	if s.CanUndo() {
		t.Error("CanUndo() = true on empty stack")
	}
	if s.CanRedo() {
		t.Error("CanRedo() = true on empty stack")
	}
	if !s.IsClean() {
		t.Error("empty stack should be clean")
	}
	if s.IsRecording() {
		t.Error("IsRecording() = true without an open compound")
	}
}

func TestStack_PushSingle(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	pushApplied(s, newSetValueOp(&cell, 1, "set to 1"))

	if s.Count() != 1 || s.Index() != 0 {
		t.Errorf("Count()=%d Index()=%d, want 1 and 0", s.Count(), s.Index())
	}
	if !s.CanUndo() || s.CanRedo() {
		t.Errorf("CanUndo()=%v CanRedo()=%v, want true false", s.CanUndo(), s.CanRedo())
	}
	if cell != 1 {
		t.Errorf("cell = %d, want 1", cell)
	}
}

func TestStack_UndoRedoRoundTrip(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	pushApplied(s, newSetValueOp(&cell, 1, "set to 1"))

	s.Undo()
	if s.Index() != -1 || s.CanUndo() || !s.CanRedo() {
		t.Errorf("after Undo: Index()=%d CanUndo()=%v CanRedo()=%v", s.Index(), s.CanUndo(), s.CanRedo())
	}
	if cell != 0 {
		t.Errorf("cell = %d after undo, want 0", cell)
	}

	s.Redo()
	if s.Index() != 0 || !s.CanUndo() || s.CanRedo() {
		t.Errorf("after Redo: Index()=%d CanUndo()=%v CanRedo()=%v", s.Index(), s.CanUndo(), s.CanRedo())
	}
	if cell != 1 {
		t.Errorf("cell = %d after redo, want 1", cell)
	}
}

func TestStack_IndexGrowsByOnePerPush(t *testing.T) {
	s := NewStack(nil)
	s.SetUndoLimit(-1)
	cell := 0

	for i := 1; i <= 5; i++ {
		pushApplied(s, newSetValueOp(&cell, i, "set"))
		if s.Index() != i-1 {
			t.Fatalf("after push %d: Index() = %d, want %d", i, s.Index(), i-1)
		}
		if s.Count() != s.Index()+1 {
			t.Fatalf("after push %d: Count() = %d, want Index()+1 = %d", i, s.Count(), s.Index()+1)
		}
	}
}

func TestStack_RedoTruncationOnPush(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	pushApplied(s, newSetValueOp(&cell, 2, "B"))

	if s.Count() != 2 || s.Index() != 1 {
		t.Fatalf("Count()=%d Index()=%d, want 2 and 1", s.Count(), s.Index())
	}

	s.Undo()
	s.Undo()
	if s.Index() != -1 {
		t.Fatalf("Index() = %d after two undos, want -1", s.Index())
	}

	pushApplied(s, newSetValueOp(&cell, 3, "C"))

	if s.Count() != 1 || s.Index() != 0 {
		t.Errorf("Count()=%d Index()=%d after truncating push, want 1 and 0", s.Count(), s.Index())
	}
	if s.UndoText() != "C" {
		t.Errorf("UndoText() = %q, want %q", s.UndoText(), "C")
	}
	if cell != 3 {
		t.Errorf("cell = %d, want 3", cell)
	}
}

func TestStack_TruncationInvalidatesCleanIndex(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	pushApplied(s, newSetValueOp(&cell, 2, "B"))
	s.SetClean()

	s.Undo()
	if s.IsClean() {
		t.Fatal("stack clean after undoing past the clean point")
	}

	// B is discarded, taking the clean point with it.
	pushApplied(s, newSetValueOp(&cell, 3, "C"))

	s.Undo()
	if s.IsClean() {
		t.Error("clean state reachable after the clean entry was truncated")
	}
	s.Redo()
	if s.IsClean() {
		t.Error("clean state reachable after the clean entry was truncated")
	}
}

func TestStack_UndoLimitTrimsOldest(t *testing.T) {
	s := NewStack(nil)
	s.SetUndoLimit(2)
	cell := 0

	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	pushApplied(s, newSetValueOp(&cell, 2, "B"))
	pushApplied(s, newSetValueOp(&cell, 3, "C"))

	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	if s.Index() != 1 {
		t.Errorf("Index() = %d, want 1", s.Index())
	}
	if s.UndoText() != "C" {
		t.Errorf("UndoText() = %q, want %q", s.UndoText(), "C")
	}

	// Only B and C survive; undoing both ends at the trimmed floor.
	s.Undo()
	s.Undo()
	if s.Index() != -1 || cell != 1 {
		t.Errorf("Index()=%d cell=%d after exhausting history, want -1 and 1", s.Index(), cell)
	}
}

func TestStack_UndoLimitAdjustsCleanIndex(t *testing.T) {
	s := NewStack(nil)
	s.SetUndoLimit(-1)
	cell := 0

	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	pushApplied(s, newSetValueOp(&cell, 2, "B"))
	s.SetClean()
	pushApplied(s, newSetValueOp(&cell, 3, "C"))

	s.SetUndoLimit(2)

	if s.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", s.Count())
	}
	s.Undo()
	if !s.IsClean() {
		t.Error("clean point not tracked across trim")
	}
}

func TestStack_SuspendBlocksRecordingNotMutation(t *testing.T) {
	s := NewStack(nil)
	cell := 0

	resume := SuspendRecording(s)
	if !s.IsSuspended() {
		t.Fatal("IsSuspended() = false after SuspendRecording")
	}
	if s.IsRecording() {
		t.Fatal("IsRecording() = true while suspended")
	}
	// The mutation itself still happens; it just is not recorded.
	op := newSetValueOp(&cell, 7, "suspended set")
	op.apply()
	resume.Done()
	resume.Done() // idempotent

	if s.IsSuspended() {
		t.Error("IsSuspended() = true after Done")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	if cell != 7 {
		t.Errorf("cell = %d, want 7", cell)
	}
}

func TestStack_ResumeUnderflowPanics(t *testing.T) {
	s := NewStack(nil)
	defer func() {
		if recover() == nil {
			t.Error("Resume without Suspend did not panic")
		}
	}()
	s.Resume()
}

func TestStack_PushDuringReplayPanics(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	pushApplied(s, newSetValueOp(&cell, 1, "A"))

	var recovered any
	s.AddIndexChangedListener(func(int) {
		// Listeners run after replay completes, so Push must be legal
		// again here. The panic is provoked inside the replay instead.
	})
	trap := &replayTrap{stack: s}
	s.Push(trap)
	func() {
		defer func() { recovered = recover() }()
		s.Undo()
	}()
	if recovered == nil {
		t.Error("Push during undo replay did not panic")
	}
}

// replayTrap pushes onto its own stack from inside Undo.
type replayTrap struct{ stack *Stack }

func (o *replayTrap) Undo() error {
	o.stack.Push(o)
	return nil
}
func (o *replayTrap) Redo() error         { return nil }
func (o *replayTrap) DisplayName() string { return "replay trap" }

func TestStack_ReplayErrorReportedNotPropagated(t *testing.T) {
	s := NewStack(nil)
	var reported []error
	s.SetErrorReporter(func(err error) { reported = append(reported, err) })

	sentinel := errors.New("boom")
	s.Push(failingOp{err: sentinel})

	s.Undo()

	if len(reported) != 1 {
		t.Fatalf("reported %d errors, want 1", len(reported))
	}
	if !errors.Is(reported[0], ErrReplayFailed) || !errors.Is(reported[0], sentinel) {
		t.Errorf("reported error %v does not wrap ErrReplayFailed and the cause", reported[0])
	}
	// Bookkeeping completed: the failed operation still counts as undone.
	if s.Index() != -1 {
		t.Errorf("Index() = %d after failed undo, want -1", s.Index())
	}
	if !s.CanRedo() {
		t.Error("CanRedo() = false after failed undo")
	}
}

func TestStack_CleanTracking(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	var transitions []bool
	s.AddCleanChangedListener(func(clean bool) { transitions = append(transitions, clean) })

	pushApplied(s, newSetValueOp(&cell, 1, "A")) // clean -> dirty
	s.SetClean()                                 // dirty -> clean
	s.SetClean()                                 // no transition
	pushApplied(s, newSetValueOp(&cell, 2, "B")) // clean -> dirty
	s.Undo()                                     // back at clean point
	s.SetDirty()                                 // clean -> dirty

	want := []bool{false, true, false, true, false}
	if len(transitions) != len(want) {
		t.Fatalf("got %d clean transitions %v, want %d", len(transitions), transitions, len(want))
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestStack_SignalsFireOnTransitionsOnly(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	var canUndoEvents []bool
	var undoTexts []string
	var indexes []int
	s.AddCanUndoChangedListener(func(v bool) { canUndoEvents = append(canUndoEvents, v) })
	s.AddUndoTextChangedListener(func(v string) { undoTexts = append(undoTexts, v) })
	s.AddIndexChangedListener(func(v int) { indexes = append(indexes, v) })

	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	pushApplied(s, newSetValueOp(&cell, 2, "B"))

	if len(canUndoEvents) != 1 || canUndoEvents[0] != true {
		t.Errorf("canUndo events = %v, want [true]", canUndoEvents)
	}
	if len(undoTexts) != 2 || undoTexts[0] != "A" || undoTexts[1] != "B" {
		t.Errorf("undoText events = %v, want [A B]", undoTexts)
	}
	if len(indexes) != 2 || indexes[0] != 0 || indexes[1] != 1 {
		t.Errorf("index events = %v, want [0 1]", indexes)
	}
}

func TestStack_Clear(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	pushApplied(s, newSetValueOp(&cell, 1, "A"))
	s.BeginCompoundOperation("open")

	s.Clear()

	if s.Count() != 0 || s.Index() != -1 {
		t.Errorf("Count()=%d Index()=%d after Clear, want 0 and -1", s.Count(), s.Index())
	}
	if !s.IsClean() {
		t.Error("cleared stack should be clean")
	}
	if s.IsRecording() {
		t.Error("IsRecording() = true after Clear dropped open compounds")
	}
}

func TestStack_DebugDump(t *testing.T) {
	s := NewStack(nil)
	cell := 0
	s.BeginCompoundOperation("Move objects")
	pushApplied(s, newSetValueOp(&cell, 1, "set x"))
	pushApplied(s, newSetValueOp(&cell, 2, "set y"))
	s.EndCompoundOperation(true)

	var b strings.Builder
	s.DebugDump(&b)
	out := b.String()

	for _, want := range []string{"Move objects", "set x", "set y", "index=0"} {
		if !strings.Contains(out, want) {
			t.Errorf("DebugDump output missing %q:\n%s", want, out)
		}
	}
}
