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
	"log/slog"
	"time"
)

// DefaultUndoLimit is the number of top-level history entries retained
// unless SetUndoLimit is called. A negative limit means unlimited.
const DefaultUndoLimit = 20

// cleanIndexInvalid marks a stack as definitely dirty: the clean state
// was trimmed or truncated away and no amount of undo/redo can reach it.
const cleanIndexInvalid = -2

// ErrorReporter receives non-fatal replay errors so they can be surfaced
// to the user. The default reporter only logs.
type ErrorReporter func(err error)

// Stack maintains the linear undo/redo history of one editing session.
//
// The operation at Index is the most recently applied one (the next to be
// undone); Index == -1 means nothing has been applied. Pushing a new
// operation while Index < Count()-1 discards the redo tail.
//
// Zero value is not usable; create instances with NewStack.
type Stack struct {
	operations []Operation

	// Current position in the history. New entries are inserted here.
	index int

	// History position considered saved. cleanIndexInvalid if the clean
	// state can no longer be reached.
	cleanIndex int

	// Stack of open compound operations being built. Only the outermost
	// compound reaches the main history.
	compoundStack []*CompoundOperation

	// Suspend / Resume reference count. Recording requires zero.
	suspendCount int

	// Maximum number of top-level entries. Negative = unlimited.
	undoLimit int

	isUndoing bool
	isRedoing bool

	logger   *slog.Logger
	reporter ErrorReporter

	// Installed by the owning session; panics when an operation runs on
	// the wrong goroutine. Nil disables the check.
	ownerCheck func(op string)

	canUndoListeners  []func(bool)
	canRedoListeners  []func(bool)
	undoTextListeners []func(string)
	redoTextListeners []func(string)
	indexListeners    []func(int)
	cleanListeners    []func(bool)
}

// NewStack creates an empty undo stack with the default undo limit.
//
// # Inputs
//
//   - logger: Destination for replay-failure diagnostics. Nil uses
//     slog.Default().
func NewStack(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stack{
		index:      -1,
		cleanIndex: -1,
		undoLimit:  DefaultUndoLimit,
		logger:     logger,
	}
	s.reporter = func(err error) {
		s.logger.Error("undo stack replay error", "error", err)
	}
	return s
}

// SetErrorReporter installs the callback that receives non-fatal replay
// errors. A nil reporter restores log-only behavior.
func (s *Stack) SetErrorReporter(r ErrorReporter) {
	if r == nil {
		r = func(err error) { s.logger.Error("undo stack replay error", "error", err) }
	}
	s.reporter = r
}

// SetOwnerCheck installs a goroutine-affinity assertion invoked at the
// start of every mutating stack call. The callback should panic when the
// calling goroutine is not the stack's owner.
func (s *Stack) SetOwnerCheck(check func(op string)) { s.ownerCheck = check }

// Count returns the number of top-level history entries. Compound
// operations count as one entry.
func (s *Stack) Count() int { return len(s.operations) }

// Index returns the position of the operation that will be undone by the
// next call to Undo, or -1 when there is none.
func (s *Stack) Index() int { return s.index }

// CleanIndex returns the history position marked as saved, or a negative
// sentinel when none is reachable.
func (s *Stack) CleanIndex() int { return s.cleanIndex }

// IsClean reports whether the current position corresponds to the last
// saved state.
func (s *Stack) IsClean() bool { return s.index == s.cleanIndex }

// CanUndo reports whether an operation is available for undo.
func (s *Stack) CanUndo() bool { return s.index >= 0 }

// CanRedo reports whether an operation is available for redo.
func (s *Stack) CanRedo() bool { return s.index < len(s.operations)-1 }

// IsUndoing reports whether the stack is currently replaying an
// operation backwards.
func (s *Stack) IsUndoing() bool { return s.isUndoing }

// IsRedoing reports whether the stack is currently replaying a
// previously undone operation.
func (s *Stack) IsRedoing() bool { return s.isRedoing }

// IsUndoingOrRedoing reports whether any replay is in progress. Push and
// the compound-operation calls are illegal while it returns true.
func (s *Stack) IsUndoingOrRedoing() bool { return s.isUndoing || s.isRedoing }

// IsSuspended reports whether recording is disabled by an outstanding
// Suspend call.
func (s *Stack) IsSuspended() bool { return s.suspendCount != 0 }

// IsRecording reports whether mutations should create undo records:
// the stack is not suspended and a compound operation is open.
func (s *Stack) IsRecording() bool {
	return !s.IsSuspended() && len(s.compoundStack) > 0
}

// UndoText returns the display name of the operation that would be
// undone next, or "" when CanUndo is false.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.operations[s.index].DisplayName()
}

// RedoText returns the display name of the operation that would be
// redone next, or "" when CanRedo is false.
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.operations[s.index+1].DisplayName()
}

// UndoLimit returns the maximum number of retained history entries.
// Negative means unlimited.
func (s *Stack) UndoLimit() int { return s.undoLimit }

// SetUndoLimit changes the retention limit and trims the history
// immediately if it is now over the limit.
func (s *Stack) SetUndoLimit(limit int) {
	s.undoLimit = limit
	prev := s.signalState()
	s.limitUndoStack()
	s.emitChanges(prev)
}

// Suspend disables the recording of undoable operations until a matching
// Resume call. Nestable; use the Suspender helper for exception-safe
// pairing.
func (s *Stack) Suspend() {
	s.assertOwner("Suspend")
	s.suspendCount++
}

// Resume re-enables recording after a Suspend call. Calling Resume more
// often than Suspend is a caller bug and panics.
func (s *Stack) Resume() {
	s.assertOwner("Resume")
	if s.suspendCount <= 0 {
		panic("undo: Resume called more often than Suspend")
	}
	s.suspendCount--
}

// AddCanUndoChangedListener registers a callback fired whenever the value
// of CanUndo changes.
func (s *Stack) AddCanUndoChangedListener(fn func(bool)) {
	s.canUndoListeners = append(s.canUndoListeners, fn)
}

// AddCanRedoChangedListener registers a callback fired whenever the value
// of CanRedo changes.
func (s *Stack) AddCanRedoChangedListener(fn func(bool)) {
	s.canRedoListeners = append(s.canRedoListeners, fn)
}

// AddUndoTextChangedListener registers a callback fired whenever the
// value of UndoText changes.
func (s *Stack) AddUndoTextChangedListener(fn func(string)) {
	s.undoTextListeners = append(s.undoTextListeners, fn)
}

// AddRedoTextChangedListener registers a callback fired whenever the
// value of RedoText changes.
func (s *Stack) AddRedoTextChangedListener(fn func(string)) {
	s.redoTextListeners = append(s.redoTextListeners, fn)
}

// AddIndexChangedListener registers a callback fired whenever an
// operation modifies the history position.
func (s *Stack) AddIndexChangedListener(fn func(int)) {
	s.indexListeners = append(s.indexListeners, fn)
}

// AddCleanChangedListener registers a callback fired when the stack
// enters or leaves the clean state.
func (s *Stack) AddCleanChangedListener(fn func(bool)) {
	s.cleanListeners = append(s.cleanListeners, fn)
}

// Push records a single operation.
//
// # Description
//
// If a compound operation is open, the record is appended to the
// innermost compound and the main history is untouched. Otherwise any
// redo tail beyond the current index is discarded (invalidating the
// clean index if it falls in the discarded range), the operation is
// appended, the cursor advances, and the history is trimmed to the undo
// limit.
//
// Push requires an idle stack: pushing during an undo/redo replay, or
// while recording is suspended, is a caller bug and panics.
func (s *Stack) Push(op Operation) {
	s.assertOwner("Push")
	if s.IsUndoingOrRedoing() {
		panic("undo: Push called during undo/redo replay")
	}
	if s.IsSuspended() {
		panic("undo: Push called while recording is suspended")
	}

	// Nested pushes feed the innermost open compound.
	if n := len(s.compoundStack); n > 0 {
		s.compoundStack[n-1].AddOperation(op)
		return
	}

	prev := s.signalState()

	// Discard the redo tail.
	if s.index < len(s.operations)-1 {
		if s.cleanIndex > s.index {
			s.cleanIndex = cleanIndexInvalid
		}
		s.operations = s.operations[:s.index+1]
	}

	s.operations = append(s.operations, op)
	s.index = len(s.operations) - 1
	s.limitUndoStack()
	recordPush()

	s.emitChanges(prev)
}

// BeginCompoundOperation opens a new compound operation with the given
// display name and makes it the target of subsequent Push calls.
// Nestable. Panics during replay.
func (s *Stack) BeginCompoundOperation(displayName string) {
	s.assertOwner("BeginCompoundOperation")
	if s.IsUndoingOrRedoing() {
		panic("undo: BeginCompoundOperation called during undo/redo replay")
	}
	s.compoundStack = append(s.compoundStack, NewCompoundOperation(displayName))
}

// EndCompoundOperation closes the innermost open compound.
//
// # Description
//
// With commit == true the compound is pushed onto the outer compound or
// the main history like a single atomic operation; if the stack is
// suspended or the compound recorded nothing, it is discarded silently
// (mutations stay in effect). With commit == false all recorded
// sub-operations are undone in reverse order, with recording suspended,
// before the compound is discarded.
//
// Panics when no compound is open or a replay is in progress.
func (s *Stack) EndCompoundOperation(commit bool) {
	s.assertOwner("EndCompoundOperation")
	if s.IsUndoingOrRedoing() {
		panic("undo: EndCompoundOperation called during undo/redo replay")
	}
	n := len(s.compoundStack)
	if n == 0 {
		panic("undo: EndCompoundOperation called without an open compound operation")
	}
	compound := s.compoundStack[n-1]
	s.compoundStack = s.compoundStack[:n-1]

	if !commit {
		s.undoSuspended(compound, compound.DisplayName())
		return
	}
	if s.IsSuspended() || !compound.IsSignificant() {
		return
	}
	s.Push(compound)
}

// ResetCurrentCompoundOperation undoes everything recorded so far in the
// innermost open compound and clears it, keeping the compound open.
//
// Used to restart a compound mid-flight, e.g. preview drag operations
// that are replayed from scratch on every input event. Replay errors are
// reported, not propagated. Panics when no compound is open or a replay
// is in progress.
func (s *Stack) ResetCurrentCompoundOperation() {
	s.assertOwner("ResetCurrentCompoundOperation")
	if s.IsUndoingOrRedoing() {
		panic("undo: ResetCurrentCompoundOperation called during undo/redo replay")
	}
	n := len(s.compoundStack)
	if n == 0 {
		panic("undo: ResetCurrentCompoundOperation called without an open compound operation")
	}
	compound := s.compoundStack[n-1]
	s.undoSuspended(compound, compound.DisplayName())
	compound.clearOps()
}

// Undo reverses the operation at the current index. No-op when CanUndo
// is false. Replay errors are reported, not returned; the cursor moves
// regardless since a retry is not well-defined.
func (s *Stack) Undo() {
	s.assertOwner("Undo")
	if len(s.compoundStack) > 0 {
		panic("undo: Undo called with an open compound operation")
	}
	if !s.CanUndo() {
		return
	}
	prev := s.signalState()
	op := s.operations[s.index]

	s.isUndoing = true
	s.Suspend()
	start := time.Now()
	err := op.Undo()
	recordReplay("undo", time.Since(start), err)
	s.Resume()
	s.isUndoing = false

	if err != nil {
		s.report(fmt.Errorf("%w: undoing %q: %w", ErrReplayFailed, op.DisplayName(), err))
	}
	s.index--
	s.emitChanges(prev)
}

// Redo re-applies the operation after the current index. No-op when
// CanRedo is false. Symmetric to Undo.
func (s *Stack) Redo() {
	s.assertOwner("Redo")
	if len(s.compoundStack) > 0 {
		panic("undo: Redo called with an open compound operation")
	}
	if !s.CanRedo() {
		return
	}
	prev := s.signalState()
	op := s.operations[s.index+1]

	s.isRedoing = true
	s.Suspend()
	start := time.Now()
	err := op.Redo()
	recordReplay("redo", time.Since(start), err)
	s.Resume()
	s.isRedoing = false

	if err != nil {
		s.report(fmt.Errorf("%w: redoing %q: %w", ErrReplayFailed, op.DisplayName(), err))
	}
	s.index++
	s.emitChanges(prev)
}

// Clear drops all history entries and open compounds and resets the
// stack to its initial empty (clean) state.
func (s *Stack) Clear() {
	s.assertOwner("Clear")
	prev := s.signalState()
	s.operations = nil
	s.compoundStack = nil
	s.index = -1
	s.cleanIndex = -1
	s.emitChanges(prev)
}

// SetClean marks the current position as the saved state.
func (s *Stack) SetClean() {
	prev := s.signalState()
	s.cleanIndex = s.index
	s.emitChanges(prev)
}

// SetDirty invalidates the clean state: no history position is
// considered saved until the next SetClean call.
func (s *Stack) SetDirty() {
	prev := s.signalState()
	s.cleanIndex = cleanIndexInvalid
	s.emitChanges(prev)
}

// limitUndoStack trims the oldest entries so Count() <= UndoLimit().
// Only entries already behind the cursor are eligible: the trim count is
// capped at index+1 so the current operation survives.
func (s *Stack) limitUndoStack() {
	if s.undoLimit < 0 || len(s.operations) <= s.undoLimit {
		return
	}
	n := len(s.operations) - s.undoLimit
	if n > s.index+1 {
		return
	}
	s.operations = append([]Operation(nil), s.operations[n:]...)
	s.index -= n
	if s.cleanIndex >= 0 {
		s.cleanIndex -= n
		if s.cleanIndex < 0 {
			// The saved state itself was trimmed away.
			s.cleanIndex = cleanIndexInvalid
		}
	}
}

// DebugDump writes a textual representation of the history tree to w.
// Strictly for diagnostics; not a stable format.
func (s *Stack) DebugDump(w io.Writer) {
	fmt.Fprintf(w, "Undo stack (%d entries, index=%d, cleanIndex=%d):\n", len(s.operations), s.index, s.cleanIndex)
	for i, op := range s.operations {
		marker := "  "
		if i == s.index {
			marker = "->"
		}
		fmt.Fprintf(w, "%s %d: %s\n", marker, i, op.DisplayName())
		if c, ok := op.(*CompoundOperation); ok {
			c.debugPrint(w, 2)
		}
	}
	for i, c := range s.compoundStack {
		fmt.Fprintf(w, "open compound %d: %s (%d sub-operations)\n", i, c.DisplayName(), c.OperationCount())
	}
}

// undoSuspended reverses a compound's recorded sub-operations with
// recording suspended, reporting (not propagating) any replay error.
func (s *Stack) undoSuspended(compound *CompoundOperation, label string) {
	s.Suspend()
	err := compound.Undo()
	s.Resume()
	if err != nil {
		s.report(fmt.Errorf("%w: discarding %q: %w", ErrReplayFailed, label, err))
	}
}

func (s *Stack) report(err error) {
	if s.reporter != nil {
		s.reporter(err)
	}
}

func (s *Stack) assertOwner(op string) {
	if s.ownerCheck != nil {
		s.ownerCheck(op)
	}
}

// stackSignals snapshots every observable derived value so transitions
// can be detected after a mutation.
type stackSignals struct {
	canUndo  bool
	canRedo  bool
	undoText string
	redoText string
	index    int
	clean    bool
}

func (s *Stack) signalState() stackSignals {
	return stackSignals{
		canUndo:  s.CanUndo(),
		canRedo:  s.CanRedo(),
		undoText: s.UndoText(),
		redoText: s.RedoText(),
		index:    s.index,
		clean:    s.IsClean(),
	}
}

func (s *Stack) emitChanges(prev stackSignals) {
	now := s.signalState()
	if now.canUndo != prev.canUndo {
		for _, fn := range s.canUndoListeners {
			fn(now.canUndo)
		}
	}
	if now.canRedo != prev.canRedo {
		for _, fn := range s.canRedoListeners {
			fn(now.canRedo)
		}
	}
	if now.undoText != prev.undoText {
		for _, fn := range s.undoTextListeners {
			fn(now.undoText)
		}
	}
	if now.redoText != prev.redoText {
		for _, fn := range s.redoTextListeners {
			fn(now.redoText)
		}
	}
	if now.index != prev.index {
		for _, fn := range s.indexListeners {
			fn(now.index)
		}
	}
	if now.clean != prev.clean {
		for _, fn := range s.cleanListeners {
			fn(now.clean)
		}
	}
}
