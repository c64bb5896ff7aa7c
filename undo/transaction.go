// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package undo

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Suspender is a scoped suspend/resume guard.
//
// SuspendRecording increments the stack's suspend count; Done decrements
// it exactly once, no matter how many times it is called. Pair them with
// defer to stay balanced across early returns and panics:
//
//	resume := undo.SuspendRecording(stack)
//	defer resume.Done()
type Suspender struct {
	stack    *Stack
	released bool
}

// SuspendRecording suspends undo recording on the stack and returns the
// guard that re-enables it.
func SuspendRecording(s *Stack) *Suspender {
	s.Suspend()
	return &Suspender{stack: s}
}

// Done resumes recording. Safe to call multiple times; only the first
// call has an effect.
func (g *Suspender) Done() {
	if g.released {
		return
	}
	g.released = true
	g.stack.Resume()
}

// Transaction brackets a multi-step edit so it appears as one atomic
// entry in the undo history and never leaves the document half-applied.
//
// Unless Commit is called, Close rolls back every operation recorded so
// far. When the stack is suspended the transaction is a no-op shell:
// mutations proceed unrecorded, exactly as if the caller had bracketed
// them directly with Begin/EndCompoundOperation.
type Transaction struct {
	stack    *Stack
	active   bool
	finished bool
}

// BeginTransaction opens a compound operation with the given label,
// unless the stack is suspended.
func BeginTransaction(s *Stack, label string) *Transaction {
	t := &Transaction{stack: s}
	if !s.IsSuspended() {
		s.BeginCompoundOperation(label)
		t.active = true
	}
	return t
}

// Commit closes the transaction and keeps its operations. Panics if the
// transaction was already committed or closed.
func (t *Transaction) Commit() {
	if t.finished {
		panic("undo: Commit called on a finished transaction")
	}
	t.finished = true
	if t.active {
		t.stack.EndCompoundOperation(true)
	}
}

// Close rolls the transaction back unless Commit was called first. Safe
// to call multiple times; intended for defer.
func (t *Transaction) Close() {
	if t.finished {
		return
	}
	t.finished = true
	if t.active {
		t.stack.EndCompoundOperation(false)
	}
}

// Do executes fn inside a transaction labeled label.
//
// # Description
//
// If fn returns an error, every operation it performed is undone, the
// error is delivered to the stack's ErrorReporter, and the error is
// returned; the document is left exactly as it was before the call.
// Otherwise the transaction commits and appears as a single entry in the
// history.
func Do(s *Stack, label string, fn func() error) error {
	_, span := tracer.Start(context.Background(), "undo.Transaction",
		trace.WithAttributes(attribute.String("label", label)))
	defer span.End()

	t := BeginTransaction(s, label)
	defer t.Close()

	if err := fn(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.Close()
		s.report(err)
		return err
	}
	t.Commit()
	span.SetStatus(codes.Ok, "")
	return nil
}
