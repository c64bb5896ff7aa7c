// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package undo implements the per-document undo/redo history.
//
// The package maintains a single linear, navigable history of reversible
// operations for one editing session, with transactional grouping. Atomic
// edits are recorded as Operation values; multiple edits that must appear
// as one step in the history are bracketed with BeginCompoundOperation /
// EndCompoundOperation, or with the scoped Transaction helper.
//
// # Recording Model
//
// The stack records an operation only while it is "recording": recording
// is active when the stack is not suspended AND at least one compound
// operation is open. Suspension is a reference-counted gate (Suspend /
// Resume, or the scoped Suspender) that disables the creation of new undo
// records without disabling the underlying mutations.
//
// # Thread Safety
//
// NOT safe for concurrent use. A Stack belongs to exactly one owning
// goroutine (see the oo package's Session); there is no internal locking.
// Violations of that contract are programming errors and panic when an
// affinity check has been installed via SetOwnerCheck.
//
// # Failure Model
//
// Errors returned by an Operation's Undo or Redo method during
// stack-driven replay are caught at the stack level, logged, and handed
// to the configured ErrorReporter. The stack's own bookkeeping (index,
// flags, signals) still completes consistently; the failed operation is
// considered processed. Violations of the state preconditions (calling
// Push while a replay is running, unbalanced Resume, a missing
// EndCompoundOperation) are caller bugs and panic.
package undo

import "errors"

// Sentinel errors for undo operations.
var (
	// ErrReplayFailed wraps an error returned by an operation's Undo or
	// Redo method during stack-driven replay. It is delivered to the
	// ErrorReporter, never returned from Stack.Undo or Stack.Redo.
	ErrReplayFailed = errors.New("operation replay failed")
)
