// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import (
	"bytes"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"

	"github.com/google/uuid"

	"github.com/vizworks/refcore/undo"
)

// Session owns one reference graph and its undo history.
//
// # Description
//
// All objects created through a session belong to that session's graph
// and share its undo stack. A session is bound to the goroutine that
// created it: every structural or property mutation of its objects must
// run on that goroutine. Violations panic immediately rather than
// corrupting the history.
//
// # Thread Safety
//
// Confined to the owner goroutine. Read access from other goroutines is
// not synchronized either; callers needing cross-goroutine reads must
// hand off through channels.
type Session struct {
	id             uuid.UUID
	ownerGoroutine uint64
	stack          *undo.Stack
	logger         *slog.Logger
	defaults       DefaultsStore
}

type sessionOptions struct {
	logger    *slog.Logger
	undoLimit int
	hasLimit  bool
	defaults  DefaultsStore
	reporter  undo.ErrorReporter
}

// SessionOption configures a new session.
type SessionOption func(*sessionOptions)

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) SessionOption {
	return func(o *sessionOptions) { o.logger = l }
}

// WithUndoLimit sets the maximum number of stored undo records.
func WithUndoLimit(n int) SessionOption {
	return func(o *sessionOptions) { o.undoLimit, o.hasLimit = n, true }
}

// WithDefaultsStore attaches a persistent store for memorized field
// defaults.
func WithDefaultsStore(store DefaultsStore) SessionOption {
	return func(o *sessionOptions) { o.defaults = store }
}

// WithErrorReporter routes undo/redo replay errors to the given
// reporter instead of the session log.
func WithErrorReporter(r undo.ErrorReporter) SessionOption {
	return func(o *sessionOptions) { o.reporter = r }
}

// NewSession creates an empty session bound to the calling goroutine.
func NewSession(opts ...SessionOption) *Session {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	s := &Session{
		id:             uuid.New(),
		ownerGoroutine: goroutineID(),
		logger:         o.logger,
		defaults:       o.defaults,
	}
	s.stack = undo.NewStack(o.logger)
	if o.hasLimit {
		s.stack.SetUndoLimit(o.undoLimit)
	}
	if o.reporter != nil {
		s.stack.SetErrorReporter(o.reporter)
	}
	s.stack.SetOwnerCheck(s.assertOwner)
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// UndoStack returns the session's undo stack.
func (s *Session) UndoStack() *undo.Stack { return s.stack }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Defaults returns the attached defaults store, or nil.
func (s *Session) Defaults() DefaultsStore { return s.defaults }

// AssertOwnerGoroutine panics when called from any goroutine other than
// the one that created the session.
func (s *Session) AssertOwnerGoroutine(op string) {
	s.assertOwner(op)
}

func (s *Session) assertOwner(op string) {
	if gid := goroutineID(); gid != s.ownerGoroutine {
		panic(fmt.Sprintf("oo: %s called from goroutine %d, session %s is owned by goroutine %d",
			op, gid, s.id, s.ownerGoroutine))
	}
}

// goroutineID extracts the numeric id of the calling goroutine from the
// stack trace header "goroutine N [...". Used only for ownership
// assertions, never for scheduling decisions.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
