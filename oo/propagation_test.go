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
)

func TestTargetChangedPropagatesAlongChain(t *testing.T) {
	s := oo.NewSession()
	a := newNode(s)
	b := newNode(s)
	c := newNode(s)
	mustSet(t, b, &b.input, inputField, a)
	mustSet(t, c, &c.input, inputField, b)

	a.name.Set(a, nameField, "leaf")
	if len(b.received) != 1 || b.received[0].Type != oo.TargetChanged {
		t.Fatalf("b events = %v", b.received)
	}
	if len(c.received) != 1 {
		t.Fatalf("c events = %d, want 1 forwarded TargetChanged", len(c.received))
	}
	// The sender stays the originating object across hops.
	if c.received[0].Sender != oo.Target(a) {
		t.Fatalf("forwarded sender = %v, want the originator", c.received[0].Sender)
	}
}

func TestReferenceChangedDoesNotPropagate(t *testing.T) {
	s := oo.NewSession()
	a := newNode(s)
	b := newNode(s)
	c := newNode(s)
	target := newNode(s)
	mustSet(t, b, &b.input, inputField, a)
	mustSet(t, c, &c.input, inputField, b)
	b.received = nil
	c.received = nil

	mustSet(t, a, &a.input, inputField, target)
	if len(b.received) != 1 || b.received[0].Type != oo.ReferenceChanged {
		t.Fatalf("b events = %v, want one ReferenceChanged", b.received)
	}
	if len(c.received) != 0 {
		t.Fatalf("c events = %d, ReferenceChanged must not cascade", len(c.received))
	}
}

func TestDontPropagateMessagesSuppressesForwarding(t *testing.T) {
	s := oo.NewSession()
	a := newNode(s)
	relay := newNode(s)
	observer := newNode(s)
	mustSet(t, relay, &relay.source, sourceField, a)
	mustSet(t, observer, &observer.input, inputField, relay)
	observer.received = nil

	a.name.Set(a, nameField, "quiet")
	if len(relay.received) != 1 {
		t.Fatalf("relay events = %d, the suppressed field still delivers", len(relay.received))
	}
	if len(observer.received) != 0 {
		t.Fatal("event must not be forwarded past a suppressed-only holder")
	}

	// A second, non-suppressed field to the same target re-enables
	// forwarding.
	mustSet(t, relay, &relay.input, inputField, a)
	observer.received = nil
	a.name.Set(a, nameField, "loud")
	if len(observer.received) != 1 {
		t.Fatalf("observer events = %d, want 1 forwarded", len(observer.received))
	}
}

func TestTargetDeletedStopsAtDirectDependents(t *testing.T) {
	s := oo.NewSession()
	victim := newNode(s)
	holder := newNode(s)
	observer := newNode(s)
	mustSet(t, holder, &holder.input, inputField, victim)
	mustSet(t, observer, &observer.input, inputField, holder)
	observer.received = nil

	victim.DeleteReferenceObject()
	var sawDeleted bool
	for _, e := range holder.received {
		if e.Type == oo.TargetDeleted {
			sawDeleted = true
		}
	}
	if !sawDeleted {
		t.Fatal("direct dependent must receive TargetDeleted")
	}
	for _, e := range observer.received {
		if e.Type == oo.TargetDeleted {
			t.Fatal("TargetDeleted must never be forwarded")
		}
	}
}

func TestNotifyDependentsManualEvent(t *testing.T) {
	s := oo.NewSession()
	a := newNode(s)
	w := newNode(s)
	mustSet(t, w, &w.input, inputField, a)
	w.received = nil

	a.NotifyDependents(oo.TitleChanged)
	if len(w.received) != 1 || w.received[0].Type != oo.TitleChanged {
		t.Fatalf("events = %v, want one TitleChanged", w.received)
	}
	if w.received[0].Field != nil {
		t.Fatal("manual notifications carry no field")
	}
}

func TestNotifyTargetChangedWithField(t *testing.T) {
	s := oo.NewSession()
	a := newNode(s)
	w := newNode(s)
	mustSet(t, w, &w.input, inputField, a)
	w.received = nil

	a.NotifyTargetChanged(nameField)
	if len(w.received) != 1 {
		t.Fatalf("events = %d, want 1", len(w.received))
	}
	if e := w.received[0]; e.Type != oo.TargetChanged || e.Field != nameField || e.Sender != oo.Target(a) {
		t.Fatalf("event = %+v", e)
	}
}

func TestHandlerMayMutateDependentsDuringDelivery(t *testing.T) {
	s := oo.NewSession()
	a := newNode(s)
	w1 := newNode(s)
	w2 := newNode(s)
	mustSet(t, w1, &w1.input, inputField, a)
	mustSet(t, w2, &w2.input, inputField, a)

	// w1 drops its reference from inside the delivery; w2 must still
	// receive the same notification.
	w1.onEvent = func(e oo.Event) {
		if e.Type == oo.TitleChanged {
			mustSet(t, w1, &w1.input, inputField, nil)
		}
	}
	w2.received = nil
	a.NotifyDependents(oo.TitleChanged)
	if w1.input.Get() != nil {
		t.Fatal("w1 must have detached itself")
	}
	if len(w2.received) != 1 {
		t.Fatalf("w2 events = %d, want 1", len(w2.received))
	}
}
