// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package oo

import "strings"

// Flags is the per-field behavior bitset carried by a FieldDescriptor.
type Flags uint32

const (
	// FlagVector marks a reference field as vector-valued. Set
	// implicitly by RegisterVectorReferenceField.
	FlagVector Flags = 1 << iota

	// FlagNoUndo excludes the field's mutations from undo recording.
	FlagNoUndo

	// FlagWeakRef makes a reference field non-owning: the edge never
	// extends the target's lifetime and is cleared when the target is
	// deleted.
	FlagWeakRef

	// FlagNoChangeMessage suppresses the generic target-changed event
	// normally raised after a mutation.
	FlagNoChangeMessage

	// FlagNeverCloneTarget excludes the referenced target from object
	// cloning; the clone shares no edge for this field.
	FlagNeverCloneTarget

	// FlagAlwaysCloneTarget forces a (shallow) copy of the referenced
	// target when the owner is cloned.
	FlagAlwaysCloneTarget

	// FlagAlwaysDeepCopyTarget forces a deep copy of the referenced
	// target when the owner is cloned.
	FlagAlwaysDeepCopyTarget

	// FlagMemorize enables persisting the field's value as a
	// user-defined default in the settings store.
	FlagMemorize

	// FlagNonAnimatable marks a parameter that cannot be driven by an
	// animation controller.
	FlagNonAnimatable

	// FlagDontSaveRecomputableData skips the field when a document is
	// saved without recomputable data.
	FlagDontSaveRecomputableData

	// FlagDontPropagateMessages stops change notifications received
	// through this reference edge from being forwarded to the owner's
	// own dependents.
	FlagDontPropagateMessages

	// FlagOpenSubEditor asks property editors to embed an editor for the
	// referenced target below the owner's own editor.
	FlagOpenSubEditor
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

var flagNames = []struct {
	bit  Flags
	name string
}{
	{FlagVector, "vector"},
	{FlagNoUndo, "no-undo"},
	{FlagWeakRef, "weak"},
	{FlagNoChangeMessage, "no-change-message"},
	{FlagNeverCloneTarget, "never-clone-target"},
	{FlagAlwaysCloneTarget, "always-clone-target"},
	{FlagAlwaysDeepCopyTarget, "always-deep-copy-target"},
	{FlagMemorize, "memorize"},
	{FlagNonAnimatable, "non-animatable"},
	{FlagDontSaveRecomputableData, "dont-save-recomputable-data"},
	{FlagDontPropagateMessages, "dont-propagate-messages"},
	{FlagOpenSubEditor, "open-sub-editor"},
}

// String returns a "|"-separated list of set flag names.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.bit) {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}
