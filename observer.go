// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

// Event is one progress notification delivered synchronously from within
// Load, Save, or Close. Fields not meaningful to a particular event Name
// are left zero.
type Event struct {
	// Name is one of: load.start, load.header, load.metatable, load.files,
	// load.file.progress, load.done, save.start, save.header, save.files,
	// save.file.progress, save.metatable, save.done, close.
	Name string

	// Target is the archive's host path (load.start/save.start) or a
	// virtual path (*.file.progress).
	Target string

	// Index is the 0-based position of the current entry, for
	// *.file.progress events.
	Index int

	// Total is the entry count, for load.files/save.files.
	Total int

	// Type labels the resolved ContentSource kind for save.file.progress
	// (e.g. "FromArchive", "FromPath", "FromHandle", "FromBuffer").
	Type string
}

// Observer receives Events. A nil Observer is valid and receives nothing.
type Observer func(Event)

func (o Observer) emit(ev Event) {
	if o != nil {
		o(ev)
	}
}
