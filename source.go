// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import "os"

// ContentSource is a deferred content source for one virtual-table entry.
// It is a sealed variant — FromArchive, FromPath, FromHandle, or
// FromBuffer — so a caller cannot construct a combination of fields the
// wire format has no meaning for; there is no stringly-typed `type` tag
// with parallel optional fields to get out of sync.
type ContentSource interface {
	contentSource()
}

// FromArchive carries an entry forward from a loaded archive without
// reading it until something resolves it. Offset and Length are always
// both present; they are exactly what was parsed from the metatable.
type FromArchive struct {
	Archive *Archive
	Offset  uint64
	Length  uint64
}

// FromPath pulls content from a host filesystem path, opened and closed
// around the read. Offset and Length are optional; a nil Length reads from
// Offset to the file's end.
type FromPath struct {
	Path   string
	Offset *uint64
	Length *uint64
}

// FromHandle pulls content from an already-open file. Ownership of File
// remains with the caller; this package never closes it.
type FromHandle struct {
	File   *os.File
	Offset *uint64
	Length *uint64
}

// FromBuffer is owned, in-memory content. Offset/Length have no meaning
// for a buffer and so are not fields on this type.
type FromBuffer struct {
	Data []byte
}

func (FromArchive) contentSource() {}
func (FromPath) contentSource()    {}
func (FromHandle) contentSource()  {}
func (FromBuffer) contentSource()  {}

// U64 returns a pointer to v, a convenience for building FromPath/FromHandle
// literals without a temporary variable.
func U64(v uint64) *uint64 { return &v }
