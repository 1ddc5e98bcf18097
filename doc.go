// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sbasset6 reads, mutates, and rewrites archive files in the
// SBAsset6 container format (the .pak format used by Starbound), together
// with the SBON codec used to encode the archive's metadata map and its
// virtual-path strings.
//
// An archive is a flat namespace of virtual paths, each backed by a
// deferred content source (see ContentSource), plus one free-form metadata
// map. It has a fairly basic layout:
//
//	* 8-byte magic "SBAsset6"
//	* 8-byte big-endian metatable offset
//	* ... file bodies, back to back, in whatever order Save wrote them ...
//	* metatable: "INDEX" + SBON metadata map + varint file count + that
//	  many (SBON string path, 8-byte BE offset, 8-byte BE length) records
//
// Load parses the header and metatable and populates the virtual file
// table with entries referencing the open archive; none of their bytes are
// read until something resolves them. Save streams every table entry into a
// fresh sibling ".tmp" file, appends a freshly built metatable, back-patches
// the header's metatable pointer, and renames the temp file over the
// original — there is no in-place edit.
//
// The SBON value tree and its low-level stream/sink/pipeline primitives
// live in the sbio and sbio/sbon subpackages; this package is the archive
// engine and virtual file table layered on top of them.
package sbasset6
