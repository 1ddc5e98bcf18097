// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import (
	"io"
	"os"

	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
)

// FileTable is the in-memory mapping from virtual path to deferred content
// source. It does not own any file handles or archive streams it
// references — callers remain responsible for their lifetime.
type FileTable struct {
	order   []string
	sources map[string]ContentSource
}

// NewFileTable returns an empty FileTable.
func NewFileTable() *FileTable {
	return &FileTable{sources: map[string]ContentSource{}}
}

// List enumerates the table's virtual paths. The order is stable across
// calls that don't mutate the table in between, but is otherwise
// unspecified; it becomes the archive's physical layout order on save.
func (t *FileTable) List() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Exists reports whether virtualPath is present.
func (t *FileTable) Exists(virtualPath string) bool {
	_, ok := t.sources[virtualPath]
	return ok
}

// Set assigns virtualPath's content source, fully replacing any prior
// mapping for that path (no merging of previously-set offset/length
// fields).
func (t *FileTable) Set(virtualPath string, src ContentSource) {
	if _, ok := t.sources[virtualPath]; !ok {
		t.order = append(t.order, virtualPath)
	}
	t.sources[virtualPath] = src
}

// Delete removes virtualPath. Deleting an absent path silently succeeds.
func (t *FileTable) Delete(virtualPath string) {
	if _, ok := t.sources[virtualPath]; !ok {
		return
	}
	delete(t.sources, virtualPath)
	for i, p := range t.order {
		if p == virtualPath {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Source returns the raw ContentSource set for virtualPath, without
// resolving it to bytes.
func (t *FileTable) Source(virtualPath string) (ContentSource, bool) {
	src, ok := t.sources[virtualPath]
	return src, ok
}

// Get resolves virtualPath's content source to a full in-memory byte
// block. Fails errs.NotFound if the path is unknown.
func (t *FileTable) Get(virtualPath string) ([]byte, error) {
	src, ok := t.sources[virtualPath]
	if !ok {
		return nil, errs.Wrap(errs.NotFound,
			errors.Reason("no such virtual path %(path)q").D("path", virtualPath).Err())
	}
	return resolveSource(src)
}

func resolveSource(src ContentSource) ([]byte, error) {
	switch s := src.(type) {
	case FromArchive:
		if s.Archive == nil {
			return nil, errs.Wrap(errs.InvalidArgument, errors.New("FromArchive source has a nil Archive"))
		}
		return s.Archive.ReadWindow(s.Offset, s.Length)

	case FromBuffer:
		out := make([]byte, len(s.Data))
		copy(out, s.Data)
		return out, nil

	case FromPath:
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("opening %(path)q").D("path", s.Path).Err())
		}
		defer f.Close()
		return readWindowed(f, s.Offset, s.Length)

	case FromHandle:
		if s.File == nil {
			return nil, errs.Wrap(errs.InvalidArgument, errors.New("FromHandle source has a nil File"))
		}
		return readWindowed(s.File, s.Offset, s.Length)

	default:
		return nil, errs.Wrap(errs.InvalidArgument,
			errors.Reason("unrecognized content source shape %(t)T").D("t", src).Err())
	}
}

// readWindowed reads from f starting at offset (default 0) for length
// bytes (default: to EOF). The EOF-relative length is computed as
// size-offset — the corrected semantic; an earlier draft of this logic
// inverted that subtraction.
func readWindowed(f *os.File, offset, length *uint64) ([]byte, error) {
	var off uint64
	if offset != nil {
		off = *offset
	}

	st, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("statting source file").Err())
	}
	size := uint64(st.Size())

	var ln uint64
	if length != nil {
		ln = *length
	} else {
		if off > size {
			return nil, errs.Wrap(errs.InvalidArgument,
				errors.Reason("offset %(off)d exceeds source size %(size)d").D("off", off).D("size", size).Err())
		}
		ln = size - off
	}

	if off+ln > size {
		return nil, errs.Wrap(errs.InvalidArgument,
			errors.Reason("window [%(off)d,%(off)d+%(len)d) exceeds source size %(size)d").
				D("off", off).D("len", ln).D("size", size).Err())
	}

	buf := make([]byte, ln)
	if _, err := io.ReadFull(io.NewSectionReader(f, int64(off), int64(ln)), buf); err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("reading source window").Err())
	}
	return buf, nil
}
