// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sbio implements the low-level byte-oriented IO primitives that
// the SBON codec and the SBAsset6 archive engine are layered on: a
// random-access read Stream, an append-only Sink, and the Pipeline that
// pumps bytes from a content source into a Sink during save.
package sbio

import (
	"io"
	"os"

	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
)

// Stream is a random-access read port over a byte source of known, finite
// length. Implementations are MemStream (an owned byte slice) and
// FileStream (an open file, length statted once at open time).
type Stream interface {
	// Read returns the next n bytes and advances the cursor by n. Fails
	// with errs.OutOfBounds if cursor+n exceeds the stream's length, and
	// errs.InvalidArgument if n <= 0.
	Read(n int) ([]byte, error)

	// SeekAbsolute sets the cursor to position. Fails with
	// errs.OutOfBounds if position is negative or exceeds the stream's
	// length.
	SeekAbsolute(position int64) error

	// SeekRelative moves the cursor by delta. MemStream rejects a
	// negative delta with errs.InvalidArgument; FileStream allows it.
	SeekRelative(delta int64) error

	// Len returns the stream's total length, fixed at open/construction
	// time.
	Len() int64

	// Pos returns the current cursor position.
	Pos() int64
}

// MemStream is a Stream backed by an owned, in-memory byte slice.
type MemStream struct {
	buf    []byte
	cursor int64
}

// NewMemStream wraps buf in a MemStream. buf is not copied; callers should
// not mutate it afterwards.
func NewMemStream(buf []byte) *MemStream {
	return &MemStream{buf: buf}
}

func (m *MemStream) Len() int64 { return int64(len(m.buf)) }
func (m *MemStream) Pos() int64 { return m.cursor }

func (m *MemStream) Read(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errs.Wrap(errs.InvalidArgument,
			errors.Reason("read length must be positive, got %(n)d").D("n", n).Err())
	}
	if m.cursor+int64(n) > int64(len(m.buf)) {
		return nil, errs.Wrap(errs.OutOfBounds,
			errors.Reason("read %(n)d bytes at %(pos)d exceeds length %(len)d").
				D("n", n).D("pos", m.cursor).D("len", len(m.buf)).Err())
	}
	out := m.buf[m.cursor : m.cursor+int64(n)]
	m.cursor += int64(n)
	return out, nil
}

func (m *MemStream) SeekAbsolute(position int64) error {
	if position < 0 || position > int64(len(m.buf)) {
		return errs.Wrap(errs.OutOfBounds,
			errors.Reason("seek to %(pos)d exceeds length %(len)d").
				D("pos", position).D("len", len(m.buf)).Err())
	}
	m.cursor = position
	return nil
}

func (m *MemStream) SeekRelative(delta int64) error {
	if delta < 0 {
		return errs.Wrap(errs.InvalidArgument,
			errors.Reason("negative relative seek %(delta)d not allowed on an in-memory stream").
				D("delta", delta).Err())
	}
	return m.SeekAbsolute(m.cursor + delta)
}

// CurrentBuffer returns the unread suffix of the underlying buffer, without
// consuming it.
func (m *MemStream) CurrentBuffer() []byte {
	return m.buf[m.cursor:]
}

// Reset returns the cursor to 0.
func (m *MemStream) Reset() {
	m.cursor = 0
}

// FileStream is a Stream backed by an open file. Its length is statted once
// at construction time; subsequent growth of the underlying file is not
// observed, so a read past the original end fails errs.OutOfBounds even if
// the file has since grown.
type FileStream struct {
	f      *os.File
	length int64
}

// OpenFileStream opens path read-only and stats its length.
func OpenFileStream(path string) (*FileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("opening %(path)q").D("path", path).Err())
	}
	return NewFileStream(f)
}

// NewFileStream wraps an already-open file, statting its length once.
func NewFileStream(f *os.File) (*FileStream, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("statting stream file").Err())
	}
	return &FileStream{f: f, length: st.Size()}, nil
}

func (fs *FileStream) Len() int64 { return fs.length }

func (fs *FileStream) Pos() int64 {
	pos, err := fs.f.Seek(0, io.SeekCurrent)
	if err != nil {
		// The cursor is only ever moved through this type's own methods,
		// so a failing SeekCurrent means the underlying handle is gone.
		panic(errors.Annotate(err).Reason("querying stream cursor").Err())
	}
	return pos
}

func (fs *FileStream) Read(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errs.Wrap(errs.InvalidArgument,
			errors.Reason("read length must be positive, got %(n)d").D("n", n).Err())
	}
	pos := fs.Pos()
	if pos+int64(n) > fs.length {
		return nil, errs.Wrap(errs.OutOfBounds,
			errors.Reason("read %(n)d bytes at %(pos)d exceeds length %(len)d").
				D("n", n).D("pos", pos).D("len", fs.length).Err())
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(fs.f, buf); err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("reading %(n)d bytes").D("n", n).Err())
	}
	return buf, nil
}

func (fs *FileStream) SeekAbsolute(position int64) error {
	if position < 0 || position > fs.length {
		return errs.Wrap(errs.OutOfBounds,
			errors.Reason("seek to %(pos)d exceeds length %(len)d").
				D("pos", position).D("len", fs.length).Err())
	}
	if _, err := fs.f.Seek(position, io.SeekStart); err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("seeking to %(pos)d").D("pos", position).Err())
	}
	return nil
}

func (fs *FileStream) SeekRelative(delta int64) error {
	return fs.SeekAbsolute(fs.Pos() + delta)
}

// Close closes the underlying file.
func (fs *FileStream) Close() error {
	return fs.f.Close()
}

// File returns the underlying *os.File, so a Pipeline can pump from it by
// positional IO without disturbing fs's own cursor.
func (fs *FileStream) File() *os.File {
	return fs.f
}

// ReadAt reads length bytes at offset without disturbing fs's cursor,
// using positional IO so it is safe to interleave with Pipeline pumps
// against the same handle.
func (fs *FileStream) ReadAt(offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > fs.length {
		return nil, errs.Wrap(errs.OutOfBounds,
			errors.Reason("window [%(off)d,%(off)d+%(len)d) exceeds length %(total)d").
				D("off", offset).D("len", length).D("total", fs.length).Err())
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(fs.f, offset, length), buf); err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("positional read at %(off)d").D("off", offset).Err())
	}
	return buf, nil
}
