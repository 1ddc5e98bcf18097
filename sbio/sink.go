// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbio

import (
	"bytes"
	"os"

	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
)

// Sink is an append-only byte sink. FileSink additionally supports Patch,
// for back-patching the archive header's metatable pointer after the
// pointer's real value becomes known.
type Sink interface {
	// Write appends bytes and returns the sink's new end position.
	Write(b []byte) (int64, error)

	// Position returns the number of bytes written so far.
	Position() int64
}

// Patcher is implemented by sinks that support overwriting an already
// written byte range without disturbing the append cursor.
type Patcher interface {
	Patch(b []byte, offset int64) error
}

// MemSink is a Sink backed by a growing in-memory buffer.
type MemSink struct {
	buf bytes.Buffer
}

// NewMemSink returns an empty MemSink.
func NewMemSink() *MemSink { return &MemSink{} }

func (s *MemSink) Write(b []byte) (int64, error) {
	n, err := s.buf.Write(b)
	if err != nil {
		return s.Position(), errs.Wrap(errs.IOError, errors.Annotate(err).Reason("writing to memory sink").Err())
	}
	_ = n
	return s.Position(), nil
}

func (s *MemSink) Position() int64 { return int64(s.buf.Len()) }

// Bytes returns the bytes written so far. The returned slice aliases the
// sink's internal buffer and must not be mutated.
func (s *MemSink) Bytes() []byte { return s.buf.Bytes() }

func (s *MemSink) Patch(b []byte, offset int64) error {
	if offset < 0 || offset+int64(len(b)) > s.Position() {
		return errs.Wrap(errs.InvalidArgument,
			errors.Reason("patch range [%(off)d,%(off)d+%(n)d) exceeds position %(pos)d").
				D("off", offset).D("n", len(b)).D("pos", s.Position()).Err())
	}
	copy(s.buf.Bytes()[offset:], b)
	return nil
}

// FileSink is a Sink backed by an open output file, written to
// sequentially.
type FileSink struct {
	f   *os.File
	pos int64
}

// NewFileSink creates (truncating) path for writing and wraps it.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("creating %(path)q").D("path", path).Err())
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Write(b []byte) (int64, error) {
	n, err := s.f.Write(b)
	s.pos += int64(n)
	if err != nil {
		return s.pos, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("writing %(n)d bytes to sink").D("n", len(b)).Err())
	}
	return s.pos, nil
}

func (s *FileSink) Position() int64 { return s.pos }

// Patch overwrites len(b) bytes at offset using a positional write, leaving
// the sink's append cursor (and the underlying file's current offset)
// undisturbed.
func (s *FileSink) Patch(b []byte, offset int64) error {
	if offset < 0 || offset+int64(len(b)) > s.pos {
		return errs.Wrap(errs.InvalidArgument,
			errors.Reason("patch range [%(off)d,%(off)d+%(n)d) exceeds position %(pos)d").
				D("off", offset).D("n", len(b)).D("pos", s.pos).Err())
	}
	if _, err := s.f.WriteAt(b, offset); err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("patching %(n)d bytes at %(off)d").D("n", len(b)).D("off", offset).Err())
	}
	return nil
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.f.Close()
}

// Sync flushes the underlying file's data to stable storage.
func (s *FileSink) Sync() error {
	return s.f.Sync()
}
