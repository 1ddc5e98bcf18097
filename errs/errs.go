// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errs defines the error categories shared by every layer of
// SBAsset6: the byte stream, the SBON codec, the virtual file table, and the
// archive engine. Each category is a Kind; wrapping an error with a Kind
// lets callers distinguish categories with errs.Is regardless of how deep
// the luci-go annotation chain underneath it goes.
package errs

import "errors"

// Kind identifies the category of a SBAsset6 error.
type Kind int

// Kinds, as enumerated in the format's error handling design.
const (
	// InvalidArgument indicates a caller contract violation.
	InvalidArgument Kind = iota + 1
	// OutOfBounds indicates a read or seek past the end of a stream.
	OutOfBounds
	// NotAnArchive indicates the archive header magic did not match.
	NotAnArchive
	// CorruptMetatable indicates the metatable could not be parsed.
	CorruptMetatable
	// Malformed indicates an SBON value could not be decoded.
	Malformed
	// NotLoaded indicates an operation needs an open archive stream.
	NotLoaded
	// NotFound indicates a virtual path is absent from the file table.
	NotFound
	// IOError indicates a failure from the underlying filesystem or handle.
	IOError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case OutOfBounds:
		return "OutOfBounds"
	case NotAnArchive:
		return "NotAnArchive"
	case CorruptMetatable:
		return "CorruptMetatable"
	case Malformed:
		return "Malformed"
	case NotLoaded:
		return "NotLoaded"
	case NotFound:
		return "NotFound"
	case IOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// KindError pairs a Kind with the underlying error, which is typically a
// github.com/luci/luci-go/common/errors annotated chain carrying the
// structured detail.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string { return e.Err.Error() }
func (e *KindError) Unwrap() error { return e.Err }

// Wrap tags err with kind. Wrap(k, nil) returns nil.
func Wrap(k Kind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: k, Err: err}
}

// Is reports whether the first KindError found in err's Unwrap chain (err
// itself included) has kind k. KindErrors nested beneath that first one are
// not consulted.
func Is(err error, k Kind) bool {
	var ke *KindError
	for err != nil {
		if e, ok := err.(*KindError); ok {
			ke = e
			break
		}
		err = errors.Unwrap(err)
	}
	return ke != nil && ke.Kind == k
}
