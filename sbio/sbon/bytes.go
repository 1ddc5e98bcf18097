// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbon

import (
	"unicode/utf8"

	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
)

// ReadBytes reads a varint byte count followed by that many raw bytes. A
// count of 0 yields an empty, non-nil block with no subsequent read.
func ReadBytes(s sbio.Stream) ([]byte, error) {
	n, err := ReadVarint(s)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	b, err := s.Read(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// WriteBytes writes a varint byte count followed by b's raw bytes.
func WriteBytes(sink sbio.Sink, b []byte) error {
	if err := WriteVarint(sink, uint64(len(b))); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	_, err := sink.Write(b)
	return err
}

// ReadString reads a byte string and validates it as UTF-8, returning
// errs.Malformed rather than substituting replacement characters.
func ReadString(s sbio.Stream) (string, error) {
	b, err := ReadBytes(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errs.Wrap(errs.Malformed, errors.New("string is not valid UTF-8"))
	}
	return string(b), nil
}

// WriteString writes a UTF-8 string as a byte string.
func WriteString(sink sbio.Sink, str string) error {
	return WriteBytes(sink, []byte(str))
}
