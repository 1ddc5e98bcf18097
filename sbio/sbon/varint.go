// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbon

import (
	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
)

// ReadVarint reads an unsigned base-128 varint: each byte contributes its
// low 7 bits to the accumulator, most-significant byte first, stopping at
// the first byte whose top bit is clear.
func ReadVarint(s sbio.Stream) (uint64, error) {
	var acc uint64
	for i := 0; ; i++ {
		if i >= 10 {
			// 10 groups of 7 bits cover all of uint64; a writer that
			// respects the spec's 2^63-1 ceiling never needs this many.
			return 0, errs.Wrap(errs.Malformed, errors.New("varint too long"))
		}
		b, err := s.Read(1)
		if err != nil {
			return 0, err
		}
		acc = (acc << 7) | uint64(b[0]&0x7f)
		if b[0]&0x80 == 0 {
			return acc, nil
		}
	}
}

// WriteVarint writes n as an unsigned base-128 varint.
func WriteVarint(sink sbio.Sink, n uint64) error {
	var buf [10]byte
	i := len(buf)
	for {
		i--
		buf[i] = byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			break
		}
		buf[i] |= 0x80
	}
	_, err := sink.Write(buf[i:])
	return err
}

// ReadSignedVarint reads an unsigned varint u and decodes it using the
// format's low-bit sign encoding: u>>1 if u is even, -((u>>1)+1) if odd.
func ReadSignedVarint(s sbio.Stream) (int64, error) {
	u, err := ReadVarint(s)
	if err != nil {
		return 0, err
	}
	if u&1 == 0 {
		return int64(u >> 1), nil
	}
	return -int64(u>>1) - 1, nil
}

// WriteSignedVarint writes n using the format's low-bit sign encoding.
func WriteSignedVarint(sink sbio.Sink, n int64) error {
	var u uint64
	if n >= 0 {
		u = uint64(n) << 1
	} else {
		u = (uint64(-n-1) << 1) | 1
	}
	return WriteVarint(sink, u)
}
