// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbon

import (
	"encoding/binary"
	"math"

	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
)

// Tag is the single-byte type discriminator that prefixes every SBON
// dynamic value.
type Tag byte

// The seven admitted dynamic-value tags. Any other byte is errs.Malformed.
const (
	TagNull Tag = 1
	TagFloat Tag = 2
	TagBool Tag = 3
	TagInt Tag = 4
	TagStr Tag = 5
	TagList Tag = 6
	TagMap Tag = 7
)

// DefaultMaxDepth is the recursion-depth ceiling read_dynamic enforces when
// no explicit limit is supplied, defending against hostile nesting in a
// format with no wire-level depth cap.
const DefaultMaxDepth = 64

// Decoder reads dynamic values with a configurable recursion-depth limit.
type Decoder struct {
	MaxDepth int
}

// NewDecoder returns a Decoder using DefaultMaxDepth.
func NewDecoder() *Decoder {
	return &Decoder{MaxDepth: DefaultMaxDepth}
}

// ReadDynamic reads a single-byte type tag and its payload using
// DefaultMaxDepth.
func ReadDynamic(s sbio.Stream) (Value, error) {
	return NewDecoder().ReadDynamic(s)
}

// ReadDynamic reads a single-byte type tag and its payload, enforcing d's
// depth limit against list/map nesting.
func (d *Decoder) ReadDynamic(s sbio.Stream) (Value, error) {
	return d.readDynamic(s, 0)
}

func (d *Decoder) readDynamic(s sbio.Stream, depth int) (Value, error) {
	if depth > d.MaxDepth {
		return nil, errs.Wrap(errs.Malformed,
			errors.Reason("nesting depth exceeds limit of %(max)d").D("max", d.MaxDepth).Err())
	}

	tb, err := s.Read(1)
	if err != nil {
		return nil, err
	}

	switch Tag(tb[0]) {
	case TagNull:
		return Null{}, nil

	case TagFloat:
		b, err := s.Read(8)
		if err != nil {
			return nil, err
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(b))), nil

	case TagBool:
		b, err := s.Read(1)
		if err != nil {
			return nil, err
		}
		switch b[0] {
		case 0x00:
			return Bool(false), nil
		case 0x01:
			return Bool(true), nil
		default:
			return nil, errs.Wrap(errs.Malformed,
				errors.Reason("bad bool byte 0x%(b)02x").D("b", b[0]).Err())
		}

	case TagInt:
		n, err := ReadSignedVarint(s)
		if err != nil {
			return nil, err
		}
		return Int(n), nil

	case TagStr:
		str, err := ReadString(s)
		if err != nil {
			return nil, err
		}
		return Str(str), nil

	case TagList:
		n, err := ReadVarint(s)
		if err != nil {
			return nil, err
		}
		list := make(List, 0, n)
		for i := uint64(0); i < n; i++ {
			v, err := d.readDynamic(s, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil

	case TagMap:
		n, err := ReadVarint(s)
		if err != nil {
			return nil, err
		}
		m := NewMap()
		for i := uint64(0); i < n; i++ {
			key, err := ReadString(s)
			if err != nil {
				return nil, err
			}
			v, err := d.readDynamic(s, depth+1)
			if err != nil {
				return nil, err
			}
			// Duplicate keys: last value wins, first position is kept by
			// Map.Set.
			m.Set(key, v)
		}
		return m, nil

	default:
		return nil, errs.Wrap(errs.Malformed,
			errors.Reason("unknown dynamic value tag 0x%(tag)02x").D("tag", tb[0]).Err())
	}
}

// WriteDynamic writes v's type tag and payload. Maps are emitted in their
// Range (insertion) order.
func WriteDynamic(sink sbio.Sink, v Value) error {
	switch vv := v.(type) {
	case Null:
		return writeTag(sink, TagNull)

	case Float:
		if err := writeTag(sink, TagFloat); err != nil {
			return err
		}
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(float64(vv)))
		_, err := sink.Write(b[:])
		return err

	case Bool:
		if err := writeTag(sink, TagBool); err != nil {
			return err
		}
		b := byte(0x00)
		if vv {
			b = 0x01
		}
		_, err := sink.Write([]byte{b})
		return err

	case Int:
		if err := writeTag(sink, TagInt); err != nil {
			return err
		}
		return WriteSignedVarint(sink, int64(vv))

	case Str:
		if err := writeTag(sink, TagStr); err != nil {
			return err
		}
		return WriteString(sink, string(vv))

	case List:
		if err := writeTag(sink, TagList); err != nil {
			return err
		}
		if err := WriteVarint(sink, uint64(len(vv))); err != nil {
			return err
		}
		for _, item := range vv {
			if err := WriteDynamic(sink, item); err != nil {
				return err
			}
		}
		return nil

	case *Map:
		if err := writeTag(sink, TagMap); err != nil {
			return err
		}
		if err := WriteVarint(sink, uint64(vv.Len())); err != nil {
			return err
		}
		var writeErr error
		vv.Range(func(key string, val Value) bool {
			if err := WriteString(sink, key); err != nil {
				writeErr = err
				return false
			}
			if err := WriteDynamic(sink, val); err != nil {
				writeErr = err
				return false
			}
			return true
		})
		return writeErr

	default:
		return errs.Wrap(errs.InvalidArgument,
			errors.Reason("unrepresentable SBON value of type %(t)T").D("t", v).Err())
	}
}

func writeTag(sink sbio.Sink, t Tag) error {
	_, err := sink.Write([]byte{byte(t)})
	return err
}
