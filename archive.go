// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/luci/luci-go/common/data/stringset"
	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/logging"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
	"github.com/katanacrimson/SBAsset6/sbio/sbon"
)

// Magic is the 8-byte literal that opens every SBAsset6 archive.
const Magic = "SBAsset6"

// indexMarker is the literal that opens the metatable.
const indexMarker = "INDEX"

// headerSize is the fixed size of the magic + metatable-pointer header.
const headerSize = 16

// Archive is a handle onto one SBAsset6 archive. It owns the host path, an
// optional open stream onto the currently loaded archive, the metatable
// offset (valid only while loaded), the free-form metadata map, and the
// virtual file table. A zero-value-ish Archive obtained from New is valid
// and unloaded; it may be populated from scratch and saved.
//
// It starts Fresh (unloaded, empty file table) or becomes Loaded by calling
// Load. Save always streams a fresh archive to a sibling temp file and
// renames it over the original — there is no in-place edit — then reopens
// the result, so a successful Save leaves the handle Loaded against the
// rewritten file.
type Archive struct {
	path     string
	stream   *sbio.FileStream
	metaOff  int64
	metadata *sbon.Map
	table    *FileTable

	opts optionData
}

// New returns an unloaded (Fresh) Archive bound to path. path need not
// exist yet; Save will create it.
func New(path string) *Archive {
	return &Archive{
		path:     path,
		metadata: sbon.NewMap(),
		table:    NewFileTable(),
		opts:     defaultOptions(),
	}
}

// Path returns the archive's host path.
func (a *Archive) Path() string { return a.path }

// IsLoaded reports whether a holds an open stream.
func (a *Archive) IsLoaded() bool { return a.stream != nil }

// Metadata returns the archive's free-form metadata map.
func (a *Archive) Metadata() *sbon.Map { return a.metadata }

// SetMetadata replaces the archive's metadata map wholesale.
func (a *Archive) SetMetadata(m *sbon.Map) { a.metadata = m }

// Table returns the archive's virtual file table.
func (a *Archive) Table() *FileTable { return a.table }

// Load returns a new Archive bound to path after opening the file, verifying
// its header, parsing its metatable, and populating the virtual file table
// with FromArchive entries referencing the returned handle.
func Load(path string, opts ...Option) (*Archive, error) {
	a := New(path)
	if err := a.reload(opts...); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload re-opens a's archive from a.Path(), discarding whatever state a
// currently holds (loaded or not).
func (a *Archive) Reload(opts ...Option) error {
	return a.reload(opts...)
}

func (a *Archive) reload(opts ...Option) error {
	o := applyOptions(opts)
	a.opts = o
	obs := o.observer
	ctx := o.ctx

	if a.stream != nil {
		_ = a.stream.Close()
		a.stream = nil
	}

	logging.Infof(ctx, "sbasset6: loading %q", a.path)
	obs.emit(Event{Name: "load.start", Target: a.path})

	stream, err := sbio.OpenFileStream(a.path)
	if err != nil {
		logging.Errorf(ctx, "sbasset6: opening %q: %s", a.path, err)
		return err
	}

	metaOff, err := readHeader(stream)
	if err != nil {
		logging.Errorf(ctx, "sbasset6: reading header of %q: %s", a.path, err)
		stream.Close()
		return err
	}
	obs.emit(Event{Name: "load.header"})

	if err := stream.SeekAbsolute(metaOff); err != nil {
		stream.Close()
		werr := errs.Wrap(errs.CorruptMetatable, errors.Annotate(err).Reason("seeking to metatable offset %(off)d").D("off", metaOff).Err())
		logging.Errorf(ctx, "sbasset6: seeking to metatable of %q: %s", a.path, werr)
		return werr
	}

	a.stream = stream
	a.metaOff = metaOff

	metadata, entries, err := readMetatable(ctx, stream, o.maxDepth)
	if err != nil {
		a.stream = nil
		stream.Close()
		logging.Errorf(ctx, "sbasset6: reading metatable of %q: %s", a.path, err)
		return err
	}
	obs.emit(Event{Name: "load.metatable"})
	obs.emit(Event{Name: "load.files", Total: len(entries)})

	table := NewFileTable()
	for i, e := range entries {
		table.Set(e.Path, FromArchive{Archive: a, Offset: e.Offset, Length: e.Length})
		obs.emit(Event{Name: "load.file.progress", Target: e.Path, Index: i})
	}

	a.metadata = metadata
	a.table = table

	logging.Infof(ctx, "sbasset6: loaded %q with %d entries", a.path, len(entries))
	obs.emit(Event{Name: "load.done"})
	return nil
}

// readHeader reads and validates the 16-byte SBAsset6 header, returning the
// metatable offset.
func readHeader(s sbio.Stream) (int64, error) {
	magic, err := s.Read(8)
	if err != nil {
		return 0, err
	}
	if !bytes.Equal(magic, []byte(Magic)) {
		return 0, errs.Wrap(errs.NotAnArchive, errors.New("File does not appear to be SBAsset6 format."))
	}

	offBytes, err := s.Read(8)
	if err != nil {
		return 0, err
	}
	return int64(beUint64(offBytes)), nil
}

// FileTableEntry is one (path, offset, length) record parsed from, or
// about to be written to, a metatable.
type FileTableEntry struct {
	Path   string
	Offset uint64
	Length uint64
}

// readMetatable reads "INDEX" + SBON metadata map + varint count + that
// many FileTableEntry records, starting at the stream's current position.
// The wire format allows duplicate paths across entries (spec: readers
// must accept duplicates by keeping the last, though producers are
// discouraged from emitting them); duplicates are tolerated here too, but
// logged once seen so a caller inspecting ctx's logger can tell a producer
// violated that convention.
func readMetatable(ctx context.Context, s sbio.Stream, maxDepth int) (*sbon.Map, []FileTableEntry, error) {
	marker, err := s.Read(len(indexMarker))
	if err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(marker, []byte(indexMarker)) {
		return nil, nil, errs.Wrap(errs.CorruptMetatable, errors.New(`"INDEX" marker not found at metatable offset`))
	}

	// The metadata map carries no leading type tag: a varint entry count,
	// then that many (string key, dynamic value) pairs.
	dec := &sbon.Decoder{MaxDepth: maxDepth}
	metadata := sbon.NewMap()
	count, err := sbon.ReadVarint(s)
	for i := uint64(0); err == nil && i < count; i++ {
		var key string
		var v sbon.Value
		if key, err = sbon.ReadString(s); err == nil {
			if v, err = dec.ReadDynamic(s); err == nil {
				metadata.Set(key, v)
			}
		}
	}
	if err != nil {
		return nil, nil, errs.Wrap(errs.CorruptMetatable, errors.Annotate(err).Reason("reading metadata map").Err())
	}

	n, err := sbon.ReadVarint(s)
	if err != nil {
		return nil, nil, errs.Wrap(errs.CorruptMetatable, errors.Annotate(err).Reason("reading file count").Err())
	}

	entries := make([]FileTableEntry, 0, n)
	seen := stringset.New(int(n))
	for i := uint64(0); i < n; i++ {
		path, err := sbon.ReadString(s)
		if err != nil {
			return nil, nil, errs.Wrap(errs.CorruptMetatable, errors.Annotate(err).Reason("reading entry %(i)d path").D("i", i).Err())
		}
		offBytes, err := s.Read(8)
		if err != nil {
			return nil, nil, errs.Wrap(errs.CorruptMetatable, errors.Annotate(err).Reason("reading entry %(i)d offset").D("i", i).Err())
		}
		lenBytes, err := s.Read(8)
		if err != nil {
			return nil, nil, errs.Wrap(errs.CorruptMetatable, errors.Annotate(err).Reason("reading entry %(i)d length").D("i", i).Err())
		}
		if !seen.Add(path) {
			logging.Warningf(ctx, "sbasset6: metatable has duplicate virtual path %q at entry %d; last one wins", path, i)
		}
		entries = append(entries, FileTableEntry{
			Path:   path,
			Offset: beUint64(offBytes),
			Length: beUint64(lenBytes),
		})
	}

	return metadata, entries, nil
}

// ReadWindow reads length bytes at offset from a's open archive stream.
// Fails errs.NotLoaded if a holds no open stream.
func (a *Archive) ReadWindow(offset, length uint64) ([]byte, error) {
	if a.stream == nil {
		return nil, errs.Wrap(errs.NotLoaded, errors.New("archive is not loaded"))
	}
	return a.stream.ReadAt(int64(offset), int64(length))
}

// Close closes the open stream, if any, and clears the metatable offset,
// metadata, and file table. Idempotent.
func (a *Archive) Close(opts ...Option) error {
	o := applyOptions(opts)

	var err error
	if a.stream != nil {
		err = a.stream.Close()
		a.stream = nil
	}
	a.metaOff = 0
	a.metadata = sbon.NewMap()
	a.table = NewFileTable()

	o.observer.emit(Event{Name: "close"})
	if err != nil {
		werr := errs.Wrap(errs.IOError, errors.Annotate(err).Reason("closing archive stream").Err())
		logging.Errorf(o.ctx, "sbasset6: closing %q: %s", a.path, werr)
		return werr
	}
	logging.Infof(o.ctx, "sbasset6: closed %q", a.path)
	return nil
}

func beUint64(b []byte) uint64 { return binary.BigEndian.Uint64(b) }

func putBEUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
