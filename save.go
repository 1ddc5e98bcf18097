// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import (
	"os"

	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/logging"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
	"github.com/katanacrimson/SBAsset6/sbio/sbon"
)

// Save streams a fresh archive to a.Path()+".tmp", holding content-table
// entries in memory until the trailing metatable can be appended and the
// header's metatable pointer back-patched, then renames the temp file over
// the original and reopens it via Load.
//
// Save never edits a.Path() in place: on any failure before the final
// rename, the original file is untouched and the temp file is left behind
// for the caller to sweep.
func (a *Archive) Save(opts ...Option) (*Archive, error) {
	o := applyOptions(opts)
	obs := o.observer
	ctx := o.ctx

	logging.Infof(ctx, "sbasset6: saving %q", a.path)
	obs.emit(Event{Name: "save.start", Target: a.path})

	tmpPath := a.path + ".tmp"
	sink, err := sbio.NewFileSink(tmpPath)
	if err != nil {
		logging.Errorf(ctx, "sbasset6: creating %q: %s", tmpPath, err)
		return nil, err
	}

	if err := a.writeArchive(sink, obs); err != nil {
		sink.Close()
		logging.Errorf(ctx, "sbasset6: writing %q: %s", tmpPath, err)
		return nil, err
	}

	if err := sink.Close(); err != nil {
		werr := errs.Wrap(errs.IOError, errors.Annotate(err).Reason("closing temp archive").Err())
		logging.Errorf(ctx, "sbasset6: closing %q: %s", tmpPath, werr)
		return nil, werr
	}

	// The archive's own stream (the backing for any FromArchive entries
	// just pumped) is only closed once the pump loop above has finished
	// reading from it, which permits saving an archive over itself.
	if a.stream != nil {
		if err := a.stream.Close(); err != nil {
			werr := errs.Wrap(errs.IOError, errors.Annotate(err).Reason("closing source archive stream").Err())
			logging.Errorf(ctx, "sbasset6: closing source stream of %q: %s", a.path, werr)
			return nil, werr
		}
		a.stream = nil
	}

	if err := os.Rename(tmpPath, a.path); err != nil {
		werr := errs.Wrap(errs.IOError, errors.Annotate(err).Reason("renaming %(tmp)q over %(path)q").D("tmp", tmpPath).D("path", a.path).Err())
		logging.Errorf(ctx, "sbasset6: %s", werr)
		return nil, werr
	}

	logging.Infof(ctx, "sbasset6: saved %q", a.path)
	obs.emit(Event{Name: "save.done"})

	if err := a.reload(opts...); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Archive) writeArchive(sink *sbio.FileSink, obs Observer) error {
	if _, err := sink.Write([]byte(Magic)); err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("writing magic").Err())
	}
	obs.emit(Event{Name: "save.header"})

	if _, err := sink.Write(make([]byte, 8)); err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("writing metatable pointer placeholder").Err())
	}

	pipeline := sbio.NewPipeline(sink)
	paths := a.table.List()
	obs.emit(Event{Name: "save.files", Total: len(paths)})

	// a.table.List() enumerates FileTable's keys, which are unique by
	// construction (Set/Delete maintain that), so there is no duplicate
	// check to make here; the wire format's own tolerance for duplicate
	// paths across entries is handled on the read side, in readMetatable.
	entries := make([]FileTableEntry, 0, len(paths))
	for i, path := range paths {
		src, _ := a.table.Source(path)
		pumpSrc, typeLabel, err := toPumpSource(src)
		if err != nil {
			return errors.Annotate(err).Reason("resolving entry %(path)q").D("path", path).Err()
		}

		off, wrote, err := pipeline.Pump(pumpSrc)
		if err != nil {
			return errors.Annotate(err).Reason("pumping entry %(path)q").D("path", path).Err()
		}
		entries = append(entries, FileTableEntry{Path: path, Offset: uint64(off), Length: uint64(wrote)})
		obs.emit(Event{Name: "save.file.progress", Target: path, Type: typeLabel, Index: i})
	}

	metaOff := sink.Position()
	metaBuf := sbio.NewMemSink()
	if _, err := metaBuf.Write([]byte(indexMarker)); err != nil {
		return err
	}
	// The metadata map is written without a leading type tag: a varint entry
	// count, then each (string key, dynamic value) pair in insertion order.
	err := sbon.WriteVarint(metaBuf, uint64(a.metadata.Len()))
	a.metadata.Range(func(key string, val sbon.Value) bool {
		if err == nil {
			err = sbon.WriteString(metaBuf, key)
		}
		if err == nil {
			err = sbon.WriteDynamic(metaBuf, val)
		}
		return err == nil
	})
	if err != nil {
		return errors.Annotate(err).Reason("writing metadata map").Err()
	}
	if err := sbon.WriteVarint(metaBuf, uint64(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := sbon.WriteString(metaBuf, e.Path); err != nil {
			return err
		}
		if _, err := metaBuf.Write(putBEUint64(e.Offset)); err != nil {
			return err
		}
		if _, err := metaBuf.Write(putBEUint64(e.Length)); err != nil {
			return err
		}
	}
	if _, err := sink.Write(metaBuf.Bytes()); err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("writing metatable").Err())
	}
	obs.emit(Event{Name: "save.metatable"})

	// Patch the header's metatable pointer before closing the sink; an
	// earlier draft closed first and patched after, which is the wrong
	// order for a file-backed sink using positional writes.
	if err := sink.Patch(putBEUint64(uint64(metaOff)), headerPointerOffset); err != nil {
		return err
	}

	return nil
}

const headerPointerOffset = 8

// toPumpSource converts one ContentSource into the sbio.Source shape
// Pipeline.Pump expects, plus a label for save.file.progress events.
func toPumpSource(src ContentSource) (sbio.Source, string, error) {
	switch s := src.(type) {
	case FromArchive:
		if s.Archive == nil || !s.Archive.IsLoaded() {
			return sbio.Source{}, "", errs.Wrap(errs.InvalidArgument, errors.New("FromArchive source has no open archive stream"))
		}
		return sbio.Source{
			File:   s.Archive.stream.File(),
			Window: &sbio.Window{Offset: int64(s.Offset), Length: int64(s.Length)},
		}, "FromArchive", nil

	case FromPath:
		off, length := windowOf(s.Offset, s.Length)
		return sbio.Source{Path: s.Path, Window: &sbio.Window{Offset: off, Length: length}}, "FromPath", nil

	case FromHandle:
		if s.File == nil {
			return sbio.Source{}, "", errs.Wrap(errs.InvalidArgument, errors.New("FromHandle source has a nil File"))
		}
		off, length := windowOf(s.Offset, s.Length)
		return sbio.Source{File: s.File, Window: &sbio.Window{Offset: off, Length: length}}, "FromHandle", nil

	case FromBuffer:
		return sbio.Source{Bytes: s.Data}, "FromBuffer", nil

	default:
		return sbio.Source{}, "", errs.Wrap(errs.InvalidArgument,
			errors.Reason("unrecognized content source shape %(t)T").D("t", src).Err())
	}
}

func windowOf(offset, length *uint64) (off int64, ln int64) {
	ln = -1
	if offset != nil {
		off = int64(*offset)
	}
	if length != nil {
		ln = int64(*length)
	}
	return off, ln
}
