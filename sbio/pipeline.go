// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbio

import (
	"io"
	"os"

	"github.com/luci/luci-go/common/errors"

	"github.com/katanacrimson/SBAsset6/errs"
)

// Window narrows a copy to [Offset, Offset+Length). A nil *Window means
// "copy the whole source"; a Window with Length < 0 means "copy from
// Offset to the source's end".
type Window struct {
	Offset int64
	Length int64 // -1 means "to EOF"
}

// Source is one of the content-source shapes a Pipeline can pump from: a
// byte block, an already-open file, or a host path it should open itself.
type Source struct {
	Bytes  []byte   // used when Path == "" and File == nil
	File   *os.File // used when non-nil and Path == ""
	Path   string   // used when non-empty; takes precedence over File and Bytes
	Window *Window
}

// Pipeline wraps a Sink and pumps bytes from a Source into it, reporting
// where the copy landed.
type Pipeline struct {
	Sink Sink
}

// NewPipeline wraps sink.
func NewPipeline(sink Sink) *Pipeline {
	return &Pipeline{Sink: sink}
}

// Pump copies src into the pipeline's sink and returns the offset the copy
// started at plus the number of bytes written. A source shorter than the
// requested window is an error; Pipeline never silently truncates.
func (p *Pipeline) Pump(src Source) (offset int64, wrote int64, err error) {
	start := p.Sink.Position()

	switch {
	case src.Path != "":
		f, openErr := os.Open(src.Path)
		if openErr != nil {
			return start, 0, errs.Wrap(errs.IOError, errors.Annotate(openErr).Reason("opening %(path)q").D("path", src.Path).Err())
		}
		defer f.Close()
		n, copyErr := pumpFile(p.Sink, f, src.Window)
		return start, n, copyErr

	case src.File != nil:
		n, copyErr := pumpFile(p.Sink, src.File, src.Window)
		return start, n, copyErr

	default:
		n, copyErr := pumpBytes(p.Sink, src.Bytes)
		return start, n, copyErr
	}
}

func pumpBytes(sink Sink, b []byte) (int64, error) {
	if _, err := sink.Write(b); err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

func pumpFile(sink Sink, f *os.File, win *Window) (int64, error) {
	var r io.Reader
	if win == nil {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return 0, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("seeking source to start").Err())
		}
		r = f
	} else {
		st, err := f.Stat()
		if err != nil {
			return 0, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("statting source").Err())
		}
		length := win.Length
		if length < 0 {
			length = st.Size() - win.Offset
		}
		if win.Offset < 0 || length < 0 || win.Offset+length > st.Size() {
			return 0, errs.Wrap(errs.InvalidArgument,
				errors.Reason("window [%(off)d,%(off)d+%(len)d) exceeds source size %(size)d").
					D("off", win.Offset).D("len", length).D("size", st.Size()).Err())
		}
		r = io.NewSectionReader(f, win.Offset, length)
	}

	n, err := io.Copy(&sinkWriter{sink}, r)
	if err != nil {
		return n, errs.Wrap(errs.IOError, errors.Annotate(err).Reason("pumping %(n)d bytes").D("n", n).Err())
	}
	if win != nil && win.Length >= 0 && n != win.Length {
		return n, errs.Wrap(errs.IOError,
			errors.Reason("short copy: wanted %(want)d bytes, got %(got)d").
				D("want", win.Length).D("got", n).Err())
	}
	return n, nil
}

// sinkWriter adapts a Sink to io.Writer so io.Copy can drive it.
type sinkWriter struct{ sink Sink }

func (w *sinkWriter) Write(b []byte) (int, error) {
	if _, err := w.sink.Write(b); err != nil {
		return 0, err
	}
	return len(b), nil
}
