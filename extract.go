// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/luci/luci-go/common/errors"
	"github.com/luci/luci-go/common/logging"
	"golang.org/x/sync/errgroup"

	"github.com/katanacrimson/SBAsset6/errs"
)

// ExtractAll resolves every entry in a's virtual file table and writes it
// to a file under root, recreating root's directory structure from each
// virtual path's "/"-separated components. root must not exist, or must be
// an empty directory.
//
// This has no equivalent operation name in spec.md; it supplements the
// format with the bulk-extraction convenience the original Starbound
// tooling offers, the way the teacher format's OpenedArchive.UnpackTo
// walks its table of contents. Unlike a tree-shaped table of contents,
// SBAsset6's virtual paths are flat keys, so there is no directory or
// symlink entry kind to special-case — every entry is a file.
func (a *Archive) ExtractAll(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, errors.Annotate(err).Reason("making root path absolute").Err())
	}
	if err := ensureExtractRoot(root); err != nil {
		return errors.Annotate(err).Reason("checking extraction root").Err()
	}

	paths := a.table.List()
	dirs := map[string]bool{root: true}

	g, _ := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		rel, err := virtualPathToRel(path)
		if err != nil {
			return errors.Annotate(err).Reason("virtual path %(path)q").D("path", path).Err()
		}
		abs := filepath.Join(root, rel)

		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := os.MkdirAll(dir, 0777); err != nil {
				return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("making directory %(dir)q").D("dir", dir).Err())
			}
			dirs[dir] = true
		}

		g.Go(func() error {
			b, err := a.table.Get(path)
			if err != nil {
				logging.Errorf(ctx, "resolving %q: %s", path, err)
				return err
			}
			if err := os.WriteFile(abs, b, 0666); err != nil {
				werr := errs.Wrap(errs.IOError, errors.Annotate(err).Reason("writing %(abs)q").D("abs", abs).Err())
				logging.Errorf(ctx, "writing %q: %s", path, werr)
				return werr
			}
			return nil
		})
	}

	return g.Wait()
}

func ensureExtractRoot(root string) error {
	st, err := os.Stat(root)
	if os.IsNotExist(err) {
		return os.MkdirAll(root, 0777)
	}
	if err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("statting %(root)q").D("root", root).Err())
	}
	if !st.IsDir() {
		return errs.Wrap(errs.InvalidArgument, errors.Reason("%(root)q exists and is not a directory").D("root", root).Err())
	}
	f, err := os.Open(root)
	if err != nil {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("opening %(root)q").D("root", root).Err())
	}
	defer f.Close()
	names, err := f.Readdirnames(1)
	if err != nil && err != io.EOF {
		return errs.Wrap(errs.IOError, errors.Annotate(err).Reason("reading %(root)q").D("root", root).Err())
	}
	if len(names) != 0 {
		return errs.Wrap(errs.InvalidArgument, errors.Reason("%(root)q is not empty").D("root", root).Err())
	}
	return nil
}

var badPathChars = regexp.MustCompile(`[<>:"\\|?*\x00-\x1f]`)

// virtualPathToRel validates each "/"-separated component of path and joins
// them into a host-relative path. Empty components, ".", ".." and control
// or reserved characters are rejected, the same way the teacher's
// toc.checkPathPiece guards its tree entries.
func virtualPathToRel(path string) (string, error) {
	pieces := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for _, p := range pieces {
		if p == "" {
			return "", errs.Wrap(errs.InvalidArgument, errors.New("empty path component"))
		}
		if p == "." || p == ".." {
			return "", errs.Wrap(errs.InvalidArgument,
				errors.Reason("path component %(p)q not allowed").D("p", p).Err())
		}
		if idx := badPathChars.FindStringIndex(p); idx != nil {
			return "", errs.Wrap(errs.InvalidArgument,
				errors.Reason("bad character in path component %(p)q").D("p", p).Err())
		}
	}
	return filepath.Join(pieces...), nil
}
