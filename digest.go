// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import (
	"fmt"

	"github.com/luci/luci-go/common/errors"
	"github.com/opencontainers/go-digest"
	"golang.org/x/crypto/blake2b"

	"github.com/katanacrimson/SBAsset6/errs"
)

// DigestScheme selects the hash Archive.Digest uses. SBAsset6's wire format
// carries no checksum field of its own (unlike the teacher format's
// trailing checksum block); this is a purely additive integrity aid layered
// on top, never read from or written to the metatable.
type DigestScheme int

const (
	// DigestNone disables Archive.Digest.
	DigestNone DigestScheme = iota
	// DigestSHA256 hashes with SHA-256 via github.com/opencontainers/go-digest.
	DigestSHA256
	// DigestBLAKE2b hashes with BLAKE2b-256 via golang.org/x/crypto/blake2b.
	DigestBLAKE2b
)

// Digest resolves path's content source to bytes and hashes them using a's
// configured DigestScheme (see WithDigestScheme). Fails errs.InvalidArgument
// if no scheme was configured.
func (a *Archive) Digest(path string) (digest.Digest, error) {
	if a.opts.digest == DigestNone {
		return "", errs.Wrap(errs.InvalidArgument,
			errors.New("no DigestScheme configured; pass WithDigestScheme to Load/Save"))
	}

	b, err := a.table.Get(path)
	if err != nil {
		return "", err
	}

	switch a.opts.digest {
	case DigestSHA256:
		return digest.FromBytes(b), nil

	case DigestBLAKE2b:
		sum := blake2b.Sum256(b)
		return digest.Digest(fmt.Sprintf("blake2b-256:%x", sum)), nil

	default:
		return "", errs.Wrap(errs.InvalidArgument,
			errors.Reason("unknown digest scheme %(scheme)d").D("scheme", int(a.opts.digest)).Err())
	}
}
