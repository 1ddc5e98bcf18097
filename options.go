// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sbasset6

import (
	"context"

	"github.com/katanacrimson/SBAsset6/sbio/sbon"
)

type optionData struct {
	ctx      context.Context
	observer Observer
	maxDepth int
	digest   DigestScheme
}

func defaultOptions() optionData {
	return optionData{
		ctx:      context.Background(),
		maxDepth: sbon.DefaultMaxDepth,
		digest:   DigestNone,
	}
}

// Option configures Load, Save, or Close. The same Option type threads
// through all three the way the teacher's CreateOption/OpenOption do for
// Create/Open — there is no config file or environment variable to read
// instead.
type Option func(*optionData)

// WithContext supplies the context.Context progress logging is issued
// against. Defaults to context.Background().
func WithContext(ctx context.Context) Option {
	return func(o *optionData) { o.ctx = ctx }
}

// WithObserver registers an Observer to receive Events during the call.
func WithObserver(obs Observer) Option {
	return func(o *optionData) { o.observer = obs }
}

// WithMaxDepth overrides the SBON decoder's recursion-depth limit used
// while parsing the metadata map. Defaults to sbon.DefaultMaxDepth (64).
func WithMaxDepth(n int) Option {
	return func(o *optionData) { o.maxDepth = n }
}

// WithDigestScheme selects the scheme Archive.Digest uses to hash a
// resolved entry's bytes. Defaults to DigestNone (Digest returns
// errs.InvalidArgument until a scheme is set).
func WithDigestScheme(scheme DigestScheme) Option {
	return func(o *optionData) { o.digest = scheme }
}

func applyOptions(opts []Option) optionData {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
