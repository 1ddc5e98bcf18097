// Copyright 2016 The SBAsset6 Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sbon implements the SBON ("Starbound Object Notation") codec: the
// variable-length integer encodings, length-prefixed byte/string blocks, and
// the dynamically typed value tree used for SBAsset6's metadata map and
// virtual-path strings. Every read/write operation here is layered on a
// github.com/katanacrimson/SBAsset6/sbio Stream or Sink.
package sbon
