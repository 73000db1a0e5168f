// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hashing computes the Blake2b-256 digests used as identifiers for
// fragments, headers, pools and update proposals.
package hashing

import (
	"golang.org/x/crypto/blake2b"

	"github.com/luxfi/ids"
)

// HashLen is the size of every digest produced by this package.
const HashLen = blake2b.Size256

// ComputeHash256Array returns the Blake2b-256 digest of the concatenation of
// the given byte slices.
func ComputeHash256Array(bufs ...[]byte) [HashLen]byte {
	h, _ := blake2b.New256(nil)
	for _, buf := range bufs {
		_, _ = h.Write(buf)
	}
	var out [HashLen]byte
	h.Sum(out[:0])
	return out
}

// ComputeHash256 is ComputeHash256Array returned as a slice.
func ComputeHash256(bufs ...[]byte) []byte {
	out := ComputeHash256Array(bufs...)
	return out[:]
}

// ComputeID returns the digest of bufs as an identifier.
func ComputeID(bufs ...[]byte) ids.ID {
	return ids.ID(ComputeHash256Array(bufs...))
}
