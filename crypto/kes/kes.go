// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kes implements key evolving signatures by binary sum composition of
// Ed25519 keys.
//
// A key of depth d is a complete binary tree with 2^d Ed25519 leaves, one per
// period. An inner node's public key is the hash of its two children's public
// keys. The secret key only keeps the current leaf, the seeds of the right
// subtrees that are still ahead of it and the public keys along the path, so
// evolving discards every leaf of the past for good.
package kes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

const (
	PublicKeySize = hashing.HashLen
	SeedSize      = keys.SeedSize
	// MaxDepth bounds key generation, which is linear in the number of periods.
	MaxDepth = 16
)

var (
	ErrInvalidSeedLength  = errors.New("invalid seed length")
	ErrInvalidDepth       = errors.New("invalid depth")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrPeriodOutOfRange   = errors.New("period out of range")
	ErrMalformedSignature = errors.New("malformed signature")
)

// EvolvingStatus reports the outcome of Evolve.
type EvolvingStatus int

const (
	Success EvolvingStatus = iota
	Failed
)

func (s EvolvingStatus) String() string {
	switch s {
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PublicKey is the root of the key tree.
type PublicKey [PublicKeySize]byte

// SecretKey is the signing key for its current period.
type SecretKey struct {
	depth  uint8
	period uint32
	leaf   *keys.PrivateKey
	// For every height h below depth, siblings[h] is the public key of the
	// other child at that height and seeds[h] is the seed of the right child,
	// still needed only while the current leaf is in the left half.
	siblings []PublicKey
	seeds    [][SeedSize]byte
}

// TotalPeriods returns the number of periods of a key of the given depth.
func TotalPeriods(depth uint8) uint32 {
	return 1 << depth
}

// NewSecretKeyFromSeed builds the key at period 0 and returns it with its
// public key.
func NewSecretKeyFromSeed(seed []byte, depth uint8) (*SecretKey, PublicKey, error) {
	if len(seed) != SeedSize {
		return nil, PublicKey{}, fmt.Errorf("%w: expected %d bytes but got %d", ErrInvalidSeedLength, SeedSize, len(seed))
	}
	if depth > MaxDepth {
		return nil, PublicKey{}, fmt.Errorf("%w: %d > %d", ErrInvalidDepth, depth, MaxDepth)
	}
	var s [SeedSize]byte
	copy(s[:], seed)
	sk := &SecretKey{
		depth:    depth,
		siblings: make([]PublicKey, depth),
		seeds:    make([][SeedSize]byte, depth),
	}
	leaf, pk, err := generate(s, depth, sk.siblings, sk.seeds)
	clear(s[:])
	if err != nil {
		return nil, PublicKey{}, err
	}
	sk.leaf = leaf
	return sk, pk, nil
}

// generate builds the leftmost path of the tree rooted at seed, filling
// siblings and seeds up to depth, and returns the leftmost leaf and the root.
func generate(seed [SeedSize]byte, depth uint8, siblings []PublicKey, seeds [][SeedSize]byte) (*keys.PrivateKey, PublicKey, error) {
	if depth == 0 {
		leaf, err := keys.NewPrivateKeyFromSeed(seed[:])
		if err != nil {
			return nil, PublicKey{}, err
		}
		return leaf, PublicKey(leaf.PublicKey()), nil
	}

	left, right := split(seed)
	leaf, leftPK, err := generate(left, depth-1, siblings, seeds)
	clear(left[:])
	if err != nil {
		return nil, PublicKey{}, err
	}
	rightPK, err := publicKey(right, depth-1)
	if err != nil {
		return nil, PublicKey{}, err
	}
	siblings[depth-1] = rightPK
	seeds[depth-1] = right
	return leaf, combine(leftPK, rightPK), nil
}

// publicKey computes the root of the tree rooted at seed without keeping any
// secret material.
func publicKey(seed [SeedSize]byte, depth uint8) (PublicKey, error) {
	if depth == 0 {
		leaf, err := keys.NewPrivateKeyFromSeed(seed[:])
		if err != nil {
			return PublicKey{}, err
		}
		defer leaf.Zero()
		return PublicKey(leaf.PublicKey()), nil
	}
	left, right := split(seed)
	defer clear(left[:])
	defer clear(right[:])
	leftPK, err := publicKey(left, depth-1)
	if err != nil {
		return PublicKey{}, err
	}
	rightPK, err := publicKey(right, depth-1)
	if err != nil {
		return PublicKey{}, err
	}
	return combine(leftPK, rightPK), nil
}

func split(seed [SeedSize]byte) ([SeedSize]byte, [SeedSize]byte) {
	return hashing.ComputeHash256Array([]byte{1}, seed[:]),
		hashing.ComputeHash256Array([]byte{2}, seed[:])
}

func combine(left, right PublicKey) PublicKey {
	return hashing.ComputeHash256Array(left[:], right[:])
}

func (sk *SecretKey) Depth() uint8 {
	return sk.depth
}

func (sk *SecretKey) Period() uint32 {
	return sk.period
}

// Evolve consumes sk and returns the key of the next period. The material of
// sk is zeroed in every case. Once the last period has been reached Evolve
// returns nil and Failed; the pool then needs a fresh key.
func Evolve(sk *SecretKey) (*SecretKey, EvolvingStatus) {
	defer sk.Zero()

	next := sk.period + 1
	if next >= TotalPeriods(sk.depth) {
		return nil, Failed
	}

	evolved := &SecretKey{
		depth:    sk.depth,
		period:   next,
		siblings: make([]PublicKey, sk.depth),
		seeds:    make([][SeedSize]byte, sk.depth),
	}
	copy(evolved.siblings, sk.siblings)
	copy(evolved.seeds, sk.seeds)

	// The lowest zero bit of the old period is the height at which the path
	// moves from a left child to a right child. Everything below it is
	// regenerated from the stored right seed.
	h := uint8(bits.TrailingZeros32(^sk.period))
	seed := evolved.seeds[h]
	clear(evolved.seeds[h][:])

	leaf, _, err := generate(seed, h, evolved.siblings, evolved.seeds)
	clear(seed[:])
	if err != nil {
		evolved.Zero()
		return nil, Failed
	}
	evolved.leaf = leaf
	// The left child, which the path just left, becomes the sibling.
	evolved.siblings[h] = sk.root(h)
	return evolved, Success
}

// root recomputes the public key of the subtree of height h containing the
// current leaf.
func (sk *SecretKey) root(h uint8) PublicKey {
	pk := PublicKey(sk.leaf.PublicKey())
	for i := uint8(0); i < h; i++ {
		if sk.period>>i&1 == 0 {
			pk = combine(pk, sk.siblings[i])
		} else {
			pk = combine(sk.siblings[i], pk)
		}
	}
	return pk
}

// PublicKey recomputes the root public key.
func (sk *SecretKey) PublicKey() PublicKey {
	return sk.root(sk.depth)
}

// Zero overwrites every secret held by sk.
func (sk *SecretKey) Zero() {
	if sk.leaf != nil {
		sk.leaf.Zero()
		sk.leaf = nil
	}
	for i := range sk.seeds {
		clear(sk.seeds[i][:])
	}
}

// Sign signs msg with the leaf of the current period.
func (sk *SecretKey) Sign(msg []byte) Signature {
	siblings := make([]PublicKey, len(sk.siblings))
	copy(siblings, sk.siblings)
	return Signature{
		Period:   sk.period,
		LeafKey:  sk.leaf.PublicKey(),
		LeafSig:  sk.leaf.Sign(msg),
		Siblings: siblings,
	}
}

// Signature is a leaf signature together with the authentication path from
// the leaf to the root.
type Signature struct {
	Period   uint32
	LeafKey  keys.PublicKey
	LeafSig  keys.Signature
	Siblings []PublicKey
}

// SignatureSize returns the encoded size of a signature of a depth d key.
func SignatureSize(depth uint8) int {
	return wrappers.ByteLen + wrappers.IntLen + keys.PublicKeySize + keys.SignatureSize + int(depth)*PublicKeySize
}

// Bytes encodes the signature as depth || period || leaf key || leaf
// signature || siblings.
func (s Signature) Bytes() []byte {
	depth := uint8(len(s.Siblings))
	b := make([]byte, 0, SignatureSize(depth))
	b = append(b, depth)
	b = binary.BigEndian.AppendUint32(b, s.Period)
	b = append(b, s.LeafKey[:]...)
	b = append(b, s.LeafSig[:]...)
	for _, sibling := range s.Siblings {
		b = append(b, sibling[:]...)
	}
	return b
}

// ParseSignature decodes a signature produced by Bytes.
func ParseSignature(b []byte) (Signature, error) {
	var s Signature
	if len(b) == 0 {
		return s, ErrMalformedSignature
	}
	depth := b[0]
	if depth > MaxDepth || len(b) != SignatureSize(depth) {
		return s, fmt.Errorf("%w: %d bytes for depth %d", ErrMalformedSignature, len(b), depth)
	}
	p := wrappers.NewReader(b[wrappers.ByteLen:])
	s.Period = p.UnpackInt()
	p.UnpackInto(s.LeafKey[:])
	p.UnpackInto(s.LeafSig[:])
	s.Siblings = make([]PublicKey, depth)
	for i := range s.Siblings {
		p.UnpackInto(s.Siblings[i][:])
	}
	if err := p.Done(); err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	return s, nil
}

// Verify checks that sig is a signature of msg by the key rooted at pk, made
// during sig.Period.
func (pk PublicKey) Verify(msg []byte, sig Signature) error {
	depth := uint8(len(sig.Siblings))
	if depth > MaxDepth || sig.Period >= TotalPeriods(depth) {
		return fmt.Errorf("%w: period %d at depth %d", ErrPeriodOutOfRange, sig.Period, depth)
	}
	if !sig.LeafKey.Verify(msg, sig.LeafSig) {
		return ErrInvalidSignature
	}
	root := PublicKey(sig.LeafKey)
	for h, sibling := range sig.Siblings {
		if sig.Period>>h&1 == 0 {
			root = combine(root, sibling)
		} else {
			root = combine(sibling, root)
		}
	}
	if root != pk {
		return ErrInvalidSignature
	}
	return nil
}

func (pk PublicKey) String() string {
	return fmt.Sprintf("%x", pk[:])
}
