// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package keys wraps the Ed25519 keys used by accounts, pool owners and BFT
// leaders.
package keys

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"
)

const (
	PublicKeySize = ed25519.PublicKeySize
	SignatureSize = ed25519.SignatureSize
	SeedSize      = ed25519.SeedSize
)

var (
	ErrInvalidSeedLength = errors.New("invalid seed length")
	ErrInvalidKeyLength  = errors.New("invalid public key length")
)

// PublicKey is an Ed25519 verification key.
type PublicKey [PublicKeySize]byte

// Signature is an Ed25519 signature.
type Signature [SignatureSize]byte

// PrivateKey is an Ed25519 signing key.
type PrivateKey struct {
	sk ed25519.PrivateKey
	pk PublicKey
}

// NewPrivateKeyFromSeed deterministically derives a key from a 32 byte seed.
func NewPrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes but got %d", ErrInvalidSeedLength, SeedSize, len(seed))
	}
	sk := ed25519.NewKeyFromSeed(seed)
	k := &PrivateKey{sk: sk}
	copy(k.pk[:], sk[SeedSize:])
	return k, nil
}

// NewPrivateKey generates a key from r, or from crypto/rand when r is nil.
func NewPrivateKey(r io.Reader) (*PrivateKey, error) {
	if r == nil {
		r = rand.Reader
	}
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, err
	}
	defer clear(seed)
	return NewPrivateKeyFromSeed(seed)
}

// PublicKey returns the verification key of k.
func (k *PrivateKey) PublicKey() PublicKey {
	return k.pk
}

// Sign signs msg.
func (k *PrivateKey) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.sk, msg))
	return sig
}

// Zero overwrites the secret key material. k must not be used afterwards.
func (k *PrivateKey) Zero() {
	clear(k.sk)
}

// Verify reports whether sig is a valid signature of msg by pk.
func (pk PublicKey) Verify(msg []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig[:])
}

// Compare orders public keys lexicographically.
func (pk PublicKey) Compare(other PublicKey) int {
	return bytes.Compare(pk[:], other[:])
}

func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// PublicKeyFromHex parses the hex form produced by String.
func PublicKeyFromHex(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, err
	}
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: expected %d bytes but got %d", ErrInvalidKeyLength, PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := PublicKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}
