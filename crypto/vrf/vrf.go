// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vrf implements a 2HashDH verifiable random function over the
// ristretto255 group.
//
// For a secret scalar x with public key X = x*G and an input m, the evaluator
// computes H = hash_to_group(m) and Gamma = x*H, then proves that
// log_G(X) == log_H(Gamma) with a Chaum-Pedersen proof (c, s). The random
// output is a hash of Gamma, so anyone holding a valid proof can recompute it.
package vrf

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/group"

	"github.com/luxfi/praos/utils/hashing"
)

const (
	PublicKeySize = 32
	SeedSize      = 32
	ScalarSize    = 32
	ProofSize     = PublicKeySize + 2*ScalarSize
	OutputSize    = hashing.HashLen
)

var (
	dstKey       = []byte("praos-vrf-v1-keygen")
	dstInput     = []byte("praos-vrf-v1-input")
	dstNonce     = []byte("praos-vrf-v1-nonce")
	dstChallenge = []byte("praos-vrf-v1-challenge")
	dstOutput    = []byte("praos-vrf-v1-output")

	g = group.Ristretto255

	ErrInvalidSeedLength = errors.New("invalid seed length")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidProof      = errors.New("invalid proof encoding")
)

// PublicKey is the compressed encoding of X = x*G.
type PublicKey [PublicKeySize]byte

// Proof is Gamma || c || s.
type Proof [ProofSize]byte

// Output is the verified pseudo random output of an evaluation.
type Output [OutputSize]byte

// SecretKey is the VRF evaluation key.
type SecretKey struct {
	x  group.Scalar
	pk PublicKey
}

// NewSecretKeyFromSeed derives a secret key from 32 bytes of seed material.
func NewSecretKeyFromSeed(seed []byte) (*SecretKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: expected %d bytes but got %d", ErrInvalidSeedLength, SeedSize, len(seed))
	}
	x := g.HashToScalar(seed, dstKey)
	pkBytes, err := g.NewElement().MulGen(x).MarshalBinaryCompress()
	if err != nil {
		return nil, err
	}
	sk := &SecretKey{x: x}
	copy(sk.pk[:], pkBytes)
	return sk, nil
}

// PublicKey returns the verification key of sk.
func (sk *SecretKey) PublicKey() PublicKey {
	return sk.pk
}

// Zero overwrites the secret scalar. sk must not be used afterwards.
func (sk *SecretKey) Zero() {
	sk.x.SetUint64(0)
}

// Evaluate computes the proof of the evaluation of sk on input. The nonce is
// derived from the secret and the input, so evaluation is deterministic.
func (sk *SecretKey) Evaluate(input []byte) (Proof, error) {
	var proof Proof

	h := g.HashToElement(input, dstInput)
	gamma := g.NewElement().Mul(h, sk.x)

	xBytes, err := sk.x.MarshalBinary()
	if err != nil {
		return proof, err
	}
	hBytes, err := h.MarshalBinaryCompress()
	if err != nil {
		return proof, err
	}
	k := g.HashToScalar(append(xBytes, hBytes...), dstNonce)
	clear(xBytes)

	a := g.NewElement().MulGen(k)
	b := g.NewElement().Mul(h, k)
	c, err := challenge(sk.pk[:], h, gamma, a, b)
	if err != nil {
		return proof, err
	}

	// s = k - c*x
	s := g.NewScalar().Mul(c, sk.x)
	s.Sub(k, s)
	k.SetUint64(0)

	gammaBytes, err := gamma.MarshalBinaryCompress()
	if err != nil {
		return proof, err
	}
	cBytes, err := c.MarshalBinary()
	if err != nil {
		return proof, err
	}
	sBytes, err := s.MarshalBinary()
	if err != nil {
		return proof, err
	}
	copy(proof[:PublicKeySize], gammaBytes)
	copy(proof[PublicKeySize:PublicKeySize+ScalarSize], cBytes)
	copy(proof[PublicKeySize+ScalarSize:], sBytes)
	return proof, nil
}

// Verify checks that proof is a valid evaluation of the secret key behind pk
// on input.
func (pk PublicKey) Verify(input []byte, proof Proof) error {
	x := g.NewElement()
	if err := x.UnmarshalBinary(pk[:]); err != nil || x.IsIdentity() {
		return ErrInvalidPublicKey
	}
	gamma, c, s, err := proof.parse()
	if err != nil {
		return err
	}

	h := g.HashToElement(input, dstInput)

	// a = s*G + c*X
	a := g.NewElement().MulGen(s)
	a.Add(a, g.NewElement().Mul(x, c))
	// b = s*H + c*Gamma
	b := g.NewElement().Mul(h, s)
	b.Add(b, g.NewElement().Mul(gamma, c))

	expected, err := challenge(pk[:], h, gamma, a, b)
	if err != nil {
		return err
	}
	if !expected.IsEqual(c) {
		return ErrInvalidProof
	}
	return nil
}

// Output derives the random output of proof for a given domain. The output is
// only meaningful once the proof has been verified against its input.
func (p Proof) Output(input, domain []byte) Output {
	return Output(hashing.ComputeHash256Array(dstOutput, p[:PublicKeySize], input, domain))
}

func (p Proof) parse() (group.Element, group.Scalar, group.Scalar, error) {
	gamma := g.NewElement()
	if err := gamma.UnmarshalBinary(p[:PublicKeySize]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: gamma: %w", ErrInvalidProof, err)
	}
	c := g.NewScalar()
	if err := c.UnmarshalBinary(p[PublicKeySize : PublicKeySize+ScalarSize]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: challenge: %w", ErrInvalidProof, err)
	}
	s := g.NewScalar()
	if err := s.UnmarshalBinary(p[PublicKeySize+ScalarSize:]); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: response: %w", ErrInvalidProof, err)
	}
	return gamma, c, s, nil
}

func challenge(pk []byte, elements ...group.Element) (group.Scalar, error) {
	transcript := make([]byte, 0, PublicKeySize*(len(elements)+1))
	transcript = append(transcript, pk...)
	for _, e := range elements {
		b, err := e.MarshalBinaryCompress()
		if err != nil {
			return nil, err
		}
		transcript = append(transcript, b...)
	}
	return g.HashToScalar(transcript, dstChallenge), nil
}
