// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vrf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T, b byte) *SecretKey {
	sk, err := NewSecretKeyFromSeed(bytes.Repeat([]byte{b}, SeedSize))
	require.NoError(t, err)
	return sk
}

func TestEvaluateVerify(t *testing.T) {
	require := require.New(t)

	sk := newTestKey(t, 1)
	input := []byte("epoch nonce and slot")

	proof, err := sk.Evaluate(input)
	require.NoError(err)
	require.NoError(sk.PublicKey().Verify(input, proof))

	// evaluation is deterministic
	again, err := sk.Evaluate(input)
	require.NoError(err)
	require.Equal(proof, again)
}

func TestVerifyRejects(t *testing.T) {
	sk := newTestKey(t, 1)
	other := newTestKey(t, 2)
	input := []byte("input")
	proof, err := sk.Evaluate(input)
	require.NoError(t, err)

	tests := []struct {
		name        string
		pk          PublicKey
		input       []byte
		proof       func() Proof
		expectedErr error
	}{
		{
			name:        "wrong input",
			pk:          sk.PublicKey(),
			input:       []byte("other input"),
			proof:       func() Proof { return proof },
			expectedErr: ErrInvalidProof,
		},
		{
			name:        "wrong key",
			pk:          other.PublicKey(),
			input:       input,
			proof:       func() Proof { return proof },
			expectedErr: ErrInvalidProof,
		},
		{
			name:  "tampered response",
			pk:    sk.PublicKey(),
			input: input,
			proof: func() Proof {
				p := proof
				p[ProofSize-1] ^= 0x01
				return p
			},
			expectedErr: ErrInvalidProof,
		},
		{
			name:  "tampered gamma",
			pk:    sk.PublicKey(),
			input: input,
			proof: func() Proof {
				p := proof
				p[0] ^= 0xff
				return p
			},
			expectedErr: ErrInvalidProof,
		},
		{
			name:        "identity public key",
			pk:          PublicKey{},
			input:       input,
			proof:       func() Proof { return proof },
			expectedErr: ErrInvalidPublicKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			err := tt.pk.Verify(tt.input, tt.proof())
			require.ErrorIs(err, tt.expectedErr)
		})
	}
}

func TestOutputDomains(t *testing.T) {
	require := require.New(t)

	sk := newTestKey(t, 3)
	input := []byte("input")
	proof, err := sk.Evaluate(input)
	require.NoError(err)

	a := proof.Output(input, []byte("TEST"))
	b := proof.Output(input, []byte("NONCE"))
	require.NotEqual(a, b)
	require.Equal(a, proof.Output(input, []byte("TEST")))

	other, err := newTestKey(t, 4).Evaluate(input)
	require.NoError(err)
	require.NotEqual(a, other.Output(input, []byte("TEST")))
}

func TestInvalidSeed(t *testing.T) {
	_, err := NewSecretKeyFromSeed([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidSeedLength)
}
