// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
)

// Builder authorizes a transaction whose certificate, inputs and outputs are
// fixed, then encodes it.
type Builder struct {
	tx       Transaction
	block0   ids.ID
	signData ids.ID
}

// NewBuilder freezes the signed part of a transaction. cert may be nil.
func NewBuilder(block0 ids.ID, cert Certificate, inputs []Input, outputs []Output) (*Builder, error) {
	b := &Builder{
		tx: Transaction{
			Certificate: cert,
			Inputs:      inputs,
			Outputs:     outputs,
		},
		block0: block0,
	}
	signData, err := b.tx.SignDataHash()
	if err != nil {
		return nil, err
	}
	b.signData = signData
	return b, nil
}

// SignDataHash is what every witness of the transaction commits to.
func (b *Builder) SignDataHash() ids.ID {
	return b.signData
}

// AddUtxoWitness authorizes the next input, an output of sk.
func (b *Builder) AddUtxoWitness(sk *keys.PrivateKey) *Builder {
	b.tx.Witnesses = append(b.tx.Witnesses, NewUtxoWitness(b.block0, b.signData, sk))
	return b
}

// AddAccountWitness authorizes the next input, drawn from the account of sk
// whose stored spending counter is counter.
func (b *Builder) AddAccountWitness(sk *keys.PrivateKey, counter uint32) *Builder {
	b.tx.Witnesses = append(b.tx.Witnesses, NewAccountWitness(b.block0, b.signData, counter, sk))
	return b
}

// AddLegacyWitness authorizes the next input, a legacy output of sk.
func (b *Builder) AddLegacyWitness(sk *keys.PrivateKey) *Builder {
	b.tx.Witnesses = append(b.tx.Witnesses, NewLegacyWitness(b.block0, b.signData, sk))
	return b
}

// AddMultisigWitness authorizes the next input, drawn from the multisig
// account of d whose stored spending counter is counter, with the owners of
// d in signers.
func (b *Builder) AddMultisigWitness(d MultisigDeclaration, counter uint32, signers map[uint8]*keys.PrivateKey) *Builder {
	b.tx.Witnesses = append(b.tx.Witnesses, NewMultisigWitness(b.block0, b.signData, counter, d, signers))
	return b
}

// SignAccount authorizes a StakeDelegation with the delegating account key.
// counter is the spending counter stored in the account before the
// transaction, whatever inputs the transaction draws from it.
func (b *Builder) SignAccount(sk *keys.PrivateKey, counter uint32) *Builder {
	b.tx.AccountSignature = sk.Sign(WitnessData(DelegationSignature, b.block0, b.signData, counter))
	return b
}

// SignOwner adds the signature of the pool owner at index.
func (b *Builder) SignOwner(index uint8, sk *keys.PrivateKey) *Builder {
	b.tx.OwnerSignatures = append(b.tx.OwnerSignatures, IndexedSignature{
		Index:     index,
		Signature: sk.Sign(WitnessData(OwnerSignature, b.block0, b.signData, 0)),
	})
	return b
}

// Transaction returns the transaction built so far.
func (b *Builder) Transaction() *Transaction {
	tx := b.tx
	return &tx
}

// Build encodes the transaction as a fragment.
func (b *Builder) Build() (*Fragment, error) {
	return NewFragment(b.Transaction())
}
