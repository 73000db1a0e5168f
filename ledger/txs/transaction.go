// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/txs/fee"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

var (
	_ fee.Shape = (*Transaction)(nil)

	ErrTooManyInputs      = errors.New("too many inputs")
	ErrTooManyOutputs     = errors.New("too many outputs")
	ErrTooManySignatures  = errors.New("too many signatures")
	ErrWitnessCount       = errors.New("number of witnesses does not match number of inputs")
	ErrUnexpectedTag      = errors.New("certificate does not match fragment tag")
	ErrUnexpectedCertAuth = errors.New("unexpected certificate authorization")
)

// authKind is how a certificate is authorized, on top of the witnesses of
// the inputs.
type authKind byte

const (
	noAuth authKind = iota
	// the delegating account signs the sign data hash
	accountAuth
	// a threshold of pool owners sign the sign data hash
	ownersAuth
)

func certificateAuth(c Certificate) authKind {
	switch c.(type) {
	case *StakeDelegation:
		return accountAuth
	case *PoolRegistration, *PoolRetirement, *PoolUpdate:
		return ownersAuth
	default:
		return noAuth
	}
}

// Transaction moves value from inputs to outputs and optionally carries a
// certificate. Whatever the inputs hold beyond the outputs is the fee.
type Transaction struct {
	// Certificate is nil for a plain value transfer.
	Certificate Certificate
	Inputs      []Input
	Outputs     []Output
	// Witnesses[i] authorizes Inputs[i].
	Witnesses []Witness
	// AccountSignature authorizes a StakeDelegation.
	AccountSignature keys.Signature
	// OwnerSignatures authorize pool registrations, retirements and updates.
	OwnerSignatures []IndexedSignature
}

func (tx *Transaction) Tag() Tag {
	if tx.Certificate == nil {
		return TagTransaction
	}
	return tx.Certificate.Tag()
}

func (tx *Transaction) Visit(visitor Visitor) error {
	return visitor.Transaction(tx)
}

func (tx *Transaction) NumInputs() int {
	return len(tx.Inputs)
}

func (tx *Transaction) NumOutputs() int {
	return len(tx.Outputs)
}

func (tx *Transaction) HasCertificate() bool {
	return tx.Certificate != nil
}

// SignDataHash is the digest of everything witnesses and certificate
// authorizations commit to: the tag, the certificate, the inputs and the
// outputs.
func (tx *Transaction) SignDataHash() (ids.ID, error) {
	p := wrappers.NewWriter(256, maxFragmentSize)
	p.PackByte(byte(tx.Tag()))
	tx.packSignData(p)
	if p.Errored() {
		return ids.Empty, p.Err
	}
	return hashing.ComputeID(p.Bytes), nil
}

func (tx *Transaction) packSignData(p *wrappers.Packer) {
	if len(tx.Inputs) > math.MaxUint8 {
		p.Add(fmt.Errorf("%w: %d", ErrTooManyInputs, len(tx.Inputs)))
		return
	}
	if len(tx.Outputs) > math.MaxUint8 {
		p.Add(fmt.Errorf("%w: %d", ErrTooManyOutputs, len(tx.Outputs)))
		return
	}
	if tx.Certificate != nil {
		tx.Certificate.pack(p)
	}
	p.PackByte(byte(len(tx.Inputs)))
	p.PackByte(byte(len(tx.Outputs)))
	for _, in := range tx.Inputs {
		in.pack(p)
	}
	for _, out := range tx.Outputs {
		out.pack(p)
	}
}

func (tx *Transaction) pack(p *wrappers.Packer) {
	if len(tx.Witnesses) != len(tx.Inputs) {
		p.Add(fmt.Errorf("%w: %d witnesses for %d inputs", ErrWitnessCount, len(tx.Witnesses), len(tx.Inputs)))
		return
	}
	tx.packSignData(p)
	for _, w := range tx.Witnesses {
		w.pack(p)
	}

	var auth authKind
	if tx.Certificate != nil {
		auth = certificateAuth(tx.Certificate)
	}
	switch auth {
	case accountAuth:
		p.PackFixedBytes(tx.AccountSignature[:])
	case ownersAuth:
		if len(tx.OwnerSignatures) > math.MaxUint8 {
			p.Add(fmt.Errorf("%w: %d", ErrTooManySignatures, len(tx.OwnerSignatures)))
			return
		}
		p.PackByte(byte(len(tx.OwnerSignatures)))
		for _, sig := range tx.OwnerSignatures {
			p.PackByte(sig.Index)
			p.PackFixedBytes(sig.Signature[:])
		}
	default:
		if len(tx.OwnerSignatures) != 0 || tx.AccountSignature != (keys.Signature{}) {
			p.Add(ErrUnexpectedCertAuth)
		}
	}
}

func unpackTransaction(p *wrappers.Packer, tag Tag) *Transaction {
	tx := &Transaction{}
	switch tag {
	case TagTransaction:
	case TagOwnerStakeDelegation:
		tx.Certificate = unpackOwnerStakeDelegation(p)
	case TagStakeDelegation:
		tx.Certificate = unpackStakeDelegation(p)
	case TagPoolRegistration:
		tx.Certificate = unpackPoolRegistration(p)
	case TagPoolRetirement:
		tx.Certificate = unpackPoolRetirement(p)
	case TagPoolUpdate:
		tx.Certificate = unpackPoolUpdate(p)
	default:
		p.Add(fmt.Errorf("%w: %s", ErrUnexpectedTag, tag))
		return nil
	}

	numInputs := p.UnpackByte()
	numOutputs := p.UnpackByte()
	tx.Inputs = make([]Input, numInputs)
	for i := range tx.Inputs {
		tx.Inputs[i] = unpackInput(p)
	}
	tx.Outputs = make([]Output, numOutputs)
	for i := range tx.Outputs {
		tx.Outputs[i] = unpackOutput(p)
	}
	tx.Witnesses = make([]Witness, numInputs)
	for i := range tx.Witnesses {
		tx.Witnesses[i] = unpackWitness(p)
	}

	if tx.Certificate == nil {
		return tx
	}
	switch certificateAuth(tx.Certificate) {
	case accountAuth:
		p.UnpackInto(tx.AccountSignature[:])
	case ownersAuth:
		tx.OwnerSignatures = make([]IndexedSignature, p.UnpackByte())
		for i := range tx.OwnerSignatures {
			tx.OwnerSignatures[i].Index = p.UnpackByte()
			p.UnpackInto(tx.OwnerSignatures[i].Signature[:])
		}
	}
	return tx
}
