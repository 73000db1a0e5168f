// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

var (
	ErrNotEnoughSignatures     = errors.New("not enough signatures")
	ErrDuplicateSignature      = errors.New("signer signed twice")
	ErrInvalidIndexedSignature = errors.New("invalid indexed signature")
	ErrInvalidMultisig         = errors.New("invalid multisig declaration")
	ErrMultisigMismatch        = errors.New("declaration does not match the multisig account")

	errTooManyMultisigOwners = fmt.Errorf("%w: more than %d owners", ErrInvalidMultisig, MaxOwners)
)

// MultisigDeclaration is the set of keys controlling a multisig account and
// how many of them must sign a withdrawal. The account is identified by the
// digest of its declaration, which the witnesses spending from it carry.
type MultisigDeclaration struct {
	Threshold uint8
	Owners    []keys.PublicKey
}

// Verify checks the declaration without any ledger state.
func (d MultisigDeclaration) Verify() error {
	switch {
	case len(d.Owners) == 0:
		return fmt.Errorf("%w: no owner", ErrInvalidMultisig)
	case len(d.Owners) > MaxOwners:
		return errTooManyMultisigOwners
	case d.Threshold == 0 || int(d.Threshold) > len(d.Owners):
		return fmt.Errorf("%w: threshold %d with %d owners", ErrInvalidMultisig, d.Threshold, len(d.Owners))
	}
	seen := make(map[keys.PublicKey]struct{}, len(d.Owners))
	for _, owner := range d.Owners {
		if _, ok := seen[owner]; ok {
			return fmt.Errorf("%w: owner %s declared twice", ErrInvalidMultisig, owner)
		}
		seen[owner] = struct{}{}
	}
	return nil
}

// ID is the identifier of the multisig account controlled by d.
func (d MultisigDeclaration) ID() ids.ID {
	size := 2*wrappers.ByteLen + len(d.Owners)*keys.PublicKeySize
	p := wrappers.NewWriter(size, size)
	d.pack(p)
	return hashing.ComputeID(p.Bytes)
}

func (d MultisigDeclaration) pack(p *wrappers.Packer) {
	if len(d.Owners) > MaxOwners {
		p.Add(errTooManyMultisigOwners)
		return
	}
	p.PackByte(d.Threshold)
	p.PackByte(byte(len(d.Owners)))
	for _, owner := range d.Owners {
		p.PackFixedBytes(owner[:])
	}
}

func unpackMultisigDeclaration(p *wrappers.Packer) MultisigDeclaration {
	d := MultisigDeclaration{Threshold: p.UnpackByte()}
	n := int(p.UnpackByte())
	if n > MaxOwners {
		p.Add(errTooManyMultisigOwners)
		return d
	}
	d.Owners = make([]keys.PublicKey, n)
	for i := range d.Owners {
		p.UnpackInto(d.Owners[i][:])
	}
	return d
}

// NewMultisigWitness authorizes an input drawn from the multisig account of
// d, whose stored spending counter is counter. Signers are the owners of d
// signing, by index.
func NewMultisigWitness(block0, signData ids.ID, counter uint32, d MultisigDeclaration, signers map[uint8]*keys.PrivateKey) Witness {
	data := WitnessData(MultisigWitness, block0, signData, counter)
	w := Witness{
		Kind:        MultisigWitness,
		Counter:     counter,
		Declaration: d,
	}
	for index := uint8(0); int(index) < len(d.Owners); index++ {
		if sk, ok := signers[index]; ok {
			w.Signatures = append(w.Signatures, IndexedSignature{
				Index:     index,
				Signature: sk.Sign(data),
			})
		}
	}
	return w
}

// VerifyMultisig checks that w authorizes a withdrawal from the multisig
// account id: its declaration must be valid and hash to id, and at least the
// threshold of distinct owners must have signed the witness data.
func (w Witness) VerifyMultisig(id, block0, signData ids.ID) error {
	if w.Kind != MultisigWitness {
		return fmt.Errorf("%w: %s witness", ErrInvalidIndexedSignature, w.Kind)
	}
	if err := w.Declaration.Verify(); err != nil {
		return err
	}
	if got := w.Declaration.ID(); got != id {
		return fmt.Errorf("%w: declaration of %s for account %s", ErrMultisigMismatch, got, id)
	}
	data := WitnessData(MultisigWitness, block0, signData, w.Counter)
	return VerifyThreshold(w.Declaration.Owners, int(w.Declaration.Threshold), w.Signatures, data)
}

// VerifyThreshold checks that sigs are valid signatures of data by at least
// threshold distinct signers.
func VerifyThreshold(signers []keys.PublicKey, threshold int, sigs []IndexedSignature, data []byte) error {
	if len(sigs) < threshold {
		return fmt.Errorf("%w: %d signatures, threshold is %d", ErrNotEnoughSignatures, len(sigs), threshold)
	}
	signed := make(map[uint8]struct{}, len(sigs))
	for _, sig := range sigs {
		if _, ok := signed[sig.Index]; ok {
			return fmt.Errorf("%w: signer %d", ErrDuplicateSignature, sig.Index)
		}
		signed[sig.Index] = struct{}{}
		if int(sig.Index) >= len(signers) {
			return fmt.Errorf("%w: signer index %d out of %d signers", ErrInvalidIndexedSignature, sig.Index, len(signers))
		}
		if !signers[sig.Index].Verify(data, sig.Signature) {
			return fmt.Errorf("%w: signer %d", ErrInvalidIndexedSignature, sig.Index)
		}
	}
	return nil
}
