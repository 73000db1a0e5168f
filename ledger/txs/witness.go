// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/utils/wrappers"
)

var ErrUnknownWitnessKind = errors.New("unknown witness kind")

// WitnessKind must match the kind of the input the witness authorizes.
type WitnessKind byte

const (
	UtxoWitness WitnessKind = iota
	AccountWitness
	LegacyWitness
	// DelegationSignature and OwnerSignature tag the data signed for
	// certificates. They are never encoded as witnesses.
	DelegationSignature
	OwnerSignature
	// MultisigWitness authorizes an input drawn from a multisig account.
	MultisigWitness
)

func (k WitnessKind) String() string {
	switch k {
	case UtxoWitness:
		return "utxo"
	case AccountWitness:
		return "account"
	case LegacyWitness:
		return "legacy"
	case DelegationSignature:
		return "delegation"
	case OwnerSignature:
		return "owner"
	case MultisigWitness:
		return "multisig"
	default:
		return "unknown"
	}
}

// Witness authorizes one input of a transaction.
type Witness struct {
	Kind WitnessKind
	// PublicKey is only carried by legacy witnesses, whose address is the
	// digest of the key.
	PublicKey keys.PublicKey
	// Counter is only carried by account and multisig witnesses. It is the
	// spending counter stored in the account when the transaction is built.
	Counter   uint32
	Signature keys.Signature
	// Declaration and Signatures replace Signature in multisig witnesses.
	Declaration MultisigDeclaration
	Signatures  []IndexedSignature
}

// WitnessData is the message signed by a witness or a certificate
// signature:
//
//	kind || block0 hash || sign data hash [|| counter]
//
// Binding the block0 hash and the kind keeps a signature from being replayed
// on another chain or for another purpose. Account and multisig witnesses
// and delegation signatures also bind the spending counter of the account.
func WitnessData(kind WitnessKind, block0 ids.ID, signData ids.ID, counter uint32) []byte {
	withCounter := kind == AccountWitness || kind == MultisigWitness || kind == DelegationSignature
	size := wrappers.ByteLen + 2*wrappers.IDLen
	if withCounter {
		size += wrappers.IntLen
	}
	p := wrappers.NewWriter(size, size)
	p.PackByte(byte(kind))
	p.PackID(block0)
	p.PackID(signData)
	if withCounter {
		p.PackInt(counter)
	}
	return p.Bytes
}

func NewUtxoWitness(block0, signData ids.ID, sk *keys.PrivateKey) Witness {
	return Witness{
		Kind:      UtxoWitness,
		Signature: sk.Sign(WitnessData(UtxoWitness, block0, signData, 0)),
	}
}

func NewAccountWitness(block0, signData ids.ID, counter uint32, sk *keys.PrivateKey) Witness {
	return Witness{
		Kind:      AccountWitness,
		Counter:   counter,
		Signature: sk.Sign(WitnessData(AccountWitness, block0, signData, counter)),
	}
}

func NewLegacyWitness(block0, signData ids.ID, sk *keys.PrivateKey) Witness {
	return Witness{
		Kind:      LegacyWitness,
		PublicKey: sk.PublicKey(),
		Signature: sk.Sign(WitnessData(LegacyWitness, block0, signData, 0)),
	}
}

// Verify reports whether w is a signature by pk of the witness data of
// signData.
func (w Witness) Verify(pk keys.PublicKey, block0, signData ids.ID) bool {
	return pk.Verify(WitnessData(w.Kind, block0, signData, w.Counter), w.Signature)
}

func (w Witness) pack(p *wrappers.Packer) {
	p.PackByte(byte(w.Kind))
	switch w.Kind {
	case UtxoWitness:
	case AccountWitness:
		p.PackInt(w.Counter)
	case LegacyWitness:
		p.PackFixedBytes(w.PublicKey[:])
	case MultisigWitness:
		if len(w.Signatures) > MaxOwners {
			p.Add(fmt.Errorf("%w: %d", ErrTooManySignatures, len(w.Signatures)))
			return
		}
		p.PackInt(w.Counter)
		w.Declaration.pack(p)
		p.PackByte(byte(len(w.Signatures)))
		for _, sig := range w.Signatures {
			p.PackByte(sig.Index)
			p.PackFixedBytes(sig.Signature[:])
		}
		return
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownWitnessKind, w.Kind))
	}
	p.PackFixedBytes(w.Signature[:])
}

func unpackWitness(p *wrappers.Packer) Witness {
	w := Witness{Kind: WitnessKind(p.UnpackByte())}
	switch w.Kind {
	case UtxoWitness:
	case AccountWitness:
		w.Counter = p.UnpackInt()
	case LegacyWitness:
		p.UnpackInto(w.PublicKey[:])
	case MultisigWitness:
		w.Counter = p.UnpackInt()
		w.Declaration = unpackMultisigDeclaration(p)
		n := int(p.UnpackByte())
		if n > MaxOwners {
			p.Add(fmt.Errorf("%w: %d", ErrTooManySignatures, n))
			return w
		}
		w.Signatures = make([]IndexedSignature, n)
		for i := range w.Signatures {
			w.Signatures[i].Index = p.UnpackByte()
			p.UnpackInto(w.Signatures[i].Signature[:])
		}
		return w
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownWitnessKind, w.Kind))
	}
	p.UnpackInto(w.Signature[:])
	return w
}

// IndexedSignature is the signature of the owner at Index of a pool or of a
// multisig declaration.
type IndexedSignature struct {
	Index     uint8
	Signature keys.Signature
}
