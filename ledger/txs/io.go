// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

var ErrUnknownInputKind = errors.New("unknown input kind")

// OutputRef identifies an output of a fragment.
type OutputRef struct {
	TransactionID ids.ID
	Index         uint8
}

// Compare orders references by transaction then index.
func (r OutputRef) Compare(other OutputRef) int {
	if c := r.TransactionID.Compare(other.TransactionID); c != 0 {
		return c
	}
	return int(r.Index) - int(other.Index)
}

func (r OutputRef) String() string {
	return fmt.Sprintf("%s:%d", r.TransactionID, r.Index)
}

// UtxoPointer is an OutputRef with the value the spender claims it holds.
type UtxoPointer struct {
	OutputRef
	Value value.Value
}

// InputKind tells whether an input spends an unspent output or draws from an
// account.
type InputKind byte

const (
	UtxoInput InputKind = iota
	AccountInput
	MultisigInput
)

func (k InputKind) String() string {
	switch k {
	case UtxoInput:
		return "utxo"
	case AccountInput:
		return "account"
	case MultisigInput:
		return "multisig"
	default:
		return "unknown"
	}
}

// Input is a source of value of a transaction.
type Input struct {
	Kind  InputKind
	Value value.Value
	// Pointer is set for UtxoInput.
	Pointer OutputRef
	// Account is set for AccountInput.
	Account keys.PublicKey
	// Multisig is set for MultisigInput.
	Multisig ids.ID
}

func NewUtxoInput(ptr UtxoPointer) Input {
	return Input{
		Kind:    UtxoInput,
		Value:   ptr.Value,
		Pointer: ptr.OutputRef,
	}
}

func NewAccountInput(account keys.PublicKey, v value.Value) Input {
	return Input{
		Kind:    AccountInput,
		Value:   v,
		Account: account,
	}
}

func NewMultisigInput(account ids.ID, v value.Value) Input {
	return Input{
		Kind:     MultisigInput,
		Value:    v,
		Multisig: account,
	}
}

// UtxoPointer returns the pointer spent by a UtxoInput.
func (in Input) UtxoPointer() UtxoPointer {
	return UtxoPointer{OutputRef: in.Pointer, Value: in.Value}
}

func (in Input) pack(p *wrappers.Packer) {
	p.PackByte(byte(in.Kind))
	p.PackLong(uint64(in.Value))
	switch in.Kind {
	case UtxoInput:
		p.PackID(in.Pointer.TransactionID)
		p.PackByte(in.Pointer.Index)
	case AccountInput:
		p.PackFixedBytes(in.Account[:])
	case MultisigInput:
		p.PackID(in.Multisig)
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownInputKind, in.Kind))
	}
}

func unpackInput(p *wrappers.Packer) Input {
	in := Input{
		Kind:  InputKind(p.UnpackByte()),
		Value: value.Value(p.UnpackLong()),
	}
	switch in.Kind {
	case UtxoInput:
		in.Pointer.TransactionID = p.UnpackID()
		in.Pointer.Index = p.UnpackByte()
	case AccountInput:
		p.UnpackInto(in.Account[:])
	case MultisigInput:
		in.Multisig = p.UnpackID()
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownInputKind, in.Kind))
	}
	return in
}

// Output sends Value to Address.
type Output struct {
	Address Address     `json:"address" yaml:"address"`
	Value   value.Value `json:"value"   yaml:"value"`
}

func (o Output) pack(p *wrappers.Packer) {
	o.Address.pack(p)
	p.PackLong(uint64(o.Value))
}

func unpackOutput(p *wrappers.Packer) Output {
	return Output{
		Address: unpackAddress(p),
		Value:   value.Value(p.UnpackLong()),
	}
}

// LegacyAddress is the digest of the public key owning a legacy output.
type LegacyAddress ids.ID

func NewLegacyAddress(pk keys.PublicKey) LegacyAddress {
	return LegacyAddress(hashing.ComputeHash256Array(pk[:]))
}

func (a LegacyAddress) String() string {
	return ids.ID(a).String()
}

// LegacyOutput is an output declared at genesis for a legacy address.
type LegacyOutput struct {
	Address LegacyAddress
	Value   value.Value
}
