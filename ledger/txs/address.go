// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/mr-tron/base58"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/utils/wrappers"
)

var (
	ErrUnknownAddressKind = errors.New("unknown address kind")
	ErrNotAnAccount       = errors.New("address has no account")
)

// AddressKind selects who owns an output and how its stake is counted.
type AddressKind byte

const (
	// Single outputs are spent with the spending key and carry no stake.
	Single AddressKind = iota + 3
	// Group outputs are spent with the spending key; their value counts as
	// stake of the group account.
	Group
	// Account outputs credit the balance of the account.
	Account
	// Multisig outputs credit the balance of a multisig account.
	Multisig
)

func (k AddressKind) String() string {
	switch k {
	case Single:
		return "single"
	case Group:
		return "group"
	case Account:
		return "account"
	case Multisig:
		return "multisig"
	default:
		return "unknown"
	}
}

// Address is the destination of an output.
type Address struct {
	Kind     AddressKind
	Spending keys.PublicKey
	// Group is only set for Group addresses.
	Group keys.PublicKey
	// MultisigID replaces Spending in Multisig addresses.
	MultisigID ids.ID
}

func NewSingleAddress(spending keys.PublicKey) Address {
	return Address{Kind: Single, Spending: spending}
}

func NewGroupAddress(spending, account keys.PublicKey) Address {
	return Address{Kind: Group, Spending: spending, Group: account}
}

func NewAccountAddress(account keys.PublicKey) Address {
	return Address{Kind: Account, Spending: account}
}

func NewMultisigAddress(account ids.ID) Address {
	return Address{Kind: Multisig, MultisigID: account}
}

// StakeAccount returns the account the value of an output to a is staked
// with, if any.
func (a Address) StakeAccount() (keys.PublicKey, bool) {
	switch a.Kind {
	case Group:
		return a.Group, true
	case Account:
		return a.Spending, true
	default:
		return keys.PublicKey{}, false
	}
}

// AccountKey returns the account credited by an output to a.
func (a Address) AccountKey() (keys.PublicKey, error) {
	if a.Kind != Account {
		return keys.PublicKey{}, fmt.Errorf("%w: %s", ErrNotAnAccount, a.Kind)
	}
	return a.Spending, nil
}

func (a Address) size() int {
	switch a.Kind {
	case Group:
		return wrappers.ByteLen + 2*keys.PublicKeySize
	case Multisig:
		return wrappers.ByteLen + wrappers.IDLen
	default:
		return wrappers.ByteLen + keys.PublicKeySize
	}
}

func (a Address) pack(p *wrappers.Packer) {
	p.PackByte(byte(a.Kind))
	if a.Kind == Multisig {
		p.PackID(a.MultisigID)
		return
	}
	p.PackFixedBytes(a.Spending[:])
	if a.Kind == Group {
		p.PackFixedBytes(a.Group[:])
	}
}

func unpackAddress(p *wrappers.Packer) Address {
	var a Address
	a.Kind = AddressKind(p.UnpackByte())
	switch a.Kind {
	case Single, Account:
		p.UnpackInto(a.Spending[:])
	case Group:
		p.UnpackInto(a.Spending[:])
		p.UnpackInto(a.Group[:])
	case Multisig:
		a.MultisigID = p.UnpackID()
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownAddressKind, a.Kind))
	}
	return a
}

// Bytes returns kind || spending key [|| group key], or kind || account id
// for multisig addresses.
func (a Address) Bytes() []byte {
	p := wrappers.NewWriter(a.size(), a.size())
	a.pack(p)
	return p.Bytes
}

// String returns the base58 form of Bytes.
func (a Address) String() string {
	return base58.Encode(a.Bytes())
}

// AddressFromString parses the base58 form produced by String.
func AddressFromString(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrDecoding, err)
	}
	p := wrappers.NewReader(b)
	a := unpackAddress(p)
	if err := p.Done(); err != nil {
		return Address{}, fmt.Errorf("%w: address: %w", ErrDecoding, err)
	}
	return a, nil
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromString(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
