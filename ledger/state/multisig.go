// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/persistent"
)

// MultisigAccounts maps multisig account identifiers to their state. A
// multisig account is created by the first output paying to it and is
// spent with the declaration whose digest is its identifier.
type MultisigAccounts struct {
	m persistent.Map[ids.ID, Account]
}

func NewMultisigAccounts() MultisigAccounts {
	return MultisigAccounts{
		m: persistent.NewMap[ids.ID, Account](func(a, b ids.ID) bool {
			return a.Compare(b) < 0
		}),
	}
}

func (a MultisigAccounts) Len() int {
	return a.m.Len()
}

func (a MultisigAccounts) Get(id ids.ID) (Account, bool) {
	return a.m.Get(id)
}

// Ascend calls f for every account in identifier order until f returns
// false.
func (a MultisigAccounts) Ascend(f func(id ids.ID, account Account) bool) {
	a.m.Ascend(f)
}

// Deposit credits v to id. An unknown account is created with balance v.
func (a MultisigAccounts) Deposit(id ids.ID, v value.Value) (MultisigAccounts, error) {
	m, err := deposit(a.m, id, v)
	if err != nil {
		return a, err
	}
	return MultisigAccounts{m: m}, nil
}

// AddRewards deposits a reward of epoch to id and records it in the
// account's last rewards.
func (a MultisigAccounts) AddRewards(id ids.ID, epoch uint32, v value.Value) (MultisigAccounts, error) {
	m, err := addRewards(a.m, id, epoch, v)
	if err != nil {
		return a, err
	}
	return MultisigAccounts{m: m}, nil
}

// Withdraw debits v from id, authorized by the multisig witness w. The
// counter rules are those of Accounts.Withdraw.
func (a MultisigAccounts) Withdraw(id ids.ID, v value.Value, w txs.Witness, block0, signData ids.ID) (MultisigAccounts, error) {
	if !a.m.Has(id) {
		return a, fmt.Errorf("%w: multisig %s", ErrAccountNotFound, id)
	}
	if err := w.VerifyMultisig(id, block0, signData); err != nil {
		return a, fmt.Errorf("%w: multisig %s: %w", ErrInvalidSignature, id, err)
	}
	m, err := debit(a.m, id, v, w.Counter)
	if err != nil {
		return a, err
	}
	return MultisigAccounts{m: m}, nil
}

// SetDelegation points the stake of id to pool. ids.Empty removes the
// delegation.
func (a MultisigAccounts) SetDelegation(id ids.ID, pool ids.ID) (MultisigAccounts, error) {
	m, err := setDelegation(a.m, id, pool)
	if err != nil {
		return a, err
	}
	return MultisigAccounts{m: m}, nil
}
