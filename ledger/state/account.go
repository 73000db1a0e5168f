// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"math"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/persistent"
)

// LastRewards is the reward credited to an account during its most recent
// rewarded epoch.
type LastRewards struct {
	Epoch  uint32
	Reward value.Value
}

// AddFor records reward v for epoch. Rewards of the same epoch accumulate and
// a later epoch starts over. Epochs must never decrease: a decreasing epoch
// is a bug of the caller and panics.
func (r *LastRewards) AddFor(epoch uint32, v value.Value) error {
	switch {
	case epoch < r.Epoch:
		panic(fmt.Sprintf("rewards added for epoch %d after epoch %d", epoch, r.Epoch))
	case epoch == r.Epoch:
		total, err := r.Reward.Add(v)
		if err != nil {
			return err
		}
		r.Reward = total
	default:
		r.Epoch = epoch
		r.Reward = v
	}
	return nil
}

// Account is the state of an account.
type Account struct {
	Balance value.Value
	// Counter is the spending counter the next withdrawal must present. It
	// starts at zero and is incremented by every accepted withdrawal.
	Counter uint32
	// Delegation is the pool the account delegates to, ids.Empty if none.
	Delegation  ids.ID
	LastRewards LastRewards
}

// Accounts maps account keys to their state.
type Accounts struct {
	m persistent.Map[keys.PublicKey, Account]
}

func NewAccounts() Accounts {
	return Accounts{
		m: persistent.NewMap[keys.PublicKey, Account](func(a, b keys.PublicKey) bool {
			return a.Compare(b) < 0
		}),
	}
}

func (a Accounts) Len() int {
	return a.m.Len()
}

func (a Accounts) Get(id keys.PublicKey) (Account, bool) {
	return a.m.Get(id)
}

// Ascend calls f for every account in key order until f returns false.
func (a Accounts) Ascend(f func(id keys.PublicKey, account Account) bool) {
	a.m.Ascend(f)
}

// Deposit credits v to id. An unknown account is created with balance v.
func (a Accounts) Deposit(id keys.PublicKey, v value.Value) (Accounts, error) {
	m, err := deposit(a.m, id, v)
	if err != nil {
		return a, err
	}
	return Accounts{m: m}, nil
}

// AddRewards deposits a reward of epoch to id and records it in the
// account's last rewards.
func (a Accounts) AddRewards(id keys.PublicKey, epoch uint32, v value.Value) (Accounts, error) {
	m, err := addRewards(a.m, id, epoch, v)
	if err != nil {
		return a, err
	}
	return Accounts{m: m}, nil
}

// Withdraw debits v from id, authorized by w.
//
// The witness must be an account witness signed by id over the witness data
// of signData, and must present the counter currently stored in the account.
// On success the stored counter is incremented. Once the counter reaches its
// maximum the account only accepts a withdrawal of its whole balance, which
// removes it.
func (a Accounts) Withdraw(id keys.PublicKey, v value.Value, w txs.Witness, block0, signData ids.ID) (Accounts, error) {
	if !a.m.Has(id) {
		return a, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if w.Kind != txs.AccountWitness || !w.Verify(id, block0, signData) {
		return a, fmt.Errorf("%w: account %s", ErrInvalidSignature, id)
	}
	m, err := debit(a.m, id, v, w.Counter)
	if err != nil {
		return a, err
	}
	return Accounts{m: m}, nil
}

// SetDelegation points the stake of id to pool. ids.Empty removes the
// delegation.
func (a Accounts) SetDelegation(id keys.PublicKey, pool ids.ID) (Accounts, error) {
	m, err := setDelegation(a.m, id, pool)
	if err != nil {
		return a, err
	}
	return Accounts{m: m}, nil
}

// IncrementCounter consumes the current spending counter of id without
// moving funds. An exhausted counter cannot be consumed this way.
func (a Accounts) IncrementCounter(id keys.PublicKey) (Accounts, error) {
	account, ok := a.m.Get(id)
	if !ok {
		return a, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if account.Counter == math.MaxUint32 {
		return a, fmt.Errorf("%w: account %s", ErrNeedTotalWithdrawal, id)
	}
	account.Counter++
	return Accounts{m: a.m.Set(id, account)}, nil
}

// The helpers below are shared by single key and multisig accounts, which
// only differ in how a withdrawal is authorized.

func deposit[K fmt.Stringer](m persistent.Map[K, Account], id K, v value.Value) (persistent.Map[K, Account], error) {
	account, _ := m.Get(id)
	balance, err := account.Balance.Add(v)
	if err != nil {
		return m, fmt.Errorf("deposit to %s: %w", id, err)
	}
	account.Balance = balance
	return m.Set(id, account), nil
}

func addRewards[K fmt.Stringer](m persistent.Map[K, Account], id K, epoch uint32, v value.Value) (persistent.Map[K, Account], error) {
	account, _ := m.Get(id)
	balance, err := account.Balance.Add(v)
	if err != nil {
		return m, fmt.Errorf("reward to %s: %w", id, err)
	}
	account.Balance = balance
	if err := account.LastRewards.AddFor(epoch, v); err != nil {
		return m, fmt.Errorf("reward to %s: %w", id, err)
	}
	return m.Set(id, account), nil
}

// debit withdraws v from the existing account id, which must store counter.
func debit[K fmt.Stringer](m persistent.Map[K, Account], id K, v value.Value, counter uint32) (persistent.Map[K, Account], error) {
	account, ok := m.Get(id)
	if !ok {
		return m, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	if counter != account.Counter {
		return m, fmt.Errorf("%w: account %s expects %d but got %d", ErrCounterMismatch, id, account.Counter, counter)
	}
	balance, err := account.Balance.Sub(v)
	if err != nil {
		return m, fmt.Errorf("%w: account %s holds %s, needs %s", ErrNotEnoughFunds, id, account.Balance, v)
	}

	if account.Counter == math.MaxUint32 {
		if !balance.IsZero() {
			return m, fmt.Errorf("%w: account %s", ErrNeedTotalWithdrawal, id)
		}
		next, _, err := m.Remove(id)
		if err != nil {
			return m, err
		}
		return next, nil
	}

	account.Balance = balance
	account.Counter++
	return m.Set(id, account), nil
}

func setDelegation[K fmt.Stringer](m persistent.Map[K, Account], id K, pool ids.ID) (persistent.Map[K, Account], error) {
	next, err := m.Update(id, func(account Account) (Account, error) {
		account.Delegation = pool
		return account, nil
	})
	if err != nil {
		return m, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return next, nil
}
