// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"slices"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

// DelegatorStake is the stake one account gives to a pool.
type DelegatorStake struct {
	// Account is the delegating single key account, unless Multisig is set.
	Account keys.PublicKey
	// Multisig is the delegating multisig account, ids.Empty for a single
	// key account.
	Multisig ids.ID
	Stake    value.Value
}

// PoolStake is the stake of a pool. Its single key delegators come first in
// key order, then its multisig delegators in identifier order.
type PoolStake struct {
	Total      value.Value
	Delegators []DelegatorStake
}

// StakeDistribution is a snapshot of who controls stake.
type StakeDistribution struct {
	Pools map[ids.ID]*PoolStake
	// Unassigned is stake of accounts that delegate to no pool.
	Unassigned value.Value
	// Dangling is stake delegated to pools that are unknown or retired.
	Dangling value.Value
}

// Total is the stake held by active pools.
func (d StakeDistribution) Total() (value.Value, error) {
	total := value.Zero
	for _, pool := range d.Pools {
		var err error
		total, err = total.Add(pool.Total)
		if err != nil {
			return value.Zero, err
		}
	}
	return total, nil
}

// PoolStake returns the stake of pool, zero if it has none.
func (d StakeDistribution) PoolStake(pool ids.ID) value.Value {
	if stake, ok := d.Pools[pool]; ok {
		return stake.Total
	}
	return value.Zero
}

// PoolIDs returns the pools with stake in id order.
func (d StakeDistribution) PoolIDs() []ids.ID {
	poolIDs := make([]ids.ID, 0, len(d.Pools))
	for id := range d.Pools {
		poolIDs = append(poolIDs, id)
	}
	slices.SortFunc(poolIDs, func(a, b ids.ID) int {
		return a.Compare(b)
	})
	return poolIDs
}

// StakeDistribution computes the stake of every active pool. An account's
// stake is its balance plus the value of the group address outputs that name
// it, and follows the account's delegation. A multisig account's stake is its
// balance.
func (l *Ledger) StakeDistribution() (StakeDistribution, error) {
	stakes := make(map[keys.PublicKey]value.Value)
	var err error
	l.Utxos.Ascend(func(_ txs.OutputRef, out txs.Output) bool {
		account, ok := out.Address.StakeAccount()
		if !ok {
			return true
		}
		stakes[account], err = stakes[account].Add(out.Value)
		return err == nil
	})
	if err != nil {
		return StakeDistribution{}, fmt.Errorf("group stake: %w", err)
	}

	d := StakeDistribution{Pools: make(map[ids.ID]*PoolStake)}
	flatSlot := l.FlatSlot()
	assign := func(delegator DelegatorStake, delegation ids.ID) error {
		stake := delegator.Stake
		var err error
		if delegation == ids.Empty {
			d.Unassigned, err = d.Unassigned.Add(stake)
			return err
		}
		pool, ok := l.Pools.Get(delegation)
		if !ok || pool.IsRetiredAt(flatSlot) {
			d.Dangling, err = d.Dangling.Add(stake)
			return err
		}
		poolStake, ok := d.Pools[delegation]
		if !ok {
			poolStake = &PoolStake{}
			d.Pools[delegation] = poolStake
		}
		poolStake.Total, err = poolStake.Total.Add(stake)
		poolStake.Delegators = append(poolStake.Delegators, delegator)
		return err
	}

	// Accounts are visited in key order, so delegators come out sorted.
	l.Accounts.Ascend(func(id keys.PublicKey, account Account) bool {
		stake, err2 := account.Balance.Add(stakes[id])
		if err2 == nil {
			delete(stakes, id)
			err2 = assign(DelegatorStake{Account: id, Stake: stake}, account.Delegation)
		}
		err = err2
		return err == nil
	})
	if err != nil {
		return StakeDistribution{}, fmt.Errorf("account stake: %w", err)
	}
	l.Multisig.Ascend(func(id ids.ID, account Account) bool {
		err = assign(DelegatorStake{Multisig: id, Stake: account.Balance}, account.Delegation)
		return err == nil
	})
	if err != nil {
		return StakeDistribution{}, fmt.Errorf("multisig stake: %w", err)
	}
	// Group outputs naming an account that does not exist are not delegated.
	for _, stake := range stakes {
		if d.Unassigned, err = d.Unassigned.Add(stake); err != nil {
			return StakeDistribution{}, fmt.Errorf("unassigned stake: %w", err)
		}
	}
	return d, nil
}
