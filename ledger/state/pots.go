// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"

	"github.com/luxfi/praos/ledger/value"
)

// Pots hold value that belongs to no account or output.
type Pots struct {
	// Fees collected during the current epoch.
	Fees value.Value
	// Treasury receives the fees and the treasury tax at every epoch
	// transition.
	Treasury value.Value
	// Rewards is what remains to be distributed to stake pools.
	Rewards value.Value
}

// TotalValue sums the three pots.
func (p Pots) TotalValue() (value.Value, error) {
	total, err := value.Sum(p.Fees, p.Treasury, p.Rewards)
	if err != nil {
		return value.Zero, fmt.Errorf("%w: %w", ErrPotValueInvalid, err)
	}
	return total, nil
}

// AppendFees adds collected fees.
func (p Pots) AppendFees(v value.Value) (Pots, error) {
	fees, err := p.Fees.Add(v)
	if err != nil {
		return p, fmt.Errorf("%w: fees %s + %s: %w", ErrPotValueInvalid, p.Fees, v, err)
	}
	p.Fees = fees
	return p, nil
}

// AppendTreasury adds v to the treasury.
func (p Pots) AppendTreasury(v value.Value) (Pots, error) {
	treasury, err := p.Treasury.Add(v)
	if err != nil {
		return p, fmt.Errorf("%w: treasury %s + %s: %w", ErrPotValueInvalid, p.Treasury, v, err)
	}
	p.Treasury = treasury
	return p, nil
}

// AppendRewards adds v to the rewards pot.
func (p Pots) AppendRewards(v value.Value) (Pots, error) {
	rewards, err := p.Rewards.Add(v)
	if err != nil {
		return p, fmt.Errorf("%w: rewards %s + %s: %w", ErrPotValueInvalid, p.Rewards, v, err)
	}
	p.Rewards = rewards
	return p, nil
}

// FeesToTreasury empties the fees pot into the treasury.
func (p Pots) FeesToTreasury() (Pots, error) {
	p, err := p.AppendTreasury(p.Fees)
	if err != nil {
		return p, err
	}
	p.Fees = value.Zero
	return p, nil
}

// DrawRewards takes v out of the rewards pot.
func (p Pots) DrawRewards(v value.Value) (Pots, error) {
	rewards, err := p.Rewards.Sub(v)
	if err != nil {
		return p, fmt.Errorf("%w: rewards %s - %s: %w", ErrPotValueInvalid, p.Rewards, v, err)
	}
	p.Rewards = rewards
	return p, nil
}
