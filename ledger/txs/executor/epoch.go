// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/value"
)

// ApplyEpochTransition closes the epoch of l and opens epoch. The fees of
// the closed epoch go to the treasury, its rewards are distributed to the
// pools that produced blocks, and adopted update proposals take effect.
func ApplyEpochTransition(l *state.Ledger, epoch uint32) (*state.Ledger, error) {
	next := *l
	pots, err := next.Pots.FeesToTreasury()
	if err != nil {
		return l, err
	}
	next.Pots = pots

	if err := distributeRewards(&next, l.Date.Epoch); err != nil {
		return l, fmt.Errorf("rewards of epoch %d: %w", l.Date.Epoch, err)
	}
	next.Leaders = state.NewLeadersParticipationRecord()
	next.Updates, next.Settings = next.Updates.ProcessProposals(next.Settings, epoch)
	return &next, nil
}

// distributeRewards releases the contribution of epoch from the rewards pot
// and shares it between the pools of the leaders log, in proportion to the
// blocks they produced. Whatever cannot be credited goes to the treasury, so
// the total value is unchanged.
func distributeRewards(l *state.Ledger, epoch uint32) error {
	params := l.Settings.RewardParams
	if params == nil || l.Leaders.Total() == 0 {
		return nil
	}
	contribution, err := reward.Contribution(epoch, *params)
	if err != nil {
		return err
	}
	drawn := contribution.Min(l.Pots.Rewards)
	if drawn.IsZero() {
		return nil
	}
	if l.Pots, err = l.Pots.DrawRewards(drawn); err != nil {
		return err
	}
	cut, err := reward.TaxCut(drawn, params.TreasuryTax)
	if err != nil {
		return err
	}
	toTreasury := cut.Taxed

	distribution, err := l.StakeDistribution()
	if err != nil {
		return err
	}

	total := l.Leaders.Total()
	distributed := value.Zero
	l.Leaders.Ascend(func(poolID ids.ID, blocks uint32) bool {
		var share value.Value
		share, err = cut.AfterTax.Ratio(uint64(blocks), total)
		if err != nil {
			return false
		}
		if distributed, err = distributed.Add(share); err != nil {
			return false
		}
		var leftover value.Value
		leftover, err = rewardPool(l, epoch, poolID, share, distribution)
		if err != nil {
			return false
		}
		toTreasury, err = toTreasury.Add(leftover)
		return err == nil
	})
	if err != nil {
		return err
	}

	remainder, err := cut.AfterTax.Sub(distributed)
	if err != nil {
		return err
	}
	if toTreasury, err = toTreasury.Add(remainder); err != nil {
		return err
	}
	l.Pots, err = l.Pots.AppendTreasury(toTreasury)
	return err
}

// rewardPool credits share to the owners and the delegators of poolID and
// returns what could not be credited.
func rewardPool(l *state.Ledger, epoch uint32, poolID ids.ID, share value.Value, distribution state.StakeDistribution) (value.Value, error) {
	pool, ok := l.Pools.Get(poolID)
	if !ok {
		return share, nil
	}
	registration := pool.Registration
	cut, err := reward.TaxCut(share, registration.RewardsTax)
	if err != nil {
		return value.Zero, err
	}

	credit := func(account keys.PublicKey, v value.Value) error {
		if v.IsZero() {
			return nil
		}
		accounts, err := l.Accounts.AddRewards(account, epoch, v)
		if err != nil {
			return err
		}
		l.Accounts = accounts
		return nil
	}

	creditMultisig := func(account ids.ID, v value.Value) error {
		if v.IsZero() {
			return nil
		}
		multisig, err := l.Multisig.AddRewards(account, epoch, v)
		if err != nil {
			return err
		}
		l.Multisig = multisig
		return nil
	}

	if registration.RewardAccount != nil {
		if err := credit(*registration.RewardAccount, cut.Taxed); err != nil {
			return value.Zero, err
		}
	} else {
		part, remainder := cut.Taxed.SplitIn(uint64(len(registration.Owners)))
		for i, owner := range registration.Owners {
			v := part
			if i == 0 {
				var err error
				if v, err = part.Add(remainder); err != nil {
					return value.Zero, err
				}
			}
			if err := credit(owner, v); err != nil {
				return value.Zero, err
			}
		}
	}

	stake, ok := distribution.Pools[poolID]
	if !ok || stake.Total.IsZero() {
		return cut.AfterTax, nil
	}
	leftover := cut.AfterTax
	for _, delegator := range stake.Delegators {
		v, err := cut.AfterTax.Ratio(uint64(delegator.Stake), uint64(stake.Total))
		if err != nil {
			return value.Zero, err
		}
		if delegator.Multisig != ids.Empty {
			err = creditMultisig(delegator.Multisig, v)
		} else {
			err = credit(delegator.Account, v)
		}
		if err != nil {
			return value.Zero, err
		}
		if leftover, err = leftover.Sub(v); err != nil {
			return value.Zero, err
		}
	}
	return leftover, nil
}
