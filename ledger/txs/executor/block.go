// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/vrf"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/utils/hashing"
)

// Metadata is what the ledger learns from a block header.
type Metadata struct {
	Date        block.Date
	ChainLength uint32
	// Producer is the pool of a Genesis Praos block, ids.Empty otherwise.
	Producer ids.ID
	// Nonce is the nonce contribution of a Genesis Praos block.
	Nonce *vrf.Output
}

// NewLedger builds the ledger of block0. The first fragment must be the
// Initial fragment carrying the settings of the chain.
func NewLedger(block0 *block.Block) (*state.Ledger, error) {
	if len(block0.Fragments) == 0 {
		return nil, ErrMissingInitial
	}
	initial, ok := block0.Fragments[0].Content.(*txs.Initial)
	if !ok {
		return nil, ErrMissingInitial
	}

	l := state.NewLedger(block0.ID())
	settings, err := l.Settings.Apply(&initial.Params)
	if err != nil {
		return nil, err
	}
	l.Settings = settings
	if initial.Params.TreasuryAdd != nil {
		if l.Pots, err = l.Pots.AppendTreasury(*initial.Params.TreasuryAdd); err != nil {
			return nil, err
		}
	}
	if initial.Params.RewardPot != nil {
		if l.Pots, err = l.Pots.AppendRewards(*initial.Params.RewardPot); err != nil {
			return nil, err
		}
	}
	l.Date = block0.Header.Date
	l.ChainLength = block0.Header.ChainLength

	for _, f := range block0.Fragments[1:] {
		if l, err = applyFragment(l, f, true); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// ApplyBlock applies the fragments of a block described by meta on top of
// its parent ledger l. Crossing into a new epoch runs the epoch transition
// before any fragment.
func ApplyBlock(l *state.Ledger, meta Metadata, fragments []*txs.Fragment) (*state.Ledger, error) {
	if err := verifyMetadata(l, meta); err != nil {
		return l, err
	}

	next := l
	if meta.Date.Epoch > l.Date.Epoch {
		var err error
		if next, err = ApplyEpochTransition(l, meta.Date.Epoch); err != nil {
			return l, err
		}
	}
	// The settings of the block's own epoch apply from here on.
	if meta.Date.Slot >= next.Settings.SlotsPerEpoch {
		return l, fmt.Errorf("%w: slot %d with %d slots per epoch", ErrInvalidBlockDate, meta.Date.Slot, next.Settings.SlotsPerEpoch)
	}
	if uint64(len(fragments)) > uint64(next.Settings.MaxTransactionsPerBlock) {
		return l, fmt.Errorf("%w: %d > %d", ErrTooManyFragments, len(fragments), next.Settings.MaxTransactionsPerBlock)
	}
	for _, f := range fragments {
		var err error
		if next, err = ApplyFragment(next, f); err != nil {
			return l, err
		}
	}

	final := *next
	final.Date = meta.Date
	final.ChainLength = meta.ChainLength
	if meta.Producer != ids.Empty {
		final.Leaders = final.Leaders.Increase(meta.Producer)
	}
	if meta.Nonce != nil {
		final.Settings.ConsensusNonce = hashing.ComputeID(final.Settings.ConsensusNonce[:], meta.Nonce[:])
	}
	return &final, nil
}

func verifyMetadata(l *state.Ledger, meta Metadata) error {
	if meta.ChainLength != l.ChainLength+1 {
		return fmt.Errorf("%w: %d after %d", ErrWrongChainLength, meta.ChainLength, l.ChainLength)
	}
	if meta.Date.Compare(l.Date) <= 0 {
		return fmt.Errorf("%w: %s after %s", ErrNonMonotonicDate, meta.Date, l.Date)
	}
	return nil
}
