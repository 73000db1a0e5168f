// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

// Ledger is the state of the chain after a block. A Ledger is never modified
// once built: the executor copies it and replaces the components it changes,
// which share their unchanged parts with the parent.
type Ledger struct {
	Utxos       Utxos
	LegacyUtxos LegacyUtxos
	Accounts    Accounts
	Multisig    MultisigAccounts
	Pools       Pools
	Pots        Pots
	Settings    Settings
	Updates     UpdateState
	Leaders     LeadersParticipationRecord

	// Block0Hash is the identifier of the chain, bound into every witness.
	Block0Hash  ids.ID
	Date        block.Date
	ChainLength uint32
}

// NewLedger returns the empty ledger block0 is applied to.
func NewLedger(block0Hash ids.ID) *Ledger {
	return &Ledger{
		Utxos:       NewUtxoSet[txs.Output](),
		LegacyUtxos: NewUtxoSet[txs.LegacyOutput](),
		Accounts:    NewAccounts(),
		Multisig:    NewMultisigAccounts(),
		Pools:       NewPools(),
		Settings:    DefaultSettings(),
		Updates:     NewUpdateState(),
		Leaders:     NewLeadersParticipationRecord(),
		Block0Hash:  block0Hash,
	}
}

// FlatSlot of the ledger's date.
func (l *Ledger) FlatSlot() uint64 {
	return l.Date.FlatSlot(l.Settings.SlotsPerEpoch)
}

// TotalValue is the sum of every unspent output, every single key and
// multisig account balance and every pot. No valid fragment changes it.
func (l *Ledger) TotalValue() (value.Value, error) {
	total, err := l.Pots.TotalValue()
	if err != nil {
		return value.Zero, err
	}
	add := func(v value.Value) bool {
		total, err = total.Add(v)
		return err == nil
	}
	l.Utxos.Ascend(func(_ txs.OutputRef, out txs.Output) bool {
		return add(out.Value)
	})
	if err != nil {
		return value.Zero, fmt.Errorf("utxo total: %w", err)
	}
	l.LegacyUtxos.Ascend(func(_ txs.OutputRef, out txs.LegacyOutput) bool {
		return add(out.Value)
	})
	if err != nil {
		return value.Zero, fmt.Errorf("legacy utxo total: %w", err)
	}
	l.Accounts.Ascend(func(_ keys.PublicKey, account Account) bool {
		return add(account.Balance)
	})
	if err != nil {
		return value.Zero, fmt.Errorf("account total: %w", err)
	}
	l.Multisig.Ascend(func(_ ids.ID, account Account) bool {
		return add(account.Balance)
	})
	if err != nil {
		return value.Zero, fmt.Errorf("multisig total: %w", err)
	}
	return total, nil
}
