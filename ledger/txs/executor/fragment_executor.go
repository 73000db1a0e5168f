// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

var _ txs.Visitor = (*FragmentExecutor)(nil)

// FragmentExecutor applies one fragment. Ledger is a private copy of the
// parent ledger whose components are replaced as the fragment is applied;
// it is discarded when the fragment fails.
type FragmentExecutor struct {
	Ledger     *state.Ledger
	FragmentID ids.ID
	// Block0 selects the rules of the genesis block.
	Block0 bool
}

// ApplyFragment applies f on top of l and returns the new ledger. l is never
// modified; on error it is returned unchanged.
func ApplyFragment(l *state.Ledger, f *txs.Fragment) (*state.Ledger, error) {
	return applyFragment(l, f, false)
}

func applyFragment(l *state.Ledger, f *txs.Fragment, block0 bool) (*state.Ledger, error) {
	next := *l
	e := &FragmentExecutor{
		Ledger:     &next,
		FragmentID: f.ID(),
		Block0:     block0,
	}
	if err := f.Content.Visit(e); err != nil {
		return l, fmt.Errorf("fragment %s (%s): %w", e.FragmentID, f.Tag(), err)
	}
	return e.Ledger, nil
}

// Initial fragments are consumed by NewLedger before any other fragment.
func (e *FragmentExecutor) Initial(*txs.Initial) error {
	if e.Block0 {
		return ErrMissingInitial
	}
	return ErrBlock0Only
}

func (e *FragmentExecutor) OldUtxoDeclaration(d *txs.OldUtxoDeclaration) error {
	if !e.Block0 {
		return ErrBlock0Only
	}
	for i, out := range d.Outputs {
		if out.Value.IsZero() {
			return fmt.Errorf("%w: legacy output %d", ErrZeroOutput, i)
		}
		ref := txs.OutputRef{TransactionID: e.FragmentID, Index: uint8(i)}
		legacy, err := e.Ledger.LegacyUtxos.Create(ref, out)
		if err != nil {
			return err
		}
		e.Ledger.LegacyUtxos = legacy
	}
	return nil
}

func (e *FragmentExecutor) Transaction(tx *txs.Transaction) error {
	signData, err := tx.SignDataHash()
	if err != nil {
		return err
	}

	// Certificates are authorized against the accounts as they were before
	// the inputs were spent.
	accounts := e.Ledger.Accounts
	fee := value.Zero
	if e.Block0 {
		if len(tx.Inputs) != 0 {
			return fmt.Errorf("%w: transaction with inputs", ErrNotAllowedInBlock0)
		}
	} else {
		fee, err = e.Ledger.Settings.LinearFee.CalculateFor(tx)
		if err != nil {
			return fmt.Errorf("fee: %w", err)
		}
		if err := verifyBalance(tx, fee); err != nil {
			return err
		}
		if err := e.spendInputs(tx, signData); err != nil {
			return err
		}
	}

	if tx.Certificate != nil {
		certs := &certificateExecutor{
			FragmentExecutor: e,
			tx:               tx,
			signData:         signData,
			accounts:         accounts,
		}
		if err := tx.Certificate.Visit(certs); err != nil {
			return err
		}
	}

	if err := e.createOutputs(tx); err != nil {
		return err
	}

	pots, err := e.Ledger.Pots.AppendFees(fee)
	if err != nil {
		return err
	}
	e.Ledger.Pots = pots
	return nil
}

// block0Hash is the chain identifier bound by signatures. The fragments of
// block0 are signed before the block exists, so they bind ids.Empty.
func (e *FragmentExecutor) block0Hash() ids.ID {
	if e.Block0 {
		return ids.Empty
	}
	return e.Ledger.Block0Hash
}

func verifyBalance(tx *txs.Transaction, fee value.Value) error {
	in := value.Zero
	for _, input := range tx.Inputs {
		var err error
		if in, err = in.Add(input.Value); err != nil {
			return fmt.Errorf("%w: inputs: %w", ErrNotBalanced, err)
		}
	}
	out := fee
	for _, output := range tx.Outputs {
		var err error
		if out, err = out.Add(output.Value); err != nil {
			return fmt.Errorf("%w: outputs: %w", ErrNotBalanced, err)
		}
	}
	if in != out {
		return fmt.Errorf("%w: inputs %s, outputs and fee %s", ErrNotBalanced, in, out)
	}
	return nil
}

func (e *FragmentExecutor) spendInputs(tx *txs.Transaction, signData ids.ID) error {
	block0 := e.block0Hash()
	for i, in := range tx.Inputs {
		w := tx.Witnesses[i]
		switch {
		case in.Kind == txs.AccountInput:
			accounts, err := e.Ledger.Accounts.Withdraw(in.Account, in.Value, w, block0, signData)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			e.Ledger.Accounts = accounts

		case in.Kind == txs.MultisigInput:
			multisig, err := e.Ledger.Multisig.Withdraw(in.Multisig, in.Value, w, block0, signData)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			e.Ledger.Multisig = multisig

		case w.Kind == txs.UtxoWitness:
			utxos, out, err := e.Ledger.Utxos.Spend(in.Pointer)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			if out.Value != in.Value {
				return fmt.Errorf("%w: input %d declares %s, output holds %s", ErrUtxoValueMismatch, i, in.Value, out.Value)
			}
			if !w.Verify(out.Address.Spending, block0, signData) {
				return fmt.Errorf("%w: input %d", ErrInvalidSignature, i)
			}
			e.Ledger.Utxos = utxos

		case w.Kind == txs.LegacyWitness:
			legacy, out, err := e.Ledger.LegacyUtxos.Spend(in.Pointer)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			if out.Value != in.Value {
				return fmt.Errorf("%w: input %d declares %s, legacy output holds %s", ErrUtxoValueMismatch, i, in.Value, out.Value)
			}
			if txs.NewLegacyAddress(w.PublicKey) != out.Address || !w.Verify(w.PublicKey, block0, signData) {
				return fmt.Errorf("%w: legacy input %d", ErrInvalidSignature, i)
			}
			e.Ledger.LegacyUtxos = legacy

		default:
			return fmt.Errorf("%w: %s witness for input %d", ErrInvalidSignature, w.Kind, i)
		}
	}
	return nil
}

func (e *FragmentExecutor) createOutputs(tx *txs.Transaction) error {
	for i, out := range tx.Outputs {
		if out.Value.IsZero() {
			return fmt.Errorf("%w: output %d", ErrZeroOutput, i)
		}
		switch out.Address.Kind {
		case txs.Account:
			accounts, err := e.Ledger.Accounts.Deposit(out.Address.Spending, out.Value)
			if err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
			e.Ledger.Accounts = accounts
			continue
		case txs.Multisig:
			multisig, err := e.Ledger.Multisig.Deposit(out.Address.MultisigID, out.Value)
			if err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
			e.Ledger.Multisig = multisig
			continue
		}
		ref := txs.OutputRef{TransactionID: e.FragmentID, Index: uint8(i)}
		utxos, err := e.Ledger.Utxos.Create(ref, out)
		if err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
		e.Ledger.Utxos = utxos
	}
	return nil
}

func (e *FragmentExecutor) UpdateProposal(p *txs.UpdateProposal) error {
	if e.Block0 {
		return ErrNotAllowedInBlock0
	}
	updates, err := e.Ledger.Updates.ApplyProposal(e.FragmentID, p, e.Ledger.Settings, e.Ledger.Date.Epoch)
	if err != nil {
		return err
	}
	e.Ledger.Updates = updates
	return nil
}

func (e *FragmentExecutor) UpdateVote(v *txs.UpdateVote) error {
	if e.Block0 {
		return ErrNotAllowedInBlock0
	}
	updates, err := e.Ledger.Updates.ApplyVote(v, e.Ledger.Settings)
	if err != nil {
		return err
	}
	e.Ledger.Updates = updates
	return nil
}
