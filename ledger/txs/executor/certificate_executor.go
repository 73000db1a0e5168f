// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
)

var _ txs.CertificateVisitor = (*certificateExecutor)(nil)

// certificateExecutor applies the certificate of tx. It runs after the inputs
// were spent and before the outputs are created.
type certificateExecutor struct {
	*FragmentExecutor
	tx       *txs.Transaction
	signData ids.ID
	// accounts is the account state before the inputs of tx were spent.
	accounts state.Accounts
}

func (e *certificateExecutor) PoolRegistration(r *txs.PoolRegistration) error {
	if err := r.Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPoolRegistration, err)
	}
	if !e.Block0 {
		if err := e.verifyOwnerSignatures(r); err != nil {
			return err
		}
	}
	pools, err := e.Ledger.Pools.Register(r)
	if err != nil {
		return err
	}
	e.Ledger.Pools = pools
	return nil
}

func (e *certificateExecutor) PoolRetirement(r *txs.PoolRetirement) error {
	if e.Block0 {
		return ErrNotAllowedInBlock0
	}
	pool, err := e.activePool(r.PoolID)
	if err != nil {
		return err
	}
	if err := e.verifyOwnerSignatures(pool.Registration); err != nil {
		return err
	}
	pools, err := e.Ledger.Pools.Retire(r.PoolID, r.RetirementTime)
	if err != nil {
		return err
	}
	e.Ledger.Pools = pools
	return nil
}

// PoolUpdate is authenticated like a retirement, then refused: registrations
// are never changed in place.
func (e *certificateExecutor) PoolUpdate(u *txs.PoolUpdate) error {
	if e.Block0 {
		return ErrNotAllowedInBlock0
	}
	pool, err := e.activePool(u.PoolID)
	if err != nil {
		return err
	}
	if err := e.verifyOwnerSignatures(pool.Registration); err != nil {
		return err
	}
	return fmt.Errorf("%w: pool %s", ErrPoolUpdateNotSupported, u.PoolID)
}

// StakeDelegation is signed by the account over its spending counter before
// the transaction. Unless an input of the transaction already consumed that
// counter, the delegation consumes it, so the signature is good only once.
func (e *certificateExecutor) StakeDelegation(d *txs.StakeDelegation) error {
	before, ok := e.accounts.Get(d.Account)
	if !ok {
		return fmt.Errorf("%w: %s", state.ErrAccountNotFound, d.Account)
	}
	data := txs.WitnessData(txs.DelegationSignature, e.block0Hash(), e.signData, before.Counter)
	if !d.Account.Verify(data, e.tx.AccountSignature) {
		return fmt.Errorf("%w: delegation of %s", ErrInvalidCertificateSignature, d.Account)
	}
	if err := e.delegate(d.Account, d.Pool); err != nil {
		return err
	}
	if e.Block0 {
		return nil
	}
	if current, ok := e.Ledger.Accounts.Get(d.Account); ok && current.Counter != before.Counter {
		return nil
	}
	accounts, err := e.Ledger.Accounts.IncrementCounter(d.Account)
	if err != nil {
		return err
	}
	e.Ledger.Accounts = accounts
	return nil
}

// OwnerStakeDelegation delegates the account its only input draws from. The
// witness of that input authorizes the delegation.
func (e *certificateExecutor) OwnerStakeDelegation(d *txs.OwnerStakeDelegation) error {
	if e.Block0 {
		return ErrNotAllowedInBlock0
	}
	if len(e.tx.Inputs) != 1 || len(e.tx.Outputs) != 0 {
		return ErrInvalidOwnerStakeDelegation
	}
	switch in := e.tx.Inputs[0]; in.Kind {
	case txs.AccountInput:
		return e.delegate(in.Account, d.Pool)
	case txs.MultisigInput:
		if err := e.checkDelegationTarget(d.Pool); err != nil {
			return err
		}
		multisig, err := e.Ledger.Multisig.SetDelegation(in.Multisig, d.Pool)
		if err != nil {
			return err
		}
		e.Ledger.Multisig = multisig
		return nil
	default:
		return ErrInvalidOwnerStakeDelegation
	}
}

func (e *certificateExecutor) delegate(account keys.PublicKey, pool ids.ID) error {
	if err := e.checkDelegationTarget(pool); err != nil {
		return err
	}
	accounts, err := e.Ledger.Accounts.SetDelegation(account, pool)
	if err != nil {
		return err
	}
	e.Ledger.Accounts = accounts
	return nil
}

// checkDelegationTarget accepts an active pool, or ids.Empty to remove a
// delegation.
func (e *certificateExecutor) checkDelegationTarget(pool ids.ID) error {
	if pool == ids.Empty {
		return nil
	}
	_, err := e.activePool(pool)
	return err
}

func (e *certificateExecutor) activePool(id ids.ID) (state.PoolState, error) {
	pool, ok := e.Ledger.Pools.Get(id)
	if !ok {
		return pool, fmt.Errorf("%w: %s", state.ErrPoolNotFound, id)
	}
	if pool.IsRetiredAt(e.Ledger.FlatSlot()) {
		return pool, fmt.Errorf("%w: %s", state.ErrPoolRetired, id)
	}
	return pool, nil
}

// verifyOwnerSignatures checks that at least the management threshold of
// distinct owners of r signed the transaction for this chain.
func (e *certificateExecutor) verifyOwnerSignatures(r *txs.PoolRegistration) error {
	data := txs.WitnessData(txs.OwnerSignature, e.block0Hash(), e.signData, 0)
	err := txs.VerifyThreshold(r.Owners, int(r.ManagementThreshold), e.tx.OwnerSignatures, data)
	if err != nil {
		return fmt.Errorf("%w: pool owners: %w", ErrInvalidCertificateSignature, err)
	}
	return nil
}
