// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

func TestNewLedger(t *testing.T) {
	require := require.New(t)

	alice := newKey(t, 1)
	funds := block0Tx(t, nil, accountOutput(alice, 100), singleOutput(alice, 50))
	l := newGenesis(t, funds)

	account, ok := l.Accounts.Get(alice.PublicKey())
	require.True(ok)
	require.Equal(value.Value(100), account.Balance)
	out, ok := l.Utxos.Get(txs.OutputRef{TransactionID: funds.ID(), Index: 1})
	require.True(ok)
	require.Equal(value.Value(50), out.Value)
	require.Equal(value.Value(1000), l.Pots.Rewards)
	require.Equal(value.Value(1150), totalValue(t, l))
	require.Equal(testFee, l.Settings.LinearFee)
}

func TestNewLedgerRejects(t *testing.T) {
	alice := newKey(t, 1)
	funds := block0Tx(t, nil, accountOutput(alice, 100))

	noInitial, err := block.NewGenesis([]*txs.Fragment{funds})
	require.NoError(t, err)
	_, err = NewLedger(noInitial)
	require.ErrorIs(t, err, ErrMissingInitial)

	version := txs.BFT
	emptyBFT, err := txs.NewFragment(&txs.Initial{Params: txs.ConfigParams{ConsensusVersion: &version}})
	require.NoError(t, err)
	b, err := block.NewGenesis([]*txs.Fragment{emptyBFT})
	require.NoError(t, err)
	_, err = NewLedger(b)
	require.ErrorIs(t, err, state.ErrInvalidSettings)
}

func TestTransfer(t *testing.T) {
	alice, bob := newKey(t, 1), newKey(t, 2)
	funds := block0Tx(t, nil, singleOutput(alice, 100), accountOutput(bob, 20))
	l := newGenesis(t, funds)
	ref := txs.OutputRef{TransactionID: funds.ID()}
	utxo := txs.UtxoPointer{OutputRef: ref, Value: 100}

	// 1 input and 2 outputs cost 2 + 3
	tests := []struct {
		name        string
		inputs      []txs.Input
		outputs     []txs.Output
		sign        func(b *txs.Builder)
		expectedErr error
	}{
		{
			name:    "utxo to account and change",
			inputs:  []txs.Input{txs.NewUtxoInput(utxo)},
			outputs: []txs.Output{accountOutput(bob, 30), singleOutput(alice, 65)},
			sign:    func(b *txs.Builder) { b.AddUtxoWitness(alice) },
		},
		{
			name:        "not balanced",
			inputs:      []txs.Input{txs.NewUtxoInput(utxo)},
			outputs:     []txs.Output{accountOutput(bob, 30), singleOutput(alice, 66)},
			sign:        func(b *txs.Builder) { b.AddUtxoWitness(alice) },
			expectedErr: ErrNotBalanced,
		},
		{
			name:        "declared value differs from the output",
			inputs:      []txs.Input{txs.NewUtxoInput(txs.UtxoPointer{OutputRef: ref, Value: 101})},
			outputs:     []txs.Output{accountOutput(bob, 30), singleOutput(alice, 66)},
			sign:        func(b *txs.Builder) { b.AddUtxoWitness(alice) },
			expectedErr: ErrUtxoValueMismatch,
		},
		{
			name:        "signed by another key",
			inputs:      []txs.Input{txs.NewUtxoInput(utxo)},
			outputs:     []txs.Output{accountOutput(bob, 30), singleOutput(alice, 65)},
			sign:        func(b *txs.Builder) { b.AddUtxoWitness(bob) },
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "unknown output",
			inputs:      []txs.Input{txs.NewUtxoInput(txs.UtxoPointer{OutputRef: txs.OutputRef{TransactionID: ids.GenerateTestID()}, Value: 100})},
			outputs:     []txs.Output{accountOutput(bob, 30), singleOutput(alice, 65)},
			sign:        func(b *txs.Builder) { b.AddUtxoWitness(alice) },
			expectedErr: state.ErrInputNotFound,
		},
		{
			name:        "account witness for a utxo",
			inputs:      []txs.Input{txs.NewUtxoInput(utxo)},
			outputs:     []txs.Output{accountOutput(bob, 30), singleOutput(alice, 65)},
			sign:        func(b *txs.Builder) { b.AddAccountWitness(alice, 0) },
			expectedErr: ErrInvalidSignature,
		},
		{
			name:        "zero output",
			inputs:      []txs.Input{txs.NewUtxoInput(utxo)},
			outputs:     []txs.Output{accountOutput(bob, 95), singleOutput(alice, 0)},
			sign:        func(b *txs.Builder) { b.AddUtxoWitness(alice) },
			expectedErr: ErrZeroOutput,
		},
		{
			name:    "account to utxo",
			inputs:  []txs.Input{txs.NewAccountInput(bob.PublicKey(), 20)},
			outputs: []txs.Output{singleOutput(alice, 7), singleOutput(bob, 8)},
			sign:    func(b *txs.Builder) { b.AddAccountWitness(bob, 0) },
		},
		{
			name:        "account overdraft",
			inputs:      []txs.Input{txs.NewAccountInput(bob.PublicKey(), 21)},
			outputs:     []txs.Output{singleOutput(alice, 8), singleOutput(bob, 8)},
			sign:        func(b *txs.Builder) { b.AddAccountWitness(bob, 0) },
			expectedErr: state.ErrNotEnoughFunds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			b, err := txs.NewBuilder(l.Block0Hash, nil, tt.inputs, tt.outputs)
			require.NoError(err)
			tt.sign(b)
			next, err := ApplyFragment(l, build(t, b))
			require.ErrorIs(err, tt.expectedErr)
			if tt.expectedErr != nil {
				require.Same(l, next)
				return
			}
			require.Equal(totalValue(t, l), totalValue(t, next))
			require.Equal(value.Value(5), next.Pots.Fees)
		})
	}
}

func TestDoubleSpend(t *testing.T) {
	require := require.New(t)

	alice := newKey(t, 1)
	funds := block0Tx(t, nil, singleOutput(alice, 100))
	l := newGenesis(t, funds)

	in := []txs.Input{txs.NewUtxoInput(txs.UtxoPointer{OutputRef: txs.OutputRef{TransactionID: funds.ID()}, Value: 100})}
	b, err := txs.NewBuilder(l.Block0Hash, nil, in, []txs.Output{singleOutput(alice, 96)})
	require.NoError(err)
	f := build(t, b.AddUtxoWitness(alice))

	next, err := ApplyFragment(l, f)
	require.NoError(err)
	_, err = ApplyFragment(next, f)
	require.ErrorIs(err, state.ErrInputNotFound)
}

func TestAccountCounters(t *testing.T) {
	require := require.New(t)

	alice := newKey(t, 1)
	l := newGenesis(t, block0Tx(t, nil, accountOutput(alice, 100)))

	transfer := func(counter uint32) *txs.Fragment {
		in := []txs.Input{txs.NewAccountInput(alice.PublicKey(), 10)}
		b, err := txs.NewBuilder(l.Block0Hash, nil, in, []txs.Output{singleOutput(alice, 6)})
		require.NoError(err)
		return build(t, b.AddAccountWitness(alice, counter))
	}

	first := transfer(0)
	l, err := ApplyFragment(l, first)
	require.NoError(err)

	// the same fragment cannot be replayed
	_, err = ApplyFragment(l, first)
	require.ErrorIs(err, state.ErrCounterMismatch)

	_, err = ApplyFragment(l, transfer(2))
	require.ErrorIs(err, state.ErrCounterMismatch)

	l, err = ApplyFragment(l, transfer(1))
	require.NoError(err)
	account, _ := l.Accounts.Get(alice.PublicKey())
	require.Equal(uint32(2), account.Counter)
	require.Equal(value.Value(80), account.Balance)
}

func TestMultisigAccount(t *testing.T) {
	require := require.New(t)

	alice, bob, carol := newKey(t, 1), newKey(t, 2), newKey(t, 3)
	shared := txs.MultisigDeclaration{
		Threshold: 2,
		Owners:    []keys.PublicKey{alice.PublicKey(), bob.PublicKey(), carol.PublicKey()},
	}
	l := newGenesis(t, block0Tx(t, nil,
		accountOutput(alice, 100),
		txs.Output{Address: txs.NewMultisigAddress(shared.ID()), Value: 100},
	))
	account, ok := l.Multisig.Get(shared.ID())
	require.True(ok)
	require.Equal(value.Value(100), account.Balance)
	supply := totalValue(t, l)

	// 1 input and 2 outputs cost 2 + 3
	spend := func(counter uint32, signers map[uint8]*keys.PrivateKey) *txs.Fragment {
		in := []txs.Input{txs.NewMultisigInput(shared.ID(), 30)}
		out := []txs.Output{
			singleOutput(alice, 15),
			{Address: txs.NewMultisigAddress(shared.ID()), Value: 10},
		}
		b, err := txs.NewBuilder(l.Block0Hash, nil, in, out)
		require.NoError(err)
		return build(t, b.AddMultisigWitness(shared, counter, signers))
	}

	_, err := ApplyFragment(l, spend(0, map[uint8]*keys.PrivateKey{2: carol}))
	require.ErrorIs(err, ErrInvalidSignature)
	require.ErrorIs(err, txs.ErrNotEnoughSignatures)

	// a multisig witness cannot spend a single key account
	_, err = ApplyFragment(l, func() *txs.Fragment {
		in := []txs.Input{txs.NewAccountInput(alice.PublicKey(), 3)}
		b, err := txs.NewBuilder(l.Block0Hash, nil, in, nil)
		require.NoError(err)
		return build(t, b.AddMultisigWitness(shared, 0, map[uint8]*keys.PrivateKey{0: alice, 1: bob}))
	}())
	require.ErrorIs(err, ErrInvalidSignature)

	first := spend(0, map[uint8]*keys.PrivateKey{0: alice, 2: carol})
	next, err := ApplyFragment(l, first)
	require.NoError(err)
	account, _ = next.Multisig.Get(shared.ID())
	require.Equal(value.Value(80), account.Balance)
	require.Equal(uint32(1), account.Counter)
	require.Equal(supply, totalValue(t, next))

	// the same fragment cannot be replayed
	_, err = ApplyFragment(next, first)
	require.ErrorIs(err, state.ErrCounterMismatch)

	next, err = ApplyFragment(next, spend(1, map[uint8]*keys.PrivateKey{0: alice, 1: bob}))
	require.NoError(err)
	account, _ = next.Multisig.Get(shared.ID())
	require.Equal(value.Value(60), account.Balance)
	require.Equal(supply, totalValue(t, next))

	// the parent is untouched
	account, _ = l.Multisig.Get(shared.ID())
	require.Equal(value.Value(100), account.Balance)
}

func TestLegacyUtxo(t *testing.T) {
	require := require.New(t)

	alice := newKey(t, 1)
	declaration, err := txs.NewFragment(&txs.OldUtxoDeclaration{Outputs: []txs.LegacyOutput{{
		Address: txs.NewLegacyAddress(alice.PublicKey()),
		Value:   40,
	}}})
	require.NoError(err)
	l := newGenesis(t, declaration)
	require.Equal(1, l.LegacyUtxos.Len())

	utxo := txs.UtxoPointer{OutputRef: txs.OutputRef{TransactionID: declaration.ID()}, Value: 40}
	spend := func(sk *keys.PrivateKey) *txs.Fragment {
		b, err := txs.NewBuilder(l.Block0Hash, nil, []txs.Input{txs.NewUtxoInput(utxo)}, []txs.Output{accountOutput(alice, 36)})
		require.NoError(err)
		return build(t, b.AddLegacyWitness(sk))
	}

	_, err = ApplyFragment(l, spend(newKey(t, 2)))
	require.ErrorIs(err, ErrInvalidSignature)

	next, err := ApplyFragment(l, spend(alice))
	require.NoError(err)
	require.Zero(next.LegacyUtxos.Len())
	require.Equal(totalValue(t, l), totalValue(t, next))

	// legacy declarations are only accepted in block0
	_, err = ApplyFragment(l, declaration)
	require.ErrorIs(err, ErrBlock0Only)
}

func TestBlock0Rules(t *testing.T) {
	require := require.New(t)

	alice := newKey(t, 1)
	l := newGenesis(t, block0Tx(t, nil, singleOutput(alice, 10)))

	initial, err := txs.NewFragment(&txs.Initial{})
	require.NoError(err)
	_, err = ApplyFragment(l, initial)
	require.ErrorIs(err, ErrBlock0Only)

	proposal := &txs.UpdateProposal{}
	require.NoError(proposal.Sign(newKey(t, 0xff)))
	f, err := txs.NewFragment(proposal)
	require.NoError(err)
	b, err := block.NewGenesis([]*txs.Fragment{initialFragment(t), f})
	require.NoError(err)
	_, err = NewLedger(b)
	require.ErrorIs(err, ErrNotAllowedInBlock0)
}

func initialFragment(t *testing.T) *txs.Fragment {
	leaders := []keys.PublicKey{newKey(t, 0xff).PublicKey()}
	f, err := txs.NewFragment(&txs.Initial{Params: txs.ConfigParams{AddBFTLeaders: leaders}})
	require.NoError(t, err)
	return f
}

func TestUpdateFragments(t *testing.T) {
	require := require.New(t)

	leader := newKey(t, 0xff)
	l := newGenesis(t)

	slots := uint32(20)
	proposal := &txs.UpdateProposal{Changes: txs.ConfigParams{SlotsPerEpoch: &slots}}
	require.NoError(proposal.Sign(leader))
	proposalFragment, err := txs.NewFragment(proposal)
	require.NoError(err)
	l, err = ApplyFragment(l, proposalFragment)
	require.NoError(err)

	vote := &txs.UpdateVote{ProposalID: proposalFragment.ID()}
	vote.Sign(leader)
	voteFragment, err := txs.NewFragment(vote)
	require.NoError(err)
	l, err = ApplyFragment(l, voteFragment)
	require.NoError(err)

	// adopted at the next epoch
	require.Equal(uint32(testSlotsPerEpoch), l.Settings.SlotsPerEpoch)
	l, err = ApplyEpochTransition(l, 1)
	require.NoError(err)
	require.Equal(slots, l.Settings.SlotsPerEpoch)
	require.Zero(l.Updates.Len())

	outsider := &txs.UpdateVote{ProposalID: proposalFragment.ID()}
	outsider.Sign(newKey(t, 3))
	outsiderFragment, err := txs.NewFragment(outsider)
	require.NoError(err)
	_, err = ApplyFragment(l, outsiderFragment)
	require.ErrorIs(err, ErrUpdateNotAllowed)
}
