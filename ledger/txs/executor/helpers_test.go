// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"bytes"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/txs/fee"
	"github.com/luxfi/praos/ledger/value"
)

const testSlotsPerEpoch = 10

var (
	// one input, no output and a certificate cost 2 + 1 + 3
	testFee = fee.LinearFee{Constant: 2, Coefficient: 1, Certificate: 3}

	testRewardParams = reward.Parameters{
		TreasuryTax:       reward.TaxType{Ratio: reward.Ratio{Numerator: 1, Denominator: 10}},
		InitialValue:      100,
		ReducementRatio:   reward.Ratio{Numerator: 0, Denominator: 1},
		ReducingType:      reward.Linear,
		ReducingEpochRate: 1,
	}
)

func newKey(t *testing.T, b byte) *keys.PrivateKey {
	sk, err := keys.NewPrivateKeyFromSeed(bytes.Repeat([]byte{b}, keys.SeedSize))
	require.NoError(t, err)
	return sk
}

// newGenesis builds the ledger of a BFT chain whose block0 carries fragments
// after its Initial fragment.
func newGenesis(t *testing.T, fragments ...*txs.Fragment) *state.Ledger {
	l, err := buildGenesis(t, fragments...)
	require.NoError(t, err)
	return l
}

func buildGenesis(t *testing.T, fragments ...*txs.Fragment) (*state.Ledger, error) {
	return buildGenesisWithFee(t, testFee, fragments...)
}

// newFreeGenesis is newGenesis on a chain without fees.
func newFreeGenesis(t *testing.T, fragments ...*txs.Fragment) *state.Ledger {
	l, err := buildGenesisWithFee(t, fee.LinearFee{}, fragments...)
	require.NoError(t, err)
	return l
}

func buildGenesisWithFee(t *testing.T, linearFee fee.LinearFee, fragments ...*txs.Fragment) (*state.Ledger, error) {
	version := txs.BFT
	slots := uint32(testSlotsPerEpoch)
	pot := value.Value(1000)
	rewardParams := testRewardParams
	initial, err := txs.NewFragment(&txs.Initial{Params: txs.ConfigParams{
		ConsensusVersion: &version,
		SlotsPerEpoch:    &slots,
		LinearFee:        &linearFee,
		RewardPot:        &pot,
		RewardParams:     &rewardParams,
		AddBFTLeaders:    []keys.PublicKey{newKey(t, 0xff).PublicKey()},
	}})
	require.NoError(t, err)

	b, err := block.NewGenesis(append([]*txs.Fragment{initial}, fragments...))
	require.NoError(t, err)
	return NewLedger(b)
}

// block0Tx builds a transaction without inputs, as found in block0.
func block0Tx(t *testing.T, cert txs.Certificate, outputs ...txs.Output) *txs.Fragment {
	b, err := txs.NewBuilder(ids.Empty, cert, nil, outputs)
	require.NoError(t, err)
	f, err := b.Build()
	require.NoError(t, err)
	return f
}

func accountOutput(sk *keys.PrivateKey, v value.Value) txs.Output {
	return txs.Output{Address: txs.NewAccountAddress(sk.PublicKey()), Value: v}
}

func singleOutput(sk *keys.PrivateKey, v value.Value) txs.Output {
	return txs.Output{Address: txs.NewSingleAddress(sk.PublicKey()), Value: v}
}

// feePayment builds a transaction paying exactly the fee of a certificate
// from the account of payer.
func feePayment(t *testing.T, l *state.Ledger, payer *keys.PrivateKey, cert txs.Certificate) *txs.Builder {
	account, ok := l.Accounts.Get(payer.PublicKey())
	require.True(t, ok)
	in := []txs.Input{txs.NewAccountInput(payer.PublicKey(), 0)}
	shape := &txs.Transaction{Certificate: cert, Inputs: in}
	amount, err := l.Settings.LinearFee.CalculateFor(shape)
	require.NoError(t, err)
	in[0].Value = amount

	b, err := txs.NewBuilder(l.Block0Hash, cert, in, nil)
	require.NoError(t, err)
	return b.AddAccountWitness(payer, account.Counter)
}

func build(t *testing.T, b *txs.Builder) *txs.Fragment {
	f, err := b.Build()
	require.NoError(t, err)
	return f
}

func totalValue(t *testing.T, l *state.Ledger) value.Value {
	total, err := l.TotalValue()
	require.NoError(t, err)
	return total
}

func newPool(t *testing.T, threshold uint8, owners ...*keys.PrivateKey) *txs.PoolRegistration {
	r := &txs.PoolRegistration{
		Serial:              1,
		ManagementThreshold: threshold,
		RewardsTax:          reward.TaxType{Fixed: 10, Ratio: reward.Ratio{Numerator: 0, Denominator: 1}},
	}
	for _, owner := range owners {
		r.Owners = append(r.Owners, owner.PublicKey())
	}
	return r
}
