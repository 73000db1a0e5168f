// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package genesis

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

func newKey(t *testing.T, b byte) *keys.PrivateKey {
	sk, err := keys.NewPrivateKeyFromSeed(bytes.Repeat([]byte{b}, keys.SeedSize))
	require.NoError(t, err)
	return sk
}

const testGenesis = `
blockchain_configuration:
  block0_date: 1550822014
  block0_consensus: genesis-praos
  slots_per_epoch: 60
  slot_duration: 2
  consensus_genesis_praos_active_slot_coeff: 100
  linear_fees:
    constant: 10
    coefficient: 2
    certificate: 5
  kes_update_speed: 30
  treasury: 1000
  total_reward_supply: 50000
  reward_parameters:
    treasury_tax:
      fixed: 0
      ratio:
        numerator: 1
        denominator: 10
    initial_value: 100
    reducement_ratio:
      numerator: 1
      denominator: 2
    reducing_type: halvening
    reducing_epoch_rate: 10
  consensus_leader_ids:
    - "%s"
initial:
  - fund:
      - address: "%s"
        value: 300
      - address: "%s"
        value: 200
  - legacy_fund:
      - public_key: "%s"
        value: 40
  - fragment: "%s"
`

func TestLoad(t *testing.T) {
	require := require.New(t)

	leader, alice, bob := newKey(t, 1), newKey(t, 2), newKey(t, 3)
	registration := &txs.PoolRegistration{
		Serial:              7,
		Owners:              []keys.PublicKey{bob.PublicKey()},
		ManagementThreshold: 1,
		RewardsTax:          reward.ZeroTax,
	}
	b, err := txs.NewBuilder(ids.Empty, registration, nil, nil)
	require.NoError(err)
	poolFragment, err := b.Build()
	require.NoError(err)

	yaml := fmt.Sprintf(testGenesis,
		leader.PublicKey(),
		txs.NewAccountAddress(alice.PublicKey()),
		txs.NewSingleAddress(bob.PublicKey()),
		bob.PublicKey(),
		hex.EncodeToString(poolFragment.Bytes()),
	)
	block0, ledger, err := Load(log.NoLog{}, []byte(yaml))
	require.NoError(err)

	require.Len(block0.Fragments, 4)
	require.Equal(block0.ID(), ledger.Block0Hash)
	require.Equal(txs.GenesisPraos, ledger.Settings.ConsensusVersion)
	require.Equal(uint32(60), ledger.Settings.SlotsPerEpoch)
	require.Equal(txs.Milli(100), ledger.Settings.ActiveSlotCoefficient)
	require.Equal(reward.Halvening, ledger.Settings.RewardParams.ReducingType)
	require.True(ledger.Settings.IsBFTLeader(leader.PublicKey()))

	account, ok := ledger.Accounts.Get(alice.PublicKey())
	require.True(ok)
	require.Equal(value.Value(300), account.Balance)
	require.Equal(1, ledger.Utxos.Len())
	require.Equal(1, ledger.LegacyUtxos.Len())
	_, ok = ledger.Pools.Get(registration.ID())
	require.True(ok)

	total, err := ledger.TotalValue()
	require.NoError(err)
	require.Equal(value.Value(300+200+40+1000+50000), total)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown key",
			yaml: "blockchain_configuration:\n  slots_per_epoc: 10\n",
		},
		{
			name: "unknown consensus",
			yaml: "blockchain_configuration:\n  block0_consensus: pow\n",
		},
		{
			name: "bad leader key",
			yaml: "blockchain_configuration:\n  consensus_leader_ids: [\"abcd\"]\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestBlock0Rejects(t *testing.T) {
	require := require.New(t)

	_, err := (&Data{}).Block0()
	require.ErrorIs(err, ErrNoConsensusLeader)

	data := &Data{
		BlockchainConfiguration: Configuration{
			ConsensusLeaderIDs: []keys.PublicKey{newKey(t, 1).PublicKey()},
		},
		Initial: []Initial{{Fragment: "zz"}},
	}
	_, err = data.Block0()
	require.ErrorIs(err, txs.ErrDecoding)

	fund := []txs.Output{{Address: txs.NewAccountAddress(newKey(t, 2).PublicKey()), Value: 10}}
	data.Initial = []Initial{{Fund: fund}, {Fund: fund}}
	_, err = data.Block0()
	require.ErrorIs(err, ErrDuplicateFragment)
	require.ErrorContains(err, "initial 1")
}

func TestManyFunds(t *testing.T) {
	require := require.New(t)

	leader, alice := newKey(t, 1), newKey(t, 2)
	funds := make([]txs.Output, 600)
	for i := range funds {
		funds[i] = txs.Output{Address: txs.NewSingleAddress(alice.PublicKey()), Value: 1}
	}
	data := &Data{
		BlockchainConfiguration: Configuration{
			ConsensusLeaderIDs: []keys.PublicKey{leader.PublicKey()},
		},
		Initial: []Initial{{Fund: funds}},
	}
	block0, err := data.Block0()
	require.NoError(err)
	// 255 + 255 + 90
	require.Len(block0.Fragments, 4)

	raw, err := data.Bytes()
	require.NoError(err)
	parsed, err := Parse(raw)
	require.NoError(err)
	require.Equal(data.Initial[0].Fund[599], parsed.Initial[0].Fund[599])
}
