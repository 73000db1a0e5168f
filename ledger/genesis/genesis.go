// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package genesis turns a YAML description of a chain into its block0.
package genesis

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/txs/executor"
	"github.com/luxfi/praos/ledger/txs/fee"
	"github.com/luxfi/praos/ledger/value"
)

var (
	ErrNoConsensusLeader = errors.New("genesis declares no consensus leader")
	ErrDuplicateFragment = errors.New("duplicate genesis fragment")
)

// Data is the genesis file.
type Data struct {
	BlockchainConfiguration Configuration `yaml:"blockchain_configuration"`
	Initial                 []Initial     `yaml:"initial"`
}

// Configuration holds the initial settings. Absent entries keep their
// defaults.
type Configuration struct {
	Block0Date              *uint64               `yaml:"block0_date"`
	Consensus               *txs.ConsensusVersion `yaml:"block0_consensus"`
	SlotsPerEpoch           *uint32               `yaml:"slots_per_epoch"`
	SlotDuration            *uint8                `yaml:"slot_duration"`
	EpochStabilityDepth     *uint32               `yaml:"epoch_stability_depth"`
	ActiveSlotCoefficient   *txs.Milli            `yaml:"consensus_genesis_praos_active_slot_coeff"`
	MaxTransactionsPerBlock *uint32               `yaml:"max_number_of_transactions_per_block"`
	LinearFees              *fee.LinearFee        `yaml:"linear_fees"`
	ProposalExpiration      *uint32               `yaml:"proposal_expiration"`
	KESUpdateSpeed          *uint32               `yaml:"kes_update_speed"`
	Treasury                *value.Value          `yaml:"treasury"`
	TotalRewardSupply       *value.Value          `yaml:"total_reward_supply"`
	RewardParameters        *reward.Parameters    `yaml:"reward_parameters"`
	ConsensusLeaderIDs      []keys.PublicKey      `yaml:"consensus_leader_ids"`
}

// Initial is one entry of the initial content of block0.
type Initial struct {
	Fund       []txs.Output `yaml:"fund"`
	LegacyFund []LegacyFund `yaml:"legacy_fund"`
	// Fragment is a hex encoded fragment prepared and signed beforehand,
	// typically a pool registration or a stake delegation.
	Fragment string `yaml:"fragment"`
}

// LegacyFund credits the legacy address of a public key.
type LegacyFund struct {
	PublicKey keys.PublicKey `yaml:"public_key"`
	Value     value.Value    `yaml:"value"`
}

// Parse decodes a genesis file. Unknown keys are rejected.
func Parse(b []byte) (*Data, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	data := &Data{}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("couldn't parse genesis: %w", err)
	}
	return data, nil
}

// Bytes encodes d back to YAML.
func (d *Data) Bytes() ([]byte, error) {
	return yaml.Marshal(d)
}

// ConfigParams are the parameters of the Initial fragment.
func (c *Configuration) ConfigParams() txs.ConfigParams {
	return txs.ConfigParams{
		Block0Date:              c.Block0Date,
		ConsensusVersion:        c.Consensus,
		SlotsPerEpoch:           c.SlotsPerEpoch,
		SlotDuration:            c.SlotDuration,
		EpochStabilityDepth:     c.EpochStabilityDepth,
		ActiveSlotCoefficient:   c.ActiveSlotCoefficient,
		MaxTransactionsPerBlock: c.MaxTransactionsPerBlock,
		LinearFee:               c.LinearFees,
		ProposalExpiration:      c.ProposalExpiration,
		KESUpdateSpeed:          c.KESUpdateSpeed,
		TreasuryAdd:             c.Treasury,
		RewardPot:               c.TotalRewardSupply,
		RewardParams:            c.RewardParameters,
		AddBFTLeaders:           c.ConsensusLeaderIDs,
	}
}

// Block0 builds the genesis block: the Initial fragment, then the initial
// entries in order. Funds are split over as many transactions as needed.
func (d *Data) Block0() (*block.Block, error) {
	if len(d.BlockchainConfiguration.ConsensusLeaderIDs) == 0 {
		return nil, ErrNoConsensusLeader
	}
	initial, err := txs.NewFragment(&txs.Initial{Params: d.BlockchainConfiguration.ConfigParams()})
	if err != nil {
		return nil, err
	}
	fragments := []*txs.Fragment{initial}
	seen := make(map[ids.ID]int)
	// Identical entries encode to the same fragment, whose outputs would be
	// created twice.
	add := func(i int, f *txs.Fragment) error {
		if first, ok := seen[f.ID()]; ok {
			return fmt.Errorf("initial %d: %w: %s already declared by initial %d", i, ErrDuplicateFragment, f.ID(), first)
		}
		seen[f.ID()] = i
		fragments = append(fragments, f)
		return nil
	}

	for i, entry := range d.Initial {
		for outputs := range chunks(entry.Fund) {
			b, err := txs.NewBuilder(ids.Empty, nil, nil, outputs)
			if err != nil {
				return nil, fmt.Errorf("initial %d: %w", i, err)
			}
			f, err := b.Build()
			if err != nil {
				return nil, fmt.Errorf("initial %d: %w", i, err)
			}
			if err := add(i, f); err != nil {
				return nil, err
			}
		}
		for funds := range chunks(entry.LegacyFund) {
			outputs := make([]txs.LegacyOutput, len(funds))
			for j, fund := range funds {
				outputs[j] = txs.LegacyOutput{
					Address: txs.NewLegacyAddress(fund.PublicKey),
					Value:   fund.Value,
				}
			}
			f, err := txs.NewFragment(&txs.OldUtxoDeclaration{Outputs: outputs})
			if err != nil {
				return nil, fmt.Errorf("initial %d: %w", i, err)
			}
			if err := add(i, f); err != nil {
				return nil, err
			}
		}
		if entry.Fragment != "" {
			raw, err := hex.DecodeString(entry.Fragment)
			if err != nil {
				return nil, fmt.Errorf("initial %d: %w: %w", i, txs.ErrDecoding, err)
			}
			f, err := txs.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("initial %d: %w", i, err)
			}
			if err := add(i, f); err != nil {
				return nil, err
			}
		}
	}
	return block.NewGenesis(fragments)
}

// chunks yields s in slices of at most 255 elements, the most a fragment
// holds.
func chunks[T any](s []T) iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for len(s) > 0 {
			n := min(len(s), math.MaxUint8)
			if !yield(s[:n]) {
				return
			}
			s = s[n:]
		}
	}
}

// Load parses a genesis file and builds block0 and its ledger.
func Load(logger log.Logger, b []byte) (*block.Block, *state.Ledger, error) {
	data, err := Parse(b)
	if err != nil {
		return nil, nil, err
	}
	block0, err := data.Block0()
	if err != nil {
		return nil, nil, err
	}
	ledger, err := executor.NewLedger(block0)
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't apply block0 %s: %w", block0.ID(), err)
	}
	total, err := ledger.TotalValue()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("loaded genesis",
		log.Stringer("block0", block0.ID()),
		log.Int("fragments", len(block0.Fragments)),
		log.Stringer("consensus", ledger.Settings.ConsensusVersion),
		log.Stringer("totalValue", total),
	)
	return block0, ledger, nil
}
