// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"slices"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/txs/fee"
)

// Settings are the protocol parameters in force. A Settings value is never
// modified; Apply returns a new one.
type Settings struct {
	// Block0Date is the unix time of the start of slot 0.
	Block0Date              uint64
	ConsensusVersion        txs.ConsensusVersion
	SlotsPerEpoch           uint32
	SlotDuration            uint8
	EpochStabilityDepth     uint32
	ActiveSlotCoefficient   txs.Milli
	MaxTransactionsPerBlock uint32
	LinearFee               fee.LinearFee
	ProposalExpiration      uint32
	KESUpdateSpeed          uint32
	// RewardParams is nil when the chain distributes no rewards.
	RewardParams *reward.Parameters
	// BFTLeaders is shared between settings values and must not be written
	// to.
	BFTLeaders []keys.PublicKey
	// ConsensusNonce accumulates the VRF outputs of Genesis Praos blocks.
	ConsensusNonce ids.ID
}

// DefaultSettings are the settings block0 starts from.
func DefaultSettings() Settings {
	return Settings{
		ConsensusVersion:        txs.BFT,
		SlotsPerEpoch:           720,
		SlotDuration:            10,
		EpochStabilityDepth:     102_400,
		ActiveSlotCoefficient:   100,
		MaxTransactionsPerBlock: 255,
		ProposalExpiration:      100,
		KESUpdateSpeed:          12 * 3600 / 10,
	}
}

// Apply returns the settings changed by params. The pot seeds of params are
// not settings and are ignored here.
func (s Settings) Apply(params *txs.ConfigParams) (Settings, error) {
	if params.Block0Date != nil {
		s.Block0Date = *params.Block0Date
	}
	if params.ConsensusVersion != nil {
		s.ConsensusVersion = *params.ConsensusVersion
	}
	if params.SlotsPerEpoch != nil {
		s.SlotsPerEpoch = *params.SlotsPerEpoch
	}
	if params.SlotDuration != nil {
		s.SlotDuration = *params.SlotDuration
	}
	if params.EpochStabilityDepth != nil {
		s.EpochStabilityDepth = *params.EpochStabilityDepth
	}
	if params.ActiveSlotCoefficient != nil {
		s.ActiveSlotCoefficient = *params.ActiveSlotCoefficient
	}
	if params.MaxTransactionsPerBlock != nil {
		s.MaxTransactionsPerBlock = *params.MaxTransactionsPerBlock
	}
	if params.LinearFee != nil {
		s.LinearFee = *params.LinearFee
	}
	if params.ProposalExpiration != nil {
		s.ProposalExpiration = *params.ProposalExpiration
	}
	if params.KESUpdateSpeed != nil {
		s.KESUpdateSpeed = *params.KESUpdateSpeed
	}
	if params.RewardParams != nil {
		rewardParams := *params.RewardParams
		s.RewardParams = &rewardParams
	}
	if len(params.AddBFTLeaders) != 0 || len(params.RemoveBFTLeaders) != 0 {
		leaders := slices.Clone(s.BFTLeaders)
		for _, leader := range params.AddBFTLeaders {
			if !slices.Contains(leaders, leader) {
				leaders = append(leaders, leader)
			}
		}
		leaders = slices.DeleteFunc(leaders, func(leader keys.PublicKey) bool {
			return slices.Contains(params.RemoveBFTLeaders, leader)
		})
		s.BFTLeaders = leaders
	}
	return s, s.Verify()
}

// Verify checks that the settings can drive a chain.
func (s Settings) Verify() error {
	switch {
	case s.ConsensusVersion != txs.BFT && s.ConsensusVersion != txs.GenesisPraos:
		return fmt.Errorf("%w: unknown consensus version %d", ErrInvalidSettings, s.ConsensusVersion)
	case s.SlotsPerEpoch == 0:
		return fmt.Errorf("%w: zero slots per epoch", ErrInvalidSettings)
	case s.SlotDuration == 0:
		return fmt.Errorf("%w: zero slot duration", ErrInvalidSettings)
	case s.ActiveSlotCoefficient == 0 || s.ActiveSlotCoefficient > txs.MilliOne:
		return fmt.Errorf("%w: active slot coefficient %d not in (0, %d]", ErrInvalidSettings, s.ActiveSlotCoefficient, txs.MilliOne)
	case s.KESUpdateSpeed == 0:
		return fmt.Errorf("%w: zero KES update speed", ErrInvalidSettings)
	case s.ConsensusVersion == txs.BFT && len(s.BFTLeaders) == 0:
		return fmt.Errorf("%w: BFT without leaders", ErrInvalidSettings)
	}
	if s.RewardParams != nil {
		if err := s.RewardParams.Verify(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
		}
	}
	return nil
}

// IsBFTLeader reports whether pk is one of the BFT leaders.
func (s Settings) IsBFTLeader(pk keys.PublicKey) bool {
	return slices.Contains(s.BFTLeaders, pk)
}
