// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/txs/fee"
	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/wrappers"
)

var (
	ErrUnknownConfigParam   = errors.New("unknown config parameter")
	ErrDuplicateConfigParam = errors.New("config parameter declared twice")
	ErrConfigParamSize      = errors.New("config parameter has unexpected size")
)

// ConsensusVersion selects how slot leaders are elected.
type ConsensusVersion byte

const (
	BFT ConsensusVersion = iota + 1
	GenesisPraos
)

func (v ConsensusVersion) String() string {
	switch v {
	case BFT:
		return "bft"
	case GenesisPraos:
		return "genesis-praos"
	default:
		return "unknown"
	}
}

func (v ConsensusVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *ConsensusVersion) UnmarshalText(text []byte) error {
	switch string(text) {
	case "bft":
		*v = BFT
	case "genesis-praos":
		*v = GenesisPraos
	default:
		return fmt.Errorf("%w: consensus version %q", ErrUnknownConfigParam, text)
	}
	return nil
}

// Milli is a fraction expressed in thousandths.
type Milli uint64

const MilliOne Milli = 1000

type configTag uint16

const (
	tagBlock0Date configTag = iota + 1
	tagConsensusVersion
	tagSlotsPerEpoch
	tagSlotDuration
	tagEpochStabilityDepth
	tagActiveSlotCoefficient
	tagMaxTransactionsPerBlock
	tagLinearFee
	tagProposalExpiration
	tagKESUpdateSpeed
	tagTreasuryAdd
	tagRewardPot
	tagRewardParams
	tagAddBFTLeader
	tagRemoveBFTLeader
)

// ConfigParams is a set of protocol parameter changes. Nil fields are left
// unchanged. The block0 Initial fragment and update proposals both carry
// them.
type ConfigParams struct {
	// Block0Date is the unix time of the start of slot 0.
	Block0Date       *uint64
	ConsensusVersion *ConsensusVersion
	SlotsPerEpoch    *uint32
	// SlotDuration is in seconds.
	SlotDuration        *uint8
	EpochStabilityDepth *uint32
	// ActiveSlotCoefficient is f of Genesis Praos, in (0, 1].
	ActiveSlotCoefficient   *Milli
	MaxTransactionsPerBlock *uint32
	LinearFee               *fee.LinearFee
	// ProposalExpiration is the number of epochs an update proposal stays
	// open for votes.
	ProposalExpiration *uint32
	// KESUpdateSpeed is the number of slots per KES period.
	KESUpdateSpeed *uint32
	// TreasuryAdd and RewardPot seed the pots. They are only accepted in
	// block0.
	TreasuryAdd      *value.Value
	RewardPot        *value.Value
	RewardParams     *reward.Parameters
	AddBFTLeaders    []keys.PublicKey
	RemoveBFTLeaders []keys.PublicKey
}

// IsEmpty reports whether params change nothing.
func (c *ConfigParams) IsEmpty() bool {
	return c.Block0Date == nil &&
		c.ConsensusVersion == nil &&
		c.SlotsPerEpoch == nil &&
		c.SlotDuration == nil &&
		c.EpochStabilityDepth == nil &&
		c.ActiveSlotCoefficient == nil &&
		c.MaxTransactionsPerBlock == nil &&
		c.LinearFee == nil &&
		c.ProposalExpiration == nil &&
		c.KESUpdateSpeed == nil &&
		c.TreasuryAdd == nil &&
		c.RewardPot == nil &&
		c.RewardParams == nil &&
		len(c.AddBFTLeaders) == 0 &&
		len(c.RemoveBFTLeaders) == 0
}

func packEntry(p *wrappers.Packer, tag configTag, f func(*wrappers.Packer)) {
	entry := wrappers.NewWriter(64, math.MaxUint16)
	f(entry)
	if entry.Errored() {
		p.Add(entry.Err)
		return
	}
	p.PackShort(uint16(tag))
	p.PackShortBytes(entry.Bytes)
}

func (c *ConfigParams) pack(p *wrappers.Packer) {
	var count int
	entries := wrappers.NewWriter(256, maxFragmentSize)
	entry := func(tag configTag, f func(*wrappers.Packer)) {
		count++
		packEntry(entries, tag, f)
	}

	if c.Block0Date != nil {
		entry(tagBlock0Date, func(p *wrappers.Packer) { p.PackLong(*c.Block0Date) })
	}
	if c.ConsensusVersion != nil {
		entry(tagConsensusVersion, func(p *wrappers.Packer) { p.PackByte(byte(*c.ConsensusVersion)) })
	}
	if c.SlotsPerEpoch != nil {
		entry(tagSlotsPerEpoch, func(p *wrappers.Packer) { p.PackInt(*c.SlotsPerEpoch) })
	}
	if c.SlotDuration != nil {
		entry(tagSlotDuration, func(p *wrappers.Packer) { p.PackByte(*c.SlotDuration) })
	}
	if c.EpochStabilityDepth != nil {
		entry(tagEpochStabilityDepth, func(p *wrappers.Packer) { p.PackInt(*c.EpochStabilityDepth) })
	}
	if c.ActiveSlotCoefficient != nil {
		entry(tagActiveSlotCoefficient, func(p *wrappers.Packer) { p.PackLong(uint64(*c.ActiveSlotCoefficient)) })
	}
	if c.MaxTransactionsPerBlock != nil {
		entry(tagMaxTransactionsPerBlock, func(p *wrappers.Packer) { p.PackInt(*c.MaxTransactionsPerBlock) })
	}
	if c.LinearFee != nil {
		entry(tagLinearFee, c.LinearFee.Pack)
	}
	if c.ProposalExpiration != nil {
		entry(tagProposalExpiration, func(p *wrappers.Packer) { p.PackInt(*c.ProposalExpiration) })
	}
	if c.KESUpdateSpeed != nil {
		entry(tagKESUpdateSpeed, func(p *wrappers.Packer) { p.PackInt(*c.KESUpdateSpeed) })
	}
	if c.TreasuryAdd != nil {
		entry(tagTreasuryAdd, func(p *wrappers.Packer) { p.PackLong(uint64(*c.TreasuryAdd)) })
	}
	if c.RewardPot != nil {
		entry(tagRewardPot, func(p *wrappers.Packer) { p.PackLong(uint64(*c.RewardPot)) })
	}
	if c.RewardParams != nil {
		entry(tagRewardParams, func(p *wrappers.Packer) {
			c.RewardParams.TreasuryTax.Pack(p)
			p.PackLong(c.RewardParams.InitialValue)
			p.PackLong(c.RewardParams.ReducementRatio.Numerator)
			p.PackLong(c.RewardParams.ReducementRatio.Denominator)
			p.PackByte(byte(c.RewardParams.ReducingType))
			p.PackInt(c.RewardParams.ReducingEpochRate)
		})
	}
	for _, leader := range c.AddBFTLeaders {
		entry(tagAddBFTLeader, func(p *wrappers.Packer) { p.PackFixedBytes(leader[:]) })
	}
	for _, leader := range c.RemoveBFTLeaders {
		entry(tagRemoveBFTLeader, func(p *wrappers.Packer) { p.PackFixedBytes(leader[:]) })
	}

	if entries.Errored() {
		p.Add(entries.Err)
		return
	}
	if count > math.MaxUint16 {
		p.Add(fmt.Errorf("%w: %d config entries", ErrFragmentTooLarge, count))
		return
	}
	p.PackShort(uint16(count))
	p.PackFixedBytes(entries.Bytes)
}

func unpackConfigParams(p *wrappers.Packer) ConfigParams {
	var c ConfigParams
	count := int(p.UnpackShort())
	seen := make(map[configTag]struct{}, count)
	for i := 0; i < count && !p.Errored(); i++ {
		tag := configTag(p.UnpackShort())
		entry := wrappers.NewReader(p.UnpackShortBytes())
		if p.Errored() {
			break
		}
		if _, ok := seen[tag]; ok && tag != tagAddBFTLeader && tag != tagRemoveBFTLeader {
			p.Add(fmt.Errorf("%w: %d", ErrDuplicateConfigParam, tag))
			break
		}
		seen[tag] = struct{}{}
		c.unpackEntry(tag, entry)
		if err := entry.Done(); err != nil {
			p.Add(fmt.Errorf("%w: tag %d: %w", ErrConfigParamSize, tag, err))
		}
	}
	return c
}

func (c *ConfigParams) unpackEntry(tag configTag, p *wrappers.Packer) {
	switch tag {
	case tagBlock0Date:
		v := p.UnpackLong()
		c.Block0Date = &v
	case tagConsensusVersion:
		v := ConsensusVersion(p.UnpackByte())
		c.ConsensusVersion = &v
	case tagSlotsPerEpoch:
		v := p.UnpackInt()
		c.SlotsPerEpoch = &v
	case tagSlotDuration:
		v := p.UnpackByte()
		c.SlotDuration = &v
	case tagEpochStabilityDepth:
		v := p.UnpackInt()
		c.EpochStabilityDepth = &v
	case tagActiveSlotCoefficient:
		v := Milli(p.UnpackLong())
		c.ActiveSlotCoefficient = &v
	case tagMaxTransactionsPerBlock:
		v := p.UnpackInt()
		c.MaxTransactionsPerBlock = &v
	case tagLinearFee:
		v := fee.UnpackLinearFee(p)
		c.LinearFee = &v
	case tagProposalExpiration:
		v := p.UnpackInt()
		c.ProposalExpiration = &v
	case tagKESUpdateSpeed:
		v := p.UnpackInt()
		c.KESUpdateSpeed = &v
	case tagTreasuryAdd:
		v := value.Value(p.UnpackLong())
		c.TreasuryAdd = &v
	case tagRewardPot:
		v := value.Value(p.UnpackLong())
		c.RewardPot = &v
	case tagRewardParams:
		tax, err := reward.UnpackTaxType(p)
		p.Add(err)
		v := reward.Parameters{
			TreasuryTax:  tax,
			InitialValue: p.UnpackLong(),
			ReducementRatio: reward.Ratio{
				Numerator:   p.UnpackLong(),
				Denominator: p.UnpackLong(),
			},
			ReducingType:      reward.ReducingType(p.UnpackByte()),
			ReducingEpochRate: p.UnpackInt(),
		}
		c.RewardParams = &v
	case tagAddBFTLeader:
		var leader keys.PublicKey
		p.UnpackInto(leader[:])
		c.AddBFTLeaders = append(c.AddBFTLeaders, leader)
	case tagRemoveBFTLeader:
		var leader keys.PublicKey
		p.UnpackInto(leader[:])
		c.RemoveBFTLeaders = append(c.RemoveBFTLeaders, leader)
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownConfigParam, tag))
	}
}
