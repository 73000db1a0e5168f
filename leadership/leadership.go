// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package leadership decides who may produce the block of a slot.
//
// A Leadership is built once per epoch from the ledger at the start of the
// epoch and is frozen for the whole epoch, so stake moved during an epoch
// only counts from the next one.
package leadership

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/crypto/vrf"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

var (
	ErrInvalidEpoch            = errors.New("date is not in the leadership epoch")
	ErrWrongProofKind          = errors.New("wrong leadership proof kind")
	ErrUnknownLeader           = errors.New("unknown leader")
	ErrUnknownConsensus        = errors.New("unknown consensus version")
	ErrInvalidLeaderSignature  = errors.New("invalid leader signature")
	ErrInvalidVrfProof         = errors.New("invalid vrf proof")
	ErrThresholdNotMet         = errors.New("vrf output above stake threshold")
	ErrStaleKesPeriod          = errors.New("stale kes period")
	ErrTotalStakeIsZero        = errors.New("total stake is zero")
	ErrMissingLeaderCredential = errors.New("missing leader credential")
)

// Leadership is the leader election of one epoch. Exactly one of bft and
// praos is set, according to kind, unless kind is block.ProofNone.
type Leadership struct {
	kind  block.ProofKind
	epoch uint32
	bft   *bftLeadership
	praos *praosLeadership
}

type bftLeadership struct {
	leaders []keys.PublicKey
}

type praosLeadership struct {
	nonce          ids.ID
	coefficient    txs.Milli
	slotsPerEpoch  uint32
	kesUpdateSpeed uint32
	pools          state.Pools
	distribution   state.StakeDistribution
	total          value.Value
}

// None returns the leadership of the genesis block, which has no leader.
func None(epoch uint32) *Leadership {
	return &Leadership{
		kind:  block.ProofNone,
		epoch: epoch,
	}
}

// New builds the leadership of epoch from l, the ledger at the start of
// that epoch.
func New(epoch uint32, l *state.Ledger) (*Leadership, error) {
	settings := l.Settings
	switch settings.ConsensusVersion {
	case txs.BFT:
		if len(settings.BFTLeaders) == 0 {
			return nil, fmt.Errorf("%w: no bft leader", ErrUnknownLeader)
		}
		return &Leadership{
			kind:  block.ProofBFT,
			epoch: epoch,
			bft:   &bftLeadership{leaders: settings.BFTLeaders},
		}, nil
	case txs.GenesisPraos:
		distribution, err := l.StakeDistribution()
		if err != nil {
			return nil, err
		}
		total, err := distribution.Total()
		if err != nil {
			return nil, err
		}
		return &Leadership{
			kind:  block.ProofGenesisPraos,
			epoch: epoch,
			praos: &praosLeadership{
				nonce:          settings.ConsensusNonce,
				coefficient:    settings.ActiveSlotCoefficient,
				slotsPerEpoch:  settings.SlotsPerEpoch,
				kesUpdateSpeed: settings.KESUpdateSpeed,
				pools:          l.Pools,
				distribution:   distribution,
				total:          total,
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConsensus, settings.ConsensusVersion)
	}
}

// Kind is the proof kind headers of this epoch must carry.
func (l *Leadership) Kind() block.ProofKind {
	return l.kind
}

func (l *Leadership) Epoch() uint32 {
	return l.epoch
}

// Leader holds the credentials a node produces blocks with. BFT leaders set
// BFT, stake pool operators set PoolID and VRF.
type Leader struct {
	BFT    *keys.PrivateKey
	PoolID ids.ID
	VRF    *vrf.SecretKey
}

// Election is a won slot.
type Election struct {
	Kind block.ProofKind
	// VRFProof is set for Genesis Praos elections and goes in the header.
	VRFProof vrf.Proof
}

// GetLeaderAt returns the designated leader of the slot of date. Only BFT
// has one; in Genesis Praos every pool runs its own private lottery, see
// IsLeaderFor.
func (l *Leadership) GetLeaderAt(date block.Date) (keys.PublicKey, bool, error) {
	if err := l.checkEpoch(date); err != nil {
		return keys.PublicKey{}, false, err
	}
	switch l.kind {
	case block.ProofBFT:
		return l.bft.leaderAt(date), true, nil
	case block.ProofNone, block.ProofGenesisPraos:
		return keys.PublicKey{}, false, nil
	default:
		return keys.PublicKey{}, false, fmt.Errorf("%w: %s", ErrWrongProofKind, l.kind)
	}
}

// IsLeaderFor tells whether leader may produce the block of date.
func (l *Leadership) IsLeaderFor(leader Leader, date block.Date) (Election, bool, error) {
	if err := l.checkEpoch(date); err != nil {
		return Election{}, false, err
	}
	switch l.kind {
	case block.ProofNone:
		return Election{}, false, nil
	case block.ProofBFT:
		if leader.BFT == nil {
			return Election{}, false, nil
		}
		if l.bft.leaderAt(date) != leader.BFT.PublicKey() {
			return Election{}, false, nil
		}
		return Election{Kind: block.ProofBFT}, true, nil
	case block.ProofGenesisPraos:
		if leader.VRF == nil {
			return Election{}, false, nil
		}
		proof, ok, err := l.praos.evaluate(leader.PoolID, leader.VRF, date)
		if err != nil || !ok {
			return Election{}, false, err
		}
		return Election{Kind: block.ProofGenesisPraos, VRFProof: proof}, true, nil
	default:
		return Election{}, false, fmt.Errorf("%w: %s", ErrWrongProofKind, l.kind)
	}
}

// Verify checks that the author of header was entitled to produce it.
func (l *Leadership) Verify(header *block.Header) error {
	if err := l.checkEpoch(header.Date); err != nil {
		return err
	}
	if header.Kind != l.kind {
		return fmt.Errorf("%w: expected %s but got %s", ErrWrongProofKind, l.kind, header.Kind)
	}
	switch l.kind {
	case block.ProofNone:
		return nil
	case block.ProofBFT:
		return l.bft.verify(header)
	case block.ProofGenesisPraos:
		return l.praos.verify(header)
	default:
		return fmt.Errorf("%w: %s", ErrWrongProofKind, l.kind)
	}
}

// Nonce returns the contribution of header to the consensus nonce. Only
// Genesis Praos blocks contribute one.
func (l *Leadership) Nonce(header *block.Header) *vrf.Output {
	if l.kind != block.ProofGenesisPraos || header.Praos == nil {
		return nil
	}
	nonce := header.Praos.VRFProof.Output(l.praos.input(header.Date), domainNonce)
	return &nonce
}

// KESPeriod returns the KES period pool must sign the block of date with.
func (l *Leadership) KESPeriod(pool ids.ID, date block.Date) (uint32, error) {
	if l.kind != block.ProofGenesisPraos {
		return 0, fmt.Errorf("%w: %s has no kes period", ErrWrongProofKind, l.kind)
	}
	registration, err := l.praos.registration(pool, date)
	if err != nil {
		return 0, err
	}
	return l.praos.kesPeriod(registration, date)
}

func (l *Leadership) checkEpoch(date block.Date) error {
	if date.Epoch != l.epoch {
		return fmt.Errorf("%w: %s not in epoch %d", ErrInvalidEpoch, date, l.epoch)
	}
	return nil
}

func (b *bftLeadership) leaderAt(date block.Date) keys.PublicKey {
	return b.leaders[int(date.Slot%uint32(len(b.leaders)))]
}

func (b *bftLeadership) verify(header *block.Header) error {
	if header.BFT == nil {
		return ErrMissingLeaderCredential
	}
	expected := b.leaderAt(header.Date)
	if header.BFT.Leader != expected {
		return fmt.Errorf("%w: slot %s expects %s but got %s", ErrInvalidLeaderSignature, header.Date, expected, header.BFT.Leader)
	}
	msg, err := header.UnsignedBytes()
	if err != nil {
		return err
	}
	if !expected.Verify(msg, header.BFT.Signature) {
		return fmt.Errorf("%w: slot %s", ErrInvalidLeaderSignature, header.Date)
	}
	return nil
}
