// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain threads the ledger and the leader election through block
// application and keeps the competing forks of a chain.
package chain

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/kes"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/txs/executor"
	"github.com/luxfi/praos/leadership"
)

var (
	ErrParentMismatch      = errors.New("block does not extend this state")
	ErrInvalidBlockContent = errors.New("invalid block content")
	ErrInvalidLeadership   = errors.New("invalid block leadership")
	ErrNotLeader           = errors.New("not the leader of the slot")
	ErrUnknownParent       = errors.New("unknown parent")
)

// State is the chain after a block. States are never modified: applying a
// block returns a new State sharing everything it did not change.
type State struct {
	Header *block.Header
	Ledger *state.Ledger
	// Leadership is the leader election of the epoch of Header.
	Leadership *leadership.Leadership
}

// NewState returns the state after block0. block0 has no leader and is
// trusted by its id, so its header must carry no proof.
func NewState(block0 *block.Block) (*State, error) {
	if err := block0.VerifyContents(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlockContent, err)
	}
	epoch := block0.Header.Date.Epoch
	if err := leadership.None(epoch).Verify(block0.Header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLeadership, err)
	}
	l, err := executor.NewLedger(block0)
	if err != nil {
		return nil, err
	}
	lead, err := leadership.New(epoch, l)
	if err != nil {
		return nil, err
	}
	return &State{
		Header:     block0.Header,
		Ledger:     l,
		Leadership: lead,
	}, nil
}

func (s *State) ID() ids.ID {
	return s.Header.ID()
}

// LeadershipAt returns the leader election of epoch. A later epoch is
// elected with the stake and nonce of the ledger at its start, that is after
// the last block of the previous epochs and the epoch transition.
func (s *State) LeadershipAt(epoch uint32) (*leadership.Leadership, error) {
	if epoch <= s.Leadership.Epoch() {
		return s.Leadership, nil
	}
	l, err := executor.ApplyEpochTransition(s.Ledger, epoch)
	if err != nil {
		return nil, err
	}
	return leadership.New(epoch, l)
}

// ApplyBlock verifies b against s and returns the state after it. On error
// s is left untouched and remains usable.
func (s *State) ApplyBlock(b *block.Block) (*State, error) {
	header := b.Header
	if header.Parent != s.ID() {
		return nil, fmt.Errorf("%w: parent %s, state %s", ErrParentMismatch, header.Parent, s.ID())
	}
	if err := b.VerifyContents(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlockContent, err)
	}

	lead, err := s.LeadershipAt(header.Date.Epoch)
	if err != nil {
		return nil, err
	}
	if err := lead.Verify(header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLeadership, err)
	}

	meta := executor.Metadata{
		Date:        header.Date,
		ChainLength: header.ChainLength,
		Nonce:       lead.Nonce(header),
	}
	if header.Praos != nil {
		meta.Producer = header.Praos.PoolID
	}
	l, err := executor.ApplyBlock(s.Ledger, meta, b.Fragments)
	if err != nil {
		return nil, err
	}
	return &State{
		Header:     header,
		Ledger:     l,
		Leadership: lead,
	}, nil
}

// Produce builds the block of date on top of s if leader is elected for it.
// Genesis Praos leaders sign with kesKey, which must already be evolved to
// the KES period of date.
func (s *State) Produce(
	leader leadership.Leader,
	kesKey *kes.SecretKey,
	date block.Date,
	fragments []*txs.Fragment,
) (*block.Block, error) {
	lead, err := s.LeadershipAt(date.Epoch)
	if err != nil {
		return nil, err
	}
	election, ok, err := lead.IsLeaderFor(leader, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLeader, date)
	}

	header, err := block.NewHeader(s.Header, date, fragments)
	if err != nil {
		return nil, err
	}
	switch election.Kind {
	case block.ProofBFT:
		err = header.SignBFT(leader.BFT)
	case block.ProofGenesisPraos:
		if kesKey == nil {
			return nil, fmt.Errorf("%w: missing kes key", ErrNotLeader)
		}
		err = header.SignPraos(leader.PoolID, election.VRFProof, kesKey)
	default:
		err = fmt.Errorf("%w: %s", leadership.ErrWrongProofKind, election.Kind)
	}
	if err != nil {
		return nil, err
	}
	return &block.Block{
		Header:    header,
		Fragments: fragments,
	}, nil
}
