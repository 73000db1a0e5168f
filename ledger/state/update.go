// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"slices"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/utils/persistent"
)

// ProposalState is an open update proposal and the leaders that voted for it.
type ProposalState struct {
	Proposal *txs.UpdateProposal
	// Epoch is the epoch the proposal was submitted in.
	Epoch uint32
	// Votes is shared between states and must not be written to.
	Votes []keys.PublicKey
}

// UpdateState holds the open update proposals.
type UpdateState struct {
	proposals persistent.Map[ids.ID, ProposalState]
}

func NewUpdateState() UpdateState {
	return UpdateState{
		proposals: persistent.NewMap[ids.ID, ProposalState](func(a, b ids.ID) bool {
			return a.Compare(b) < 0
		}),
	}
}

func (u UpdateState) Len() int {
	return u.proposals.Len()
}

func (u UpdateState) Get(id ids.ID) (ProposalState, bool) {
	return u.proposals.Get(id)
}

// ApplyProposal opens proposal id, submitted during epoch.
func (u UpdateState) ApplyProposal(id ids.ID, proposal *txs.UpdateProposal, settings Settings, epoch uint32) (UpdateState, error) {
	if !settings.IsBFTLeader(proposal.Proposer) {
		return u, fmt.Errorf("%w: proposer %s is not a leader", ErrUpdateNotAllowed, proposal.Proposer)
	}
	if proposal.Changes.TreasuryAdd != nil || proposal.Changes.RewardPot != nil || proposal.Changes.Block0Date != nil {
		return u, fmt.Errorf("%w: proposal %s changes block0 only parameters", ErrUpdateNotAllowed, id)
	}
	if _, err := settings.Apply(&proposal.Changes); err != nil {
		return u, fmt.Errorf("proposal %s: %w", id, err)
	}
	msg, err := proposal.SignedBytes()
	if err != nil {
		return u, err
	}
	if !proposal.Proposer.Verify(msg, proposal.Signature) {
		return u, fmt.Errorf("%w: proposal %s", ErrInvalidSignature, id)
	}
	proposals, err := u.proposals.Insert(id, ProposalState{
		Proposal: proposal,
		Epoch:    epoch,
	})
	if err != nil {
		return u, fmt.Errorf("%w: %s", ErrDuplicateProposal, id)
	}
	return UpdateState{proposals: proposals}, nil
}

// ApplyVote records a leader's vote.
func (u UpdateState) ApplyVote(vote *txs.UpdateVote, settings Settings) (UpdateState, error) {
	if !settings.IsBFTLeader(vote.Voter) {
		return u, fmt.Errorf("%w: voter %s is not a leader", ErrUpdateNotAllowed, vote.Voter)
	}
	if !vote.Voter.Verify(vote.SignedBytes(), vote.Signature) {
		return u, fmt.Errorf("%w: vote on %s", ErrInvalidSignature, vote.ProposalID)
	}
	proposal, ok := u.proposals.Get(vote.ProposalID)
	if !ok {
		return u, fmt.Errorf("%w: %s", ErrUnknownProposal, vote.ProposalID)
	}
	if slices.Contains(proposal.Votes, vote.Voter) {
		return u, fmt.Errorf("%w: %s on %s", ErrDuplicateVote, vote.Voter, vote.ProposalID)
	}
	votes := make([]keys.PublicKey, len(proposal.Votes), len(proposal.Votes)+1)
	copy(votes, proposal.Votes)
	proposal.Votes = append(votes, vote.Voter)
	return UpdateState{proposals: u.proposals.Set(vote.ProposalID, proposal)}, nil
}

// ProcessProposals runs at the start of epoch. Proposals accepted by a strict
// majority of the current leaders are applied to settings in identifier
// order and closed; proposals older than the expiration are dropped. An
// adopted proposal that no longer yields valid settings is dropped as well.
func (u UpdateState) ProcessProposals(settings Settings, epoch uint32) (UpdateState, Settings) {
	var (
		adopted []ProposalState
		closed  []ids.ID
	)
	u.proposals.Ascend(func(id ids.ID, proposal ProposalState) bool {
		votes := 0
		for _, voter := range proposal.Votes {
			if settings.IsBFTLeader(voter) {
				votes++
			}
		}
		switch {
		case 2*votes > len(settings.BFTLeaders):
			adopted = append(adopted, proposal)
			closed = append(closed, id)
		case uint64(proposal.Epoch)+uint64(settings.ProposalExpiration) < uint64(epoch):
			closed = append(closed, id)
		}
		return true
	})

	for _, proposal := range adopted {
		if next, err := settings.Apply(&proposal.Proposal.Changes); err == nil {
			settings = next
		}
	}
	proposals := u.proposals
	for _, id := range closed {
		proposals, _, _ = proposals.Remove(id)
	}
	return UpdateState{proposals: proposals}, settings
}
