// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/utils/wrappers"
)

// UpdateProposal proposes protocol parameter changes. Only BFT leaders may
// propose; the proposal identifier is the fragment identifier.
type UpdateProposal struct {
	Changes   ConfigParams
	Proposer  keys.PublicKey
	Signature keys.Signature
}

func (*UpdateProposal) Tag() Tag {
	return TagUpdateProposal
}

func (u *UpdateProposal) Visit(visitor Visitor) error {
	return visitor.UpdateProposal(u)
}

// SignedBytes is the message signed by the proposer.
func (u *UpdateProposal) SignedBytes() ([]byte, error) {
	p := wrappers.NewWriter(256, maxFragmentSize)
	u.packUnsigned(p)
	return p.Bytes, p.Err
}

// Sign fills Proposer and Signature with sk.
func (u *UpdateProposal) Sign(sk *keys.PrivateKey) error {
	u.Proposer = sk.PublicKey()
	msg, err := u.SignedBytes()
	if err != nil {
		return err
	}
	u.Signature = sk.Sign(msg)
	return nil
}

func (u *UpdateProposal) packUnsigned(p *wrappers.Packer) {
	u.Changes.pack(p)
	p.PackFixedBytes(u.Proposer[:])
}

func (u *UpdateProposal) pack(p *wrappers.Packer) {
	u.packUnsigned(p)
	p.PackFixedBytes(u.Signature[:])
}

func unpackUpdateProposal(p *wrappers.Packer) *UpdateProposal {
	u := &UpdateProposal{Changes: unpackConfigParams(p)}
	p.UnpackInto(u.Proposer[:])
	p.UnpackInto(u.Signature[:])
	return u
}

// UpdateVote is a BFT leader's approval of a proposal.
type UpdateVote struct {
	ProposalID ids.ID
	Voter      keys.PublicKey
	Signature  keys.Signature
}

func (*UpdateVote) Tag() Tag {
	return TagUpdateVote
}

func (v *UpdateVote) Visit(visitor Visitor) error {
	return visitor.UpdateVote(v)
}

// SignedBytes is the message signed by the voter.
func (v *UpdateVote) SignedBytes() []byte {
	b := make([]byte, 0, wrappers.IDLen+keys.PublicKeySize)
	b = append(b, v.ProposalID[:]...)
	return append(b, v.Voter[:]...)
}

// Sign fills Voter and Signature with sk.
func (v *UpdateVote) Sign(sk *keys.PrivateKey) {
	v.Voter = sk.PublicKey()
	v.Signature = sk.Sign(v.SignedBytes())
}

func (v *UpdateVote) pack(p *wrappers.Packer) {
	p.PackID(v.ProposalID)
	p.PackFixedBytes(v.Voter[:])
	p.PackFixedBytes(v.Signature[:])
}

func unpackUpdateVote(p *wrappers.Packer) *UpdateVote {
	v := &UpdateVote{ProposalID: p.UnpackID()}
	p.UnpackInto(v.Voter[:])
	p.UnpackInto(v.Signature[:])
	return v
}
