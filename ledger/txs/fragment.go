// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

const maxFragmentSize = math.MaxUint16

var (
	_ Content = (*Initial)(nil)
	_ Content = (*OldUtxoDeclaration)(nil)
	_ Content = (*Transaction)(nil)
	_ Content = (*UpdateProposal)(nil)
	_ Content = (*UpdateVote)(nil)

	ErrDecoding         = errors.New("malformed fragment")
	ErrUnknownTag       = errors.New("unknown fragment tag")
	ErrFragmentTooLarge = errors.New("fragment too large")
)

// Tag is the first byte of an encoded fragment.
type Tag byte

const (
	TagInitial Tag = iota
	TagOldUtxoDeclaration
	TagTransaction
	TagOwnerStakeDelegation
	TagStakeDelegation
	TagPoolRegistration
	TagPoolRetirement
	TagPoolUpdate
	TagUpdateProposal
	TagUpdateVote
)

func (t Tag) String() string {
	switch t {
	case TagInitial:
		return "initial"
	case TagOldUtxoDeclaration:
		return "old-utxo-declaration"
	case TagTransaction:
		return "transaction"
	case TagOwnerStakeDelegation:
		return "owner-stake-delegation"
	case TagStakeDelegation:
		return "stake-delegation"
	case TagPoolRegistration:
		return "pool-registration"
	case TagPoolRetirement:
		return "pool-retirement"
	case TagPoolUpdate:
		return "pool-update"
	case TagUpdateProposal:
		return "update-proposal"
	case TagUpdateVote:
		return "update-vote"
	default:
		return "unknown"
	}
}

// Content is the body of a fragment.
type Content interface {
	Tag() Tag
	// Visit calls visitor with this content's concrete type
	Visit(visitor Visitor) error
	pack(p *wrappers.Packer)
}

// Visitor allows executing custom logic against every fragment kind.
type Visitor interface {
	Initial(*Initial) error
	OldUtxoDeclaration(*OldUtxoDeclaration) error
	Transaction(*Transaction) error
	UpdateProposal(*UpdateProposal) error
	UpdateVote(*UpdateVote) error
}

// Fragment is a unit of block content, encoded as
//
//	size (u16) || tag (u8) || body
//
// where size covers the tag and the body.
type Fragment struct {
	Content Content

	bytes []byte
	id    ids.ID
}

// NewFragment encodes content.
func NewFragment(content Content) (*Fragment, error) {
	p := wrappers.NewWriter(256, wrappers.ShortLen+2*maxFragmentSize)
	p.PackShort(0)
	p.PackByte(byte(content.Tag()))
	content.pack(p)
	if p.Errored() {
		return nil, p.Err
	}
	size := len(p.Bytes) - wrappers.ShortLen
	if size > maxFragmentSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFragmentTooLarge, size)
	}
	p.Bytes[0] = byte(size >> 8)
	p.Bytes[1] = byte(size)
	return newFragment(content, p.Bytes), nil
}

func newFragment(content Content, b []byte) *Fragment {
	return &Fragment{
		Content: content,
		bytes:   b,
		id:      hashing.ComputeID(b[wrappers.ShortLen:]),
	}
}

// ID is the digest of tag || body. For transactions it is also the
// identifier of the outputs they create.
func (f *Fragment) ID() ids.ID {
	return f.id
}

func (f *Fragment) Bytes() []byte {
	return f.bytes
}

func (f *Fragment) Tag() Tag {
	return f.Content.Tag()
}

// Parse decodes exactly one fragment.
func Parse(b []byte) (*Fragment, error) {
	p := wrappers.NewReader(b)
	f := unpackFragment(p)
	if err := p.Done(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecoding, err)
	}
	return f, nil
}

// ParseMany decodes a concatenation of fragments.
func ParseMany(b []byte) ([]*Fragment, error) {
	var fragments []*Fragment
	p := wrappers.NewReader(b)
	for p.Remaining() > 0 {
		f := unpackFragment(p)
		if p.Errored() {
			return nil, fmt.Errorf("%w: fragment %d: %w", ErrDecoding, len(fragments), p.Err)
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}

func unpackFragment(p *wrappers.Packer) *Fragment {
	size := int(p.UnpackShort())
	if p.Errored() {
		return nil
	}
	start := p.Offset - wrappers.ShortLen
	body := wrappers.NewReader(p.UnpackFixedBytes(size))
	if p.Errored() {
		return nil
	}
	raw := p.Bytes[start:p.Offset:p.Offset]

	content := unpackContent(body)
	if err := body.Done(); err != nil {
		p.Add(err)
		return nil
	}
	return newFragment(content, raw)
}

func unpackContent(p *wrappers.Packer) Content {
	tag := Tag(p.UnpackByte())
	if p.Errored() {
		return nil
	}
	switch tag {
	case TagInitial:
		return &Initial{Params: unpackConfigParams(p)}
	case TagOldUtxoDeclaration:
		return unpackOldUtxoDeclaration(p)
	case TagTransaction, TagOwnerStakeDelegation, TagStakeDelegation,
		TagPoolRegistration, TagPoolRetirement, TagPoolUpdate:
		return unpackTransaction(p, tag)
	case TagUpdateProposal:
		return unpackUpdateProposal(p)
	case TagUpdateVote:
		return unpackUpdateVote(p)
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownTag, tag))
		return nil
	}
}

// Initial carries the protocol parameters of a chain. It is only valid in
// block0, where it must come first.
type Initial struct {
	Params ConfigParams
}

func (*Initial) Tag() Tag {
	return TagInitial
}

func (i *Initial) Visit(visitor Visitor) error {
	return visitor.Initial(i)
}

func (i *Initial) pack(p *wrappers.Packer) {
	i.Params.pack(p)
}

// OldUtxoDeclaration creates legacy outputs. It is only valid in block0.
type OldUtxoDeclaration struct {
	Outputs []LegacyOutput
}

func (*OldUtxoDeclaration) Tag() Tag {
	return TagOldUtxoDeclaration
}

func (d *OldUtxoDeclaration) Visit(visitor Visitor) error {
	return visitor.OldUtxoDeclaration(d)
}

func (d *OldUtxoDeclaration) pack(p *wrappers.Packer) {
	if len(d.Outputs) > math.MaxUint8 {
		p.Add(fmt.Errorf("%w: %d legacy outputs", ErrTooManyOutputs, len(d.Outputs)))
		return
	}
	p.PackByte(byte(len(d.Outputs)))
	for _, out := range d.Outputs {
		p.PackID(ids.ID(out.Address))
		p.PackLong(uint64(out.Value))
	}
}

func unpackOldUtxoDeclaration(p *wrappers.Packer) *OldUtxoDeclaration {
	d := &OldUtxoDeclaration{
		Outputs: make([]LegacyOutput, p.UnpackByte()),
	}
	for i := range d.Outputs {
		d.Outputs[i].Address = LegacyAddress(p.UnpackID())
		d.Outputs[i].Value = value.Value(p.UnpackLong())
	}
	return d
}
