// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/kes"
	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/crypto/vrf"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

const maxHeaderSize = 4096

var (
	ErrUnknownProofKind = errors.New("unknown proof kind")
	ErrMissingProof     = errors.New("header proof does not match its kind")
	ErrMalformedHeader  = errors.New("malformed header")
)

// ProofKind tells how the author of a block proves it was the slot leader.
type ProofKind byte

const (
	// ProofNone is only used by block0.
	ProofNone ProofKind = iota
	ProofBFT
	ProofGenesisPraos
)

func (k ProofKind) String() string {
	switch k {
	case ProofNone:
		return "none"
	case ProofBFT:
		return "bft"
	case ProofGenesisPraos:
		return "genesis-praos"
	default:
		return "unknown"
	}
}

// BFTProof is the signature of the round robin leader of the slot.
type BFTProof struct {
	Leader    keys.PublicKey
	Signature keys.Signature
}

// PraosProof shows the pool won the slot lottery and holds the KES key of
// the current period.
type PraosProof struct {
	PoolID       ids.ID
	VRFProof     vrf.Proof
	KESSignature kes.Signature
}

// Header is the signed summary of a block.
type Header struct {
	Kind ProofKind
	// ContentSize and ContentHash commit to the fragments of the block.
	ContentSize uint32
	Date        Date
	ChainLength uint32
	ContentHash ids.ID
	Parent      ids.ID

	BFT   *BFTProof
	Praos *PraosProof

	bytes []byte
	id    ids.ID
}

func (h *Header) packCommon(p *wrappers.Packer) {
	p.PackByte(byte(h.Kind))
	p.PackInt(h.ContentSize)
	p.PackInt(h.Date.Epoch)
	p.PackInt(h.Date.Slot)
	p.PackInt(h.ChainLength)
	p.PackID(h.ContentHash)
	p.PackID(h.Parent)
}

// packUnsigned writes everything the leader signature covers.
func (h *Header) packUnsigned(p *wrappers.Packer) {
	h.packCommon(p)
	switch h.Kind {
	case ProofNone:
	case ProofBFT:
		if h.BFT == nil {
			p.Add(ErrMissingProof)
			return
		}
		p.PackFixedBytes(h.BFT.Leader[:])
	case ProofGenesisPraos:
		if h.Praos == nil {
			p.Add(ErrMissingProof)
			return
		}
		p.PackID(h.Praos.PoolID)
		p.PackFixedBytes(h.Praos.VRFProof[:])
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownProofKind, h.Kind))
	}
}

// UnsignedBytes is the message signed by the slot leader.
func (h *Header) UnsignedBytes() ([]byte, error) {
	p := wrappers.NewWriter(256, maxHeaderSize)
	h.packUnsigned(p)
	return p.Bytes, p.Err
}

func (h *Header) pack(p *wrappers.Packer) {
	h.packUnsigned(p)
	switch h.Kind {
	case ProofBFT:
		p.PackFixedBytes(h.BFT.Signature[:])
	case ProofGenesisPraos:
		p.PackShortBytes(h.Praos.KESSignature.Bytes())
	}
}

// Seal encodes h and computes its identifier. A header must be sealed, or
// parsed, before its ID or Bytes are read.
func (h *Header) Seal() error {
	p := wrappers.NewWriter(256, maxHeaderSize)
	h.pack(p)
	if p.Errored() {
		return p.Err
	}
	h.bytes = p.Bytes
	h.id = hashing.ComputeID(p.Bytes)
	return nil
}

func (h *Header) ID() ids.ID {
	return h.id
}

func (h *Header) Bytes() []byte {
	return h.bytes
}

// SignBFT attaches the BFT proof of sk and seals h.
func (h *Header) SignBFT(sk *keys.PrivateKey) error {
	h.Kind = ProofBFT
	h.BFT = &BFTProof{Leader: sk.PublicKey()}
	msg, err := h.UnsignedBytes()
	if err != nil {
		return err
	}
	h.BFT.Signature = sk.Sign(msg)
	return h.Seal()
}

// SignPraos attaches the Genesis Praos proof and seals h. The caller is
// responsible for evolving sk to the period of the block date.
func (h *Header) SignPraos(poolID ids.ID, proof vrf.Proof, sk *kes.SecretKey) error {
	h.Kind = ProofGenesisPraos
	h.Praos = &PraosProof{PoolID: poolID, VRFProof: proof}
	msg, err := h.UnsignedBytes()
	if err != nil {
		return err
	}
	h.Praos.KESSignature = sk.Sign(msg)
	return h.Seal()
}

// ParseHeader decodes a header produced by Seal.
func ParseHeader(b []byte) (*Header, error) {
	p := wrappers.NewReader(b)
	h := unpackHeader(p)
	if err := p.Done(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	h.bytes = b
	h.id = hashing.ComputeID(b)
	return h, nil
}

func unpackHeader(p *wrappers.Packer) *Header {
	h := &Header{
		Kind:        ProofKind(p.UnpackByte()),
		ContentSize: p.UnpackInt(),
		Date: Date{
			Epoch: p.UnpackInt(),
			Slot:  p.UnpackInt(),
		},
		ChainLength: p.UnpackInt(),
		ContentHash: p.UnpackID(),
		Parent:      p.UnpackID(),
	}
	switch h.Kind {
	case ProofNone:
	case ProofBFT:
		h.BFT = &BFTProof{}
		p.UnpackInto(h.BFT.Leader[:])
		p.UnpackInto(h.BFT.Signature[:])
	case ProofGenesisPraos:
		h.Praos = &PraosProof{PoolID: p.UnpackID()}
		p.UnpackInto(h.Praos.VRFProof[:])
		sig, err := kes.ParseSignature(p.UnpackShortBytes())
		if !p.Errored() {
			p.Add(err)
		}
		h.Praos.KESSignature = sig
	default:
		p.Add(fmt.Errorf("%w: %d", ErrUnknownProofKind, h.Kind))
	}
	return h
}
