// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package block defines block headers, their leadership proofs and the
// binary encoding of blocks.
package block

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

var (
	ErrContentMismatch = errors.New("header does not match block contents")
	ErrContentTooLarge = errors.New("block contents too large")
	ErrMalformedBlock  = errors.New("malformed block")
)

// Block is a header and the fragments it commits to.
type Block struct {
	Header    *Header
	Fragments []*txs.Fragment
}

// ContentCommitment returns the hash and size of fragments as committed in a
// header.
func ContentCommitment(fragments []*txs.Fragment) (ids.ID, uint32, error) {
	var size int
	for _, f := range fragments {
		size += len(f.Bytes())
	}
	if uint64(size) > math.MaxUint32 {
		return ids.Empty, 0, fmt.Errorf("%w: %d bytes", ErrContentTooLarge, size)
	}
	bufs := make([][]byte, len(fragments))
	for i, f := range fragments {
		bufs[i] = f.Bytes()
	}
	return hashing.ComputeID(bufs...), uint32(size), nil
}

// NewHeader returns the unsigned header of a block extending parent at date
// with fragments.
func NewHeader(parent *Header, date Date, fragments []*txs.Fragment) (*Header, error) {
	hash, size, err := ContentCommitment(fragments)
	if err != nil {
		return nil, err
	}
	return &Header{
		ContentSize: size,
		Date:        date,
		ChainLength: parent.ChainLength + 1,
		ContentHash: hash,
		Parent:      parent.ID(),
	}, nil
}

// NewGenesis builds the sealed block0 of a chain.
func NewGenesis(fragments []*txs.Fragment) (*Block, error) {
	hash, size, err := ContentCommitment(fragments)
	if err != nil {
		return nil, err
	}
	h := &Header{
		Kind:        ProofNone,
		ContentSize: size,
		ContentHash: hash,
		Parent:      ids.Empty,
	}
	if err := h.Seal(); err != nil {
		return nil, err
	}
	return &Block{Header: h, Fragments: fragments}, nil
}

func (b *Block) ID() ids.ID {
	return b.Header.ID()
}

// VerifyContents checks the header commits to the fragments of b.
func (b *Block) VerifyContents() error {
	hash, size, err := ContentCommitment(b.Fragments)
	if err != nil {
		return err
	}
	if hash != b.Header.ContentHash || size != b.Header.ContentSize {
		return fmt.Errorf("%w: %d bytes hashing to %s, header declares %d bytes hashing to %s",
			ErrContentMismatch, size, hash, b.Header.ContentSize, b.Header.ContentHash)
	}
	return nil
}

// Bytes encodes b as header size (u16) || header || fragments.
func (b *Block) Bytes() []byte {
	header := b.Header.Bytes()
	size := wrappers.ShortLen + len(header)
	for _, f := range b.Fragments {
		size += len(f.Bytes())
	}
	p := wrappers.NewWriter(size, size)
	p.PackShortBytes(header)
	for _, f := range b.Fragments {
		p.PackFixedBytes(f.Bytes())
	}
	return p.Bytes
}

// Parse decodes a block produced by Bytes. It does not check the header
// against the fragments; see VerifyContents.
func Parse(b []byte) (*Block, error) {
	p := wrappers.NewReader(b)
	headerBytes := p.UnpackShortBytes()
	if p.Errored() {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBlock, p.Err)
	}
	header, err := ParseHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	fragments, err := txs.ParseMany(b[p.Offset:])
	if err != nil {
		return nil, err
	}
	return &Block{Header: header, Fragments: fragments}, nil
}
