// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/luxfi/ids"
)

var (
	ErrInsufficientLength = errors.New("packer has insufficient length for input")
	ErrTrailingBytes      = errors.New("unexpected trailing bytes")
	errNegativeOffset     = errors.New("negative offset")
	errInvalidInput       = errors.New("input does not match expected format")
	errOversized          = errors.New("size is larger than limit")
)

// Packer packs and unpacks a byte array from/to standard values. Every
// multi-byte integer is big endian.
type Packer struct {
	Errs

	// The largest allowed size of expanding the byte array
	MaxSize int
	// The current byte array
	Bytes []byte
	// The offset that is being written to in the byte array
	Offset int
}

// NewWriter returns a packer that writes into a fresh buffer of at most
// maxSize bytes.
func NewWriter(initialSize, maxSize int) *Packer {
	return &Packer{
		MaxSize: maxSize,
		Bytes:   make([]byte, 0, initialSize),
	}
}

// NewReader returns a packer that reads from b.
func NewReader(b []byte) *Packer {
	return &Packer{
		MaxSize: len(b),
		Bytes:   b,
	}
}

// PackByte appends a byte to the byte array
func (p *Packer) PackByte(val byte) {
	p.expand(ByteLen)
	if p.Errored() {
		return
	}

	p.Bytes[p.Offset] = val
	p.Offset++
}

// UnpackByte unpacks a byte from the byte array
func (p *Packer) UnpackByte() byte {
	p.checkSpace(ByteLen)
	if p.Errored() {
		return 0
	}

	val := p.Bytes[p.Offset]
	p.Offset += ByteLen
	return val
}

// PackShort appends a short to the byte array
func (p *Packer) PackShort(val uint16) {
	p.expand(ShortLen)
	if p.Errored() {
		return
	}

	binary.BigEndian.PutUint16(p.Bytes[p.Offset:], val)
	p.Offset += ShortLen
}

// UnpackShort unpacks a short from the byte array
func (p *Packer) UnpackShort() uint16 {
	p.checkSpace(ShortLen)
	if p.Errored() {
		return 0
	}

	val := binary.BigEndian.Uint16(p.Bytes[p.Offset:])
	p.Offset += ShortLen
	return val
}

// PackInt appends an int to the byte array
func (p *Packer) PackInt(val uint32) {
	p.expand(IntLen)
	if p.Errored() {
		return
	}

	binary.BigEndian.PutUint32(p.Bytes[p.Offset:], val)
	p.Offset += IntLen
}

// UnpackInt unpacks an int from the byte array
func (p *Packer) UnpackInt() uint32 {
	p.checkSpace(IntLen)
	if p.Errored() {
		return 0
	}

	val := binary.BigEndian.Uint32(p.Bytes[p.Offset:])
	p.Offset += IntLen
	return val
}

// PackLong appends a long to the byte array
func (p *Packer) PackLong(val uint64) {
	p.expand(LongLen)
	if p.Errored() {
		return
	}

	binary.BigEndian.PutUint64(p.Bytes[p.Offset:], val)
	p.Offset += LongLen
}

// UnpackLong unpacks a long from the byte array
func (p *Packer) UnpackLong() uint64 {
	p.checkSpace(LongLen)
	if p.Errored() {
		return 0
	}

	val := binary.BigEndian.Uint64(p.Bytes[p.Offset:])
	p.Offset += LongLen
	return val
}

// PackFixedBytes appends a byte slice with no length descriptor to the byte array
func (p *Packer) PackFixedBytes(bytes []byte) {
	p.expand(len(bytes))
	if p.Errored() {
		return
	}

	copy(p.Bytes[p.Offset:], bytes)
	p.Offset += len(bytes)
}

// UnpackFixedBytes unpacks a byte slice with no length descriptor from the
// byte array. The returned slice is a copy.
func (p *Packer) UnpackFixedBytes(size int) []byte {
	p.checkSpace(size)
	if p.Errored() {
		return nil
	}

	bytes := make([]byte, size)
	copy(bytes, p.Bytes[p.Offset:p.Offset+size])
	p.Offset += size
	return bytes
}

// UnpackInto fills dst from the byte array.
func (p *Packer) UnpackInto(dst []byte) {
	p.checkSpace(len(dst))
	if p.Errored() {
		return
	}

	copy(dst, p.Bytes[p.Offset:])
	p.Offset += len(dst)
}

// PackID appends a 256-bit identifier.
func (p *Packer) PackID(id ids.ID) {
	p.PackFixedBytes(id[:])
}

// UnpackID unpacks a 256-bit identifier.
func (p *Packer) UnpackID() ids.ID {
	var id ids.ID
	p.UnpackInto(id[:])
	return id
}

// PackShortBytes appends a byte slice prefixed by its length as a short.
func (p *Packer) PackShortBytes(bytes []byte) {
	if len(bytes) > math.MaxUint16 {
		p.Add(errOversized)
		return
	}
	p.PackShort(uint16(len(bytes)))
	p.PackFixedBytes(bytes)
}

// UnpackShortBytes unpacks a byte slice prefixed by its length as a short.
func (p *Packer) UnpackShortBytes() []byte {
	size := p.UnpackShort()
	return p.UnpackFixedBytes(int(size))
}

// PackBytes appends a byte slice prefixed by its length as an int.
func (p *Packer) PackBytes(bytes []byte) {
	if uint64(len(bytes)) > math.MaxUint32 {
		p.Add(errOversized)
		return
	}
	p.PackInt(uint32(len(bytes)))
	p.PackFixedBytes(bytes)
}

// UnpackLimitedBytes unpacks an int-prefixed byte slice. If the size of the
// slice is greater than limit, adds errOversized to the packer and returns nil.
func (p *Packer) UnpackLimitedBytes(limit uint32) []byte {
	size := p.UnpackInt()
	if size > limit {
		p.Add(errOversized)
		return nil
	}
	return p.UnpackFixedBytes(int(size))
}

// Remaining returns the number of unread bytes.
func (p *Packer) Remaining() int {
	return len(p.Bytes) - p.Offset
}

// Done records ErrTrailingBytes if any byte is left unread.
func (p *Packer) Done() error {
	if !p.Errored() && p.Remaining() != 0 {
		p.Add(ErrTrailingBytes)
	}
	return p.Err
}

// checkSpace requires that there is at least bytes of write space left in the
// byte array. If this is not true, an error is added to the packer.
func (p *Packer) checkSpace(bytes int) {
	switch {
	case p.Offset < 0:
		p.Add(errNegativeOffset)
	case bytes < 0:
		p.Add(errInvalidInput)
	case len(p.Bytes)-p.Offset < bytes:
		p.Add(ErrInsufficientLength)
	}
}

// expand ensures that there is bytes bytes left of space in the byte slice.
// If this is not allowed due to the maximum size, an error is added to the packer.
func (p *Packer) expand(bytes int) {
	neededSize := bytes + p.Offset
	switch {
	case neededSize <= len(p.Bytes):
		return
	case neededSize > p.MaxSize:
		p.Add(ErrInsufficientLength)
		return
	case neededSize <= cap(p.Bytes):
		p.Bytes = p.Bytes[:neededSize]
		return
	default:
		p.Bytes = append(p.Bytes[:cap(p.Bytes)], make([]byte, neededSize-cap(p.Bytes))...)
	}
}
