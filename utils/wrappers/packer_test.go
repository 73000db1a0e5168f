// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestPackerIntegers(t *testing.T) {
	require := require.New(t)

	p := NewWriter(0, 64)
	p.PackByte(0x01)
	p.PackShort(0x0203)
	p.PackInt(0x04050607)
	p.PackLong(0x08090a0b0c0d0e0f)
	require.NoError(p.Err)
	require.Equal([]byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
	}, p.Bytes)

	r := NewReader(p.Bytes)
	require.Equal(byte(0x01), r.UnpackByte())
	require.Equal(uint16(0x0203), r.UnpackShort())
	require.Equal(uint32(0x04050607), r.UnpackInt())
	require.Equal(uint64(0x08090a0b0c0d0e0f), r.UnpackLong())
	require.NoError(r.Done())
}

func TestPackerMaxSize(t *testing.T) {
	require := require.New(t)

	p := NewWriter(0, 3)
	p.PackShort(1)
	p.PackShort(2)
	require.ErrorIs(p.Err, ErrInsufficientLength)
}

func TestPackerInsufficientInput(t *testing.T) {
	require := require.New(t)

	r := NewReader([]byte{0x00, 0x01})
	require.Zero(r.UnpackInt())
	require.ErrorIs(r.Err, ErrInsufficientLength)

	// the first error sticks
	r.UnpackByte()
	require.ErrorIs(r.Err, ErrInsufficientLength)
}

func TestPackerTrailingBytes(t *testing.T) {
	require := require.New(t)

	r := NewReader([]byte{0x00, 0x01, 0x02})
	r.UnpackShort()
	require.ErrorIs(r.Done(), ErrTrailingBytes)
}

func TestPackerIDAndBytes(t *testing.T) {
	require := require.New(t)

	id := ids.ID{1, 2, 3}
	p := NewWriter(0, 1024)
	p.PackID(id)
	p.PackShortBytes([]byte("hello"))
	p.PackBytes([]byte("world"))
	require.NoError(p.Err)

	r := NewReader(p.Bytes)
	require.Equal(id, r.UnpackID())
	require.Equal([]byte("hello"), r.UnpackShortBytes())
	require.Equal([]byte("world"), r.UnpackLimitedBytes(5))
	require.NoError(r.Done())

	r = NewReader(p.Bytes)
	r.UnpackID()
	r.UnpackShortBytes()
	require.Nil(r.UnpackLimitedBytes(4))
	require.ErrorIs(r.Err, errOversized)
}
