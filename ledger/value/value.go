// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package value defines the monetary amount of the ledger. Every operation is
// checked: an overflow or underflow is reported as an error and never wraps.
package value

import (
	"strconv"

	safemath "github.com/luxfi/praos/utils/math"
)

var (
	ErrOverflow  = safemath.ErrOverflow
	ErrUnderflow = safemath.ErrUnderflow
)

// Value is a non-negative amount of the base currency.
type Value uint64

const Zero Value = 0

// Add returns v + other.
func (v Value) Add(other Value) (Value, error) {
	return safemath.Add(v, other)
}

// Sub returns v - other.
func (v Value) Sub(other Value) (Value, error) {
	return safemath.Sub(v, other)
}

// Scale returns v * n.
func (v Value) Scale(n uint64) (Value, error) {
	r, err := safemath.Mul(uint64(v), n)
	return Value(r), err
}

// SplitIn divides v into n equal parts and returns the part and what is left
// over. Splitting in zero parts leaves everything as remainder.
func (v Value) SplitIn(n uint64) (part Value, remainder Value) {
	if n == 0 {
		return Zero, v
	}
	return v / Value(n), v % Value(n)
}

// Ratio returns floor(v * numerator / denominator).
func (v Value) Ratio(numerator, denominator uint64) (Value, error) {
	r, err := safemath.MulDiv(uint64(v), numerator, denominator)
	return Value(r), err
}

// Min returns the smaller of v and other.
func (v Value) Min(other Value) Value {
	return min(v, other)
}

func (v Value) IsZero() bool {
	return v == Zero
}

func (v Value) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

// Sum adds values, failing on the first overflow.
func Sum(values ...Value) (Value, error) {
	return safemath.Sum(values...)
}
