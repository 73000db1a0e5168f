// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fee

import (
	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/wrappers"

	safemath "github.com/luxfi/praos/utils/math"
)

var _ Algorithm = LinearFee{}

// Shape is what a fee algorithm needs to know about a transaction.
type Shape interface {
	NumInputs() int
	NumOutputs() int
	HasCertificate() bool
}

// Algorithm calculates the fee a transaction must pay to be included in a
// block.
type Algorithm interface {
	CalculateFor(tx Shape) (value.Value, error)
}

// LinearFee charges
//
//	constant + coefficient * (inputs + outputs) [+ certificate]
type LinearFee struct {
	Constant    uint64 `json:"constant"    yaml:"constant"`
	Coefficient uint64 `json:"coefficient" yaml:"coefficient"`
	Certificate uint64 `json:"certificate" yaml:"certificate"`
}

func (f LinearFee) CalculateFor(tx Shape) (value.Value, error) {
	n := uint64(tx.NumInputs()) + uint64(tx.NumOutputs())
	fee, err := safemath.Mul(f.Coefficient, n)
	if err != nil {
		return value.Zero, err
	}
	fee, err = safemath.Add(fee, f.Constant)
	if err != nil {
		return value.Zero, err
	}
	if tx.HasCertificate() {
		fee, err = safemath.Add(fee, f.Certificate)
		if err != nil {
			return value.Zero, err
		}
	}
	return value.Value(fee), nil
}

func (f LinearFee) Pack(p *wrappers.Packer) {
	p.PackLong(f.Constant)
	p.PackLong(f.Coefficient)
	p.PackLong(f.Certificate)
}

func UnpackLinearFee(p *wrappers.Packer) LinearFee {
	return LinearFee{
		Constant:    p.UnpackLong(),
		Coefficient: p.UnpackLong(),
		Certificate: p.UnpackLong(),
	}
}
