// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reward

import (
	"errors"
	"fmt"

	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/wrappers"

	safemath "github.com/luxfi/praos/utils/math"
)

var (
	ErrInvalidRatio        = errors.New("invalid ratio")
	ErrInvalidEpochRate    = errors.New("reducing epoch rate must be non-zero")
	ErrUnknownReducingType = errors.New("unknown reducing type")
)

// ReducingType selects how the per-epoch contribution decreases over time.
type ReducingType byte

const (
	Linear ReducingType = iota + 1
	Halvening
)

func (r ReducingType) String() string {
	switch r {
	case Linear:
		return "linear"
	case Halvening:
		return "halvening"
	default:
		return "unknown"
	}
}

func (r ReducingType) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *ReducingType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "linear":
		*r = Linear
	case "halvening":
		*r = Halvening
	default:
		return fmt.Errorf("%w: %q", ErrUnknownReducingType, text)
	}
	return nil
}

// Ratio is a fraction in [0, 1].
type Ratio struct {
	Numerator   uint64 `json:"numerator"   yaml:"numerator"`
	Denominator uint64 `json:"denominator" yaml:"denominator"`
}

func (r Ratio) Verify() error {
	switch {
	case r.Denominator == 0:
		return fmt.Errorf("%w: zero denominator", ErrInvalidRatio)
	case r.Numerator > r.Denominator:
		return fmt.Errorf("%w: %d/%d is bigger than 1", ErrInvalidRatio, r.Numerator, r.Denominator)
	default:
		return nil
	}
}

// TaxType describes a tax: a fixed amount first, then a ratio of what is left,
// capped by MaxLimit when MaxLimit is non-zero.
type TaxType struct {
	Fixed    value.Value `json:"fixed"     yaml:"fixed"`
	Ratio    Ratio       `json:"ratio"     yaml:"ratio"`
	MaxLimit uint64      `json:"max-limit" yaml:"max_limit"`
}

// ZeroTax takes nothing.
var ZeroTax = TaxType{Ratio: Ratio{Numerator: 0, Denominator: 1}}

func (t TaxType) Verify() error {
	return t.Ratio.Verify()
}

// TaxDistribution is a value split between the tax and what remains.
type TaxDistribution struct {
	Taxed    value.Value
	AfterTax value.Value
}

// TaxCut applies t to v. Taxed + AfterTax always equals v.
func TaxCut(v value.Value, t TaxType) (TaxDistribution, error) {
	left, err := v.Sub(t.Fixed)
	if err != nil {
		// the fixed part alone takes everything
		return TaxDistribution{Taxed: v}, nil
	}
	if t.Ratio.Denominator == 0 {
		return TaxDistribution{}, fmt.Errorf("%w: zero denominator", ErrInvalidRatio)
	}
	cut, err := left.Ratio(t.Ratio.Numerator, t.Ratio.Denominator)
	if err != nil {
		return TaxDistribution{}, err
	}
	if t.MaxLimit != 0 {
		cut = cut.Min(value.Value(t.MaxLimit))
	}
	cut = cut.Min(left)
	afterTax, err := left.Sub(cut)
	if err != nil {
		return TaxDistribution{}, err
	}
	taxed, err := t.Fixed.Add(cut)
	if err != nil {
		return TaxDistribution{}, err
	}
	return TaxDistribution{Taxed: taxed, AfterTax: afterTax}, nil
}

// Parameters control how much of the rewards pot is released every epoch and
// how much of it the treasury takes.
type Parameters struct {
	TreasuryTax TaxType `json:"treasury-tax" yaml:"treasury_tax"`
	// InitialValue is the contribution of the first epochs.
	InitialValue uint64 `json:"initial-value" yaml:"initial_value"`
	// ReducementRatio is subtracted (Linear) or multiplied (Halvening) once
	// per ReducingEpochRate epochs.
	ReducementRatio   Ratio        `json:"reducement-ratio"    yaml:"reducement_ratio"`
	ReducingType      ReducingType `json:"reducing-type"       yaml:"reducing_type"`
	ReducingEpochRate uint32       `json:"reducing-epoch-rate" yaml:"reducing_epoch_rate"`
}

func (p Parameters) Verify() error {
	if p.ReducingEpochRate == 0 {
		return ErrInvalidEpochRate
	}
	if p.ReducingType != Linear && p.ReducingType != Halvening {
		return fmt.Errorf("%w: %d", ErrUnknownReducingType, p.ReducingType)
	}
	if err := p.ReducementRatio.Verify(); err != nil {
		return err
	}
	return p.TreasuryTax.Verify()
}

// Contribution returns the amount the rewards pot contributes to epoch. The
// actual release is further bounded by what is left in the pot.
func Contribution(epoch uint32, p Parameters) (value.Value, error) {
	if err := p.Verify(); err != nil {
		return value.Zero, err
	}
	zone := uint64(epoch / p.ReducingEpochRate)
	rr := p.ReducementRatio
	switch p.ReducingType {
	case Linear:
		// initial - ratio * zone, floored at zero
		product, err := safemath.Mul(rr.Numerator, zone)
		if err != nil {
			// the reduction exceeds any initial value
			return value.Zero, nil
		}
		reduceBy := product / rr.Denominator
		if reduceBy >= p.InitialValue {
			return value.Zero, nil
		}
		return value.Value(p.InitialValue - reduceBy), nil
	default:
		// initial * ratio ^ zone
		acc := p.InitialValue
		for i := uint64(0); i < zone && acc != 0; i++ {
			next, err := safemath.MulDiv(acc, rr.Numerator, rr.Denominator)
			if err != nil {
				return value.Zero, err
			}
			acc = next
		}
		return value.Value(acc), nil
	}
}

// Pack writes t as fixed || numerator || denominator || max limit.
func (t TaxType) Pack(p *wrappers.Packer) {
	p.PackLong(uint64(t.Fixed))
	p.PackLong(t.Ratio.Numerator)
	p.PackLong(t.Ratio.Denominator)
	p.PackLong(t.MaxLimit)
}

// UnpackTaxType reads a TaxType written by Pack and verifies it.
func UnpackTaxType(p *wrappers.Packer) (TaxType, error) {
	t := TaxType{
		Fixed: value.Value(p.UnpackLong()),
		Ratio: Ratio{
			Numerator:   p.UnpackLong(),
			Denominator: p.UnpackLong(),
		},
		MaxLimit: p.UnpackLong(),
	}
	if p.Errored() {
		return TaxType{}, p.Err
	}
	return t, t.Verify()
}
