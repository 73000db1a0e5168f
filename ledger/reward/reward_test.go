// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/praos/ledger/value"
	"github.com/luxfi/praos/utils/wrappers"
)

func TestTaxCut(t *testing.T) {
	tests := []struct {
		name     string
		v        value.Value
		tax      TaxType
		expected TaxDistribution
	}{
		{
			name:     "zero tax",
			v:        100,
			tax:      ZeroTax,
			expected: TaxDistribution{Taxed: 0, AfterTax: 100},
		},
		{
			name:     "fixed bigger than value",
			v:        10,
			tax:      TaxType{Fixed: 20, Ratio: Ratio{0, 1}},
			expected: TaxDistribution{Taxed: 10, AfterTax: 0},
		},
		{
			name:     "fixed then ratio",
			v:        110,
			tax:      TaxType{Fixed: 10, Ratio: Ratio{1, 10}},
			expected: TaxDistribution{Taxed: 20, AfterTax: 90},
		},
		{
			name:     "ratio capped by limit",
			v:        1000,
			tax:      TaxType{Ratio: Ratio{1, 2}, MaxLimit: 100},
			expected: TaxDistribution{Taxed: 100, AfterTax: 900},
		},
		{
			name:     "full ratio",
			v:        math.MaxUint64,
			tax:      TaxType{Ratio: Ratio{1, 1}},
			expected: TaxDistribution{Taxed: math.MaxUint64, AfterTax: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			got, err := TaxCut(tt.v, tt.tax)
			require.NoError(err)
			require.Equal(tt.expected, got)

			total, err := got.Taxed.Add(got.AfterTax)
			require.NoError(err)
			require.Equal(tt.v, total)
		})
	}
}

func TestContribution(t *testing.T) {
	linear := Parameters{
		TreasuryTax:       ZeroTax,
		InitialValue:      1000,
		ReducementRatio:   Ratio{100, 1},
		ReducingType:      Linear,
		ReducingEpochRate: 10,
	}
	halvening := linear
	halvening.ReducingType = Halvening
	halvening.ReducementRatio = Ratio{1, 2}

	tests := []struct {
		name     string
		params   Parameters
		epoch    uint32
		expected value.Value
	}{
		{"linear first zone", linear, 9, 1000},
		{"linear second zone", linear, 10, 900},
		{"linear exhausted", linear, 200, 0},
		{"halvening first zone", halvening, 0, 1000},
		{"halvening third zone", halvening, 25, 250},
		{"halvening exhausted", halvening, math.MaxUint32, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			got, err := Contribution(tt.epoch, tt.params)
			require.NoError(err)
			require.Equal(tt.expected, got)
		})
	}
}

func TestParametersVerify(t *testing.T) {
	require := require.New(t)

	p := Parameters{
		TreasuryTax:       ZeroTax,
		ReducementRatio:   Ratio{1, 2},
		ReducingType:      Linear,
		ReducingEpochRate: 0,
	}
	require.ErrorIs(p.Verify(), ErrInvalidEpochRate)

	p.ReducingEpochRate = 1
	p.ReducingType = 0
	require.ErrorIs(p.Verify(), ErrUnknownReducingType)

	p.ReducingType = Halvening
	p.ReducementRatio = Ratio{3, 2}
	require.ErrorIs(p.Verify(), ErrInvalidRatio)
}

func TestTaxTypePacking(t *testing.T) {
	require := require.New(t)

	tax := TaxType{Fixed: 5, Ratio: Ratio{1, 3}, MaxLimit: 9}
	p := wrappers.NewWriter(32, 32)
	tax.Pack(p)
	require.NoError(p.Err)

	got, err := UnpackTaxType(wrappers.NewReader(p.Bytes))
	require.NoError(err)
	require.Equal(tax, got)

	bad := wrappers.NewWriter(32, 32)
	TaxType{Ratio: Ratio{2, 1}}.Pack(bad)
	_, err = UnpackTaxType(wrappers.NewReader(bad.Bytes))
	require.ErrorIs(err, ErrInvalidRatio)
}
