// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"

	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/utils/persistent"
)

// Utxos are the unspent outputs of regular transactions.
type Utxos = UtxoSet[txs.Output]

// LegacyUtxos are the unspent outputs declared for legacy addresses.
type LegacyUtxos = UtxoSet[txs.LegacyOutput]

// UtxoSet maps every output reference to an output that was created and not
// spent yet.
type UtxoSet[O any] struct {
	m persistent.Map[txs.OutputRef, O]
}

func NewUtxoSet[O any]() UtxoSet[O] {
	return UtxoSet[O]{
		m: persistent.NewMap[txs.OutputRef, O](func(a, b txs.OutputRef) bool {
			return a.Compare(b) < 0
		}),
	}
}

func (u UtxoSet[O]) Len() int {
	return u.m.Len()
}

func (u UtxoSet[O]) Get(ref txs.OutputRef) (O, bool) {
	return u.m.Get(ref)
}

// Spend removes ref and returns its output.
func (u UtxoSet[O]) Spend(ref txs.OutputRef) (UtxoSet[O], O, error) {
	m, out, err := u.m.Remove(ref)
	if err != nil {
		return u, out, fmt.Errorf("%w: %s", ErrInputNotFound, ref)
	}
	return UtxoSet[O]{m: m}, out, nil
}

// Create adds an output. Creating an existing reference is a bug of the
// caller, reported as ErrUtxoAlreadyExists.
func (u UtxoSet[O]) Create(ref txs.OutputRef, out O) (UtxoSet[O], error) {
	m, err := u.m.Insert(ref, out)
	if err != nil {
		return u, fmt.Errorf("%w: %s", ErrUtxoAlreadyExists, ref)
	}
	return UtxoSet[O]{m: m}, nil
}

// Ascend calls f for every output in reference order until f returns false.
func (u UtxoSet[O]) Ascend(f func(ref txs.OutputRef, out O) bool) {
	u.m.Ascend(f)
}
