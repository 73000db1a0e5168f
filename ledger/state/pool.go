// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/utils/persistent"
)

// PoolState is a registered pool and its retirement marker.
type PoolState struct {
	Registration *txs.PoolRegistration
	// Retired is set by a retirement certificate; the pool is retired from
	// the flat slot RetirementTime on.
	Retired        bool
	RetirementTime uint64
}

// IsRetiredAt reports whether the pool is retired at flatSlot.
func (p PoolState) IsRetiredAt(flatSlot uint64) bool {
	return p.Retired && flatSlot >= p.RetirementTime
}

// Pools is the stake pool registry, keyed by pool id. Registrations are never
// updated in place.
type Pools struct {
	m persistent.Map[ids.ID, PoolState]
}

func NewPools() Pools {
	return Pools{
		m: persistent.NewMap[ids.ID, PoolState](func(a, b ids.ID) bool {
			return a.Compare(b) < 0
		}),
	}
}

func (p Pools) Len() int {
	return p.m.Len()
}

func (p Pools) Get(id ids.ID) (PoolState, bool) {
	return p.m.Get(id)
}

// Ascend calls f for every pool in id order until f returns false.
func (p Pools) Ascend(f func(id ids.ID, pool PoolState) bool) {
	p.m.Ascend(f)
}

// Register adds a pool under the id of its registration.
func (p Pools) Register(registration *txs.PoolRegistration) (Pools, error) {
	id := registration.ID()
	m, err := p.m.Insert(id, PoolState{Registration: registration})
	if err != nil {
		return p, fmt.Errorf("%w: %s", ErrPoolAlreadyExists, id)
	}
	return Pools{m: m}, nil
}

// Retire marks id as retired from retirementTime on. A pool can only be
// retired once.
func (p Pools) Retire(id ids.ID, retirementTime uint64) (Pools, error) {
	pool, ok := p.m.Get(id)
	switch {
	case !ok:
		return p, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	case pool.Retired:
		return p, fmt.Errorf("%w: %s at %d", ErrPoolRetired, id, pool.RetirementTime)
	}
	pool.Retired = true
	pool.RetirementTime = retirementTime
	return Pools{m: p.m.Set(id, pool)}, nil
}
