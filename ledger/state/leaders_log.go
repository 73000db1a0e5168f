// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/praos/utils/persistent"
)

// LeadersParticipationRecord counts the blocks produced by every pool during
// the current epoch. Rewards are weighted by it.
type LeadersParticipationRecord struct {
	m     persistent.Map[ids.ID, uint32]
	total uint64
}

func NewLeadersParticipationRecord() LeadersParticipationRecord {
	return LeadersParticipationRecord{
		m: persistent.NewMap[ids.ID, uint32](func(a, b ids.ID) bool {
			return a.Compare(b) < 0
		}),
	}
}

// Increase records one more block by pool.
func (r LeadersParticipationRecord) Increase(pool ids.ID) LeadersParticipationRecord {
	count, _ := r.m.Get(pool)
	return LeadersParticipationRecord{
		m:     r.m.Set(pool, count+1),
		total: r.total + 1,
	}
}

// Get returns the number of blocks produced by pool.
func (r LeadersParticipationRecord) Get(pool ids.ID) uint32 {
	count, _ := r.m.Get(pool)
	return count
}

// Total is the number of blocks recorded.
func (r LeadersParticipationRecord) Total() uint64 {
	return r.total
}

// Len is the number of pools that produced at least one block.
func (r LeadersParticipationRecord) Len() int {
	return r.m.Len()
}

// Ascend calls f for every pool in id order until f returns false.
func (r LeadersParticipationRecord) Ascend(f func(pool ids.ID, count uint32) bool) {
	r.m.Ascend(f)
}
