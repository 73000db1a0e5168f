// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import "fmt"

// Date is the epoch and slot of a block.
type Date struct {
	Epoch uint32 `json:"epoch" yaml:"epoch"`
	Slot  uint32 `json:"slot"  yaml:"slot"`
}

// Compare orders dates chronologically.
func (d Date) Compare(other Date) int {
	switch {
	case d.Epoch < other.Epoch:
		return -1
	case d.Epoch > other.Epoch:
		return 1
	case d.Slot < other.Slot:
		return -1
	case d.Slot > other.Slot:
		return 1
	default:
		return 0
	}
}

// FlatSlot is the number of slots since the start of epoch 0.
func (d Date) FlatSlot(slotsPerEpoch uint32) uint64 {
	return uint64(d.Epoch)*uint64(slotsPerEpoch) + uint64(d.Slot)
}

// Next returns the date of the following slot.
func (d Date) Next(slotsPerEpoch uint32) Date {
	if d.Slot+1 >= slotsPerEpoch {
		return Date{Epoch: d.Epoch + 1}
	}
	return Date{Epoch: d.Epoch, Slot: d.Slot + 1}
}

func (d Date) String() string {
	return fmt.Sprintf("%d.%d", d.Epoch, d.Slot)
}
