// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

// Status is what a Multiverse knows about a block.
type Status uint8

const (
	Unknown Status = iota
	// Rejected blocks failed validation and are remembered for a while so
	// they are not validated again.
	Rejected
	// Accepted blocks have a state that forks may build on.
	Accepted
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "Unknown"
	case Rejected:
		return "Rejected"
	case Accepted:
		return "Accepted"
	default:
		return "Unknown"
	}
}
