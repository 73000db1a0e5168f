// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import "errors"

var (
	ErrInputNotFound       = errors.New("input not found")
	ErrUtxoAlreadyExists   = errors.New("utxo already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrCounterMismatch     = errors.New("spending counter mismatch")
	ErrNotEnoughFunds      = errors.New("not enough funds")
	ErrNeedTotalWithdrawal = errors.New("spending counter exhausted, only a total withdrawal is allowed")
	ErrPoolAlreadyExists   = errors.New("pool already exists")
	ErrPoolNotFound        = errors.New("pool not found")
	ErrPoolRetired         = errors.New("pool retired")
	ErrPotValueInvalid     = errors.New("pot value invalid")
	ErrInvalidSettings     = errors.New("invalid settings")
	ErrUpdateNotAllowed    = errors.New("update not allowed")
	ErrDuplicateProposal   = errors.New("update proposal already exists")
	ErrUnknownProposal     = errors.New("update proposal not found")
	ErrDuplicateVote       = errors.New("update vote already cast")
)
