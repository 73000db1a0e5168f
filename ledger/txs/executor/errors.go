// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"errors"

	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
)

var (
	ErrInvalidSignature  = state.ErrInvalidSignature
	ErrUpdateNotAllowed  = state.ErrUpdateNotAllowed
	ErrNotBalanced       = errors.New("inputs do not balance outputs and fee")
	ErrUtxoValueMismatch = errors.New("input value does not match the spent output")
	ErrZeroOutput        = errors.New("output of zero value")

	ErrInsufficientManagementSignatures = txs.ErrNotEnoughSignatures
	ErrDuplicateSignature               = txs.ErrDuplicateSignature
	ErrInvalidCertificateSignature      = errors.New("invalid certificate signature")
	ErrInvalidPoolRegistration          = errors.New("invalid pool registration")
	ErrPoolUpdateNotSupported           = errors.New("pool updates are not supported")
	ErrInvalidOwnerStakeDelegation      = errors.New("owner stake delegation must spend exactly one account or multisig input and create no output")

	ErrBlock0Only         = errors.New("fragment only allowed in block0")
	ErrNotAllowedInBlock0 = errors.New("fragment not allowed in block0")
	ErrMissingInitial     = errors.New("block0 does not start with an initial fragment")
	ErrWrongChainLength   = errors.New("wrong chain length")
	ErrNonMonotonicDate   = errors.New("block date does not follow its parent")
	ErrInvalidBlockDate   = errors.New("block slot beyond the end of its epoch")
	ErrTooManyFragments   = errors.New("too many fragments in block")
)
