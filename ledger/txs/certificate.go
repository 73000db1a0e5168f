// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import (
	"errors"
	"fmt"
	"math"

	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/kes"
	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/crypto/vrf"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/utils/hashing"
	"github.com/luxfi/praos/utils/wrappers"
)

const (
	MaxOwners    = 31
	MaxOperators = 3
)

var (
	_ Certificate = (*PoolRegistration)(nil)
	_ Certificate = (*PoolRetirement)(nil)
	_ Certificate = (*PoolUpdate)(nil)
	_ Certificate = (*StakeDelegation)(nil)
	_ Certificate = (*OwnerStakeDelegation)(nil)

	ErrNoOwners            = errors.New("pool has no owner")
	ErrTooManyOwners       = errors.New("pool has too many owners")
	ErrTooManyOperators    = errors.New("pool has too many operators")
	ErrInvalidThreshold    = errors.New("management threshold must be in [1, owners]")
	ErrDuplicateOwner      = errors.New("pool owner declared twice")
	ErrMissingRegistration = errors.New("missing registration")
)

// Certificate is the payload of a transaction that changes stake or pool
// state. Certificates are the only way such state changes.
type Certificate interface {
	Tag() Tag
	// Visit calls visitor with this certificate's concrete type
	Visit(visitor CertificateVisitor) error
	pack(p *wrappers.Packer)
}

// CertificateVisitor allows executing custom logic against every certificate
// kind.
type CertificateVisitor interface {
	PoolRegistration(*PoolRegistration) error
	PoolRetirement(*PoolRetirement) error
	PoolUpdate(*PoolUpdate) error
	StakeDelegation(*StakeDelegation) error
	OwnerStakeDelegation(*OwnerStakeDelegation) error
}

// PoolRegistration declares a stake pool. Its identifier is the digest of
// its encoding.
type PoolRegistration struct {
	Serial    uint64
	Owners    []keys.PublicKey
	Operators []keys.PublicKey
	// ManagementThreshold is the number of distinct owners that must sign
	// any management certificate of the pool.
	ManagementThreshold uint8
	// StartValidity is the flat slot KES periods of the pool are counted
	// from.
	StartValidity uint64
	RewardsTax    reward.TaxType
	// RewardAccount receives the owners' share of rewards when set.
	RewardAccount *keys.PublicKey
	VRFPublicKey  vrf.PublicKey
	KESPublicKey  kes.PublicKey
}

func (*PoolRegistration) Tag() Tag {
	return TagPoolRegistration
}

func (r *PoolRegistration) Visit(visitor CertificateVisitor) error {
	return visitor.PoolRegistration(r)
}

// Verify checks the registration without any ledger state.
func (r *PoolRegistration) Verify() error {
	switch {
	case len(r.Owners) == 0:
		return ErrNoOwners
	case len(r.Owners) > MaxOwners:
		return fmt.Errorf("%w: %d > %d", ErrTooManyOwners, len(r.Owners), MaxOwners)
	case len(r.Operators) > MaxOperators:
		return fmt.Errorf("%w: %d > %d", ErrTooManyOperators, len(r.Operators), MaxOperators)
	case r.ManagementThreshold == 0 || int(r.ManagementThreshold) > len(r.Owners):
		return fmt.Errorf("%w: threshold %d with %d owners", ErrInvalidThreshold, r.ManagementThreshold, len(r.Owners))
	}
	seen := make(map[keys.PublicKey]struct{}, len(r.Owners))
	for _, owner := range r.Owners {
		if _, ok := seen[owner]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateOwner, owner)
		}
		seen[owner] = struct{}{}
	}
	return r.RewardsTax.Verify()
}

func (r *PoolRegistration) pack(p *wrappers.Packer) {
	if len(r.Owners) > math.MaxUint8 || len(r.Operators) > math.MaxUint8 {
		p.Add(ErrTooManyOwners)
		return
	}
	p.PackLong(r.Serial)
	p.PackByte(byte(len(r.Owners)))
	for _, owner := range r.Owners {
		p.PackFixedBytes(owner[:])
	}
	p.PackByte(byte(len(r.Operators)))
	for _, operator := range r.Operators {
		p.PackFixedBytes(operator[:])
	}
	p.PackByte(r.ManagementThreshold)
	p.PackLong(r.StartValidity)
	r.RewardsTax.Pack(p)
	if r.RewardAccount == nil {
		p.PackByte(0)
	} else {
		p.PackByte(1)
		p.PackFixedBytes(r.RewardAccount[:])
	}
	p.PackFixedBytes(r.VRFPublicKey[:])
	p.PackFixedBytes(r.KESPublicKey[:])
}

func unpackPoolRegistration(p *wrappers.Packer) *PoolRegistration {
	r := &PoolRegistration{Serial: p.UnpackLong()}
	r.Owners = make([]keys.PublicKey, p.UnpackByte())
	for i := range r.Owners {
		p.UnpackInto(r.Owners[i][:])
	}
	r.Operators = make([]keys.PublicKey, p.UnpackByte())
	for i := range r.Operators {
		p.UnpackInto(r.Operators[i][:])
	}
	r.ManagementThreshold = p.UnpackByte()
	r.StartValidity = p.UnpackLong()
	tax, err := reward.UnpackTaxType(p)
	p.Add(err)
	r.RewardsTax = tax
	if p.UnpackByte() != 0 {
		account := keys.PublicKey{}
		p.UnpackInto(account[:])
		r.RewardAccount = &account
	}
	p.UnpackInto(r.VRFPublicKey[:])
	p.UnpackInto(r.KESPublicKey[:])
	return r
}

// Bytes returns the canonical encoding of the registration.
func (r *PoolRegistration) Bytes() []byte {
	p := wrappers.NewWriter(256, maxFragmentSize)
	r.pack(p)
	return p.Bytes
}

// ID returns the pool identifier.
func (r *PoolRegistration) ID() ids.ID {
	return hashing.ComputeID(r.Bytes())
}

// PoolRetirement retires a pool at RetirementTime, a flat slot. From then on
// the pool has no stake and accepts no delegation.
type PoolRetirement struct {
	PoolID         ids.ID
	RetirementTime uint64
}

func (*PoolRetirement) Tag() Tag {
	return TagPoolRetirement
}

func (r *PoolRetirement) Visit(visitor CertificateVisitor) error {
	return visitor.PoolRetirement(r)
}

func (r *PoolRetirement) pack(p *wrappers.Packer) {
	p.PackID(r.PoolID)
	p.PackLong(r.RetirementTime)
}

func unpackPoolRetirement(p *wrappers.Packer) *PoolRetirement {
	return &PoolRetirement{
		PoolID:         p.UnpackID(),
		RetirementTime: p.UnpackLong(),
	}
}

// PoolUpdate asks to replace the registration of a pool. Updates are signed
// like retirements but are never applied.
type PoolUpdate struct {
	PoolID ids.ID
	// LastRegistrationID is the digest of the registration being replaced.
	LastRegistrationID ids.ID
	Updated            *PoolRegistration
}

func (*PoolUpdate) Tag() Tag {
	return TagPoolUpdate
}

func (u *PoolUpdate) Visit(visitor CertificateVisitor) error {
	return visitor.PoolUpdate(u)
}

func (u *PoolUpdate) pack(p *wrappers.Packer) {
	if u.Updated == nil {
		p.Add(ErrMissingRegistration)
		return
	}
	p.PackID(u.PoolID)
	p.PackID(u.LastRegistrationID)
	u.Updated.pack(p)
}

func unpackPoolUpdate(p *wrappers.Packer) *PoolUpdate {
	return &PoolUpdate{
		PoolID:             p.UnpackID(),
		LastRegistrationID: p.UnpackID(),
		Updated:            unpackPoolRegistration(p),
	}
}

// StakeDelegation delegates the stake of Account to Pool. An empty Pool
// removes the delegation. The account signs the transaction.
type StakeDelegation struct {
	Account keys.PublicKey
	Pool    ids.ID
}

func (*StakeDelegation) Tag() Tag {
	return TagStakeDelegation
}

func (d *StakeDelegation) Visit(visitor CertificateVisitor) error {
	return visitor.StakeDelegation(d)
}

func (d *StakeDelegation) pack(p *wrappers.Packer) {
	p.PackFixedBytes(d.Account[:])
	p.PackID(d.Pool)
}

func unpackStakeDelegation(p *wrappers.Packer) *StakeDelegation {
	d := &StakeDelegation{}
	p.UnpackInto(d.Account[:])
	d.Pool = p.UnpackID()
	return d
}

// OwnerStakeDelegation delegates the stake of the account spending the only
// input of the transaction.
type OwnerStakeDelegation struct {
	Pool ids.ID
}

func (*OwnerStakeDelegation) Tag() Tag {
	return TagOwnerStakeDelegation
}

func (d *OwnerStakeDelegation) Visit(visitor CertificateVisitor) error {
	return visitor.OwnerStakeDelegation(d)
}

func (d *OwnerStakeDelegation) pack(p *wrappers.Packer) {
	p.PackID(d.Pool)
}

func unpackOwnerStakeDelegation(p *wrappers.Packer) *OwnerStakeDelegation {
	return &OwnerStakeDelegation{Pool: p.UnpackID()}
}
