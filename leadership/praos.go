// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package leadership

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"

	"github.com/luxfi/praos/crypto/vrf"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/utils/wrappers"
)

const inputSize = ids.IDLen + 2*wrappers.IntLen

var (
	domainThreshold = []byte("TEST")
	domainNonce     = []byte("NONCE")
)

// Phi is the probability that a pool holding the share rs of the total stake
// wins a slot when the active slot coefficient is f:
//
//	phi(f, rs) = 1 - (1 - f)^rs
//
// Phi is monotonic in rs, phi(f, 0) = 0 and phi(f, 1) = f.
func Phi(f, rs float64) float64 {
	switch {
	case rs <= 0:
		return 0
	case rs >= 1:
		return f
	}
	return -math.Expm1(rs * math.Log1p(-f))
}

// below tells whether out, read as a big endian integer in [0, 2^256), is
// lower than p * 2^256.
func below(out vrf.Output, p float64) bool {
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	f := new(big.Float).SetFloat64(p)
	f.SetMantExp(f, 256)
	t, _ := f.Int(nil)
	threshold, overflow := uint256.FromBig(t)
	if overflow {
		return true
	}
	return new(uint256.Int).SetBytes(out[:]).Lt(threshold)
}

// input is the VRF input of date: epoch nonce || epoch || slot.
func (p *praosLeadership) input(date block.Date) []byte {
	w := wrappers.NewWriter(inputSize, inputSize)
	w.PackID(p.nonce)
	w.PackInt(date.Epoch)
	w.PackInt(date.Slot)
	return w.Bytes
}

// phi is the winning probability of pool during the epoch.
func (p *praosLeadership) phi(pool ids.ID) (float64, error) {
	if p.total.IsZero() {
		return 0, ErrTotalStakeIsZero
	}
	rs := float64(p.distribution.PoolStake(pool)) / float64(p.total)
	f := float64(p.coefficient) / float64(txs.MilliOne)
	return Phi(f, rs), nil
}

func (p *praosLeadership) registration(pool ids.ID, date block.Date) (*txs.PoolRegistration, error) {
	poolState, ok := p.pools.Get(pool)
	if !ok {
		return nil, fmt.Errorf("%w: pool %s", ErrUnknownLeader, pool)
	}
	if poolState.IsRetiredAt(date.FlatSlot(p.slotsPerEpoch)) {
		return nil, fmt.Errorf("%w: pool %s retired at %d", ErrUnknownLeader, pool, poolState.RetirementTime)
	}
	return poolState.Registration, nil
}

// kesPeriod is the number of KES updates since the pool's start of
// validity.
func (p *praosLeadership) kesPeriod(registration *txs.PoolRegistration, date block.Date) (uint32, error) {
	flatSlot := date.FlatSlot(p.slotsPerEpoch)
	if flatSlot < registration.StartValidity {
		return 0, fmt.Errorf("%w: slot %d before start of validity %d", ErrStaleKesPeriod, flatSlot, registration.StartValidity)
	}
	period := (flatSlot - registration.StartValidity) / uint64(p.kesUpdateSpeed)
	if period > math.MaxUint32 {
		return 0, fmt.Errorf("%w: period %d", ErrStaleKesPeriod, period)
	}
	return uint32(period), nil
}

func (p *praosLeadership) evaluate(pool ids.ID, sk *vrf.SecretKey, date block.Date) (vrf.Proof, bool, error) {
	registration, err := p.registration(pool, date)
	if err != nil {
		return vrf.Proof{}, false, err
	}
	if registration.VRFPublicKey != sk.PublicKey() {
		return vrf.Proof{}, false, fmt.Errorf("%w: vrf key is not the one of pool %s", ErrUnknownLeader, pool)
	}
	phi, err := p.phi(pool)
	if err != nil {
		return vrf.Proof{}, false, err
	}
	input := p.input(date)
	proof, err := sk.Evaluate(input)
	if err != nil {
		return vrf.Proof{}, false, err
	}
	return proof, below(proof.Output(input, domainThreshold), phi), nil
}

// verify checks the VRF proof, then the stake threshold, then the KES period
// and finally the KES signature.
func (p *praosLeadership) verify(header *block.Header) error {
	proof := header.Praos
	if proof == nil {
		return ErrMissingLeaderCredential
	}
	registration, err := p.registration(proof.PoolID, header.Date)
	if err != nil {
		return err
	}
	phi, err := p.phi(proof.PoolID)
	if err != nil {
		return err
	}

	input := p.input(header.Date)
	if err := registration.VRFPublicKey.Verify(input, proof.VRFProof); err != nil {
		return fmt.Errorf("%w: pool %s: %w", ErrInvalidVrfProof, proof.PoolID, err)
	}
	if !below(proof.VRFProof.Output(input, domainThreshold), phi) {
		return fmt.Errorf("%w: pool %s at %s", ErrThresholdNotMet, proof.PoolID, header.Date)
	}

	period, err := p.kesPeriod(registration, header.Date)
	if err != nil {
		return err
	}
	if proof.KESSignature.Period != period {
		return fmt.Errorf("%w: signed at period %d but %s is in period %d",
			ErrStaleKesPeriod, proof.KESSignature.Period, header.Date, period)
	}
	msg, err := header.UnsignedBytes()
	if err != nil {
		return err
	}
	if err := registration.KESPublicKey.Verify(msg, proof.KESSignature); err != nil {
		return fmt.Errorf("%w: pool %s: %w", ErrInvalidLeaderSignature, proof.PoolID, err)
	}
	return nil
}
