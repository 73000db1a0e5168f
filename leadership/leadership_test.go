// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package leadership

import (
	"bytes"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/praos/crypto/kes"
	"github.com/luxfi/praos/crypto/keys"
	"github.com/luxfi/praos/crypto/vrf"
	"github.com/luxfi/praos/ledger/block"
	"github.com/luxfi/praos/ledger/reward"
	"github.com/luxfi/praos/ledger/state"
	"github.com/luxfi/praos/ledger/txs"
	"github.com/luxfi/praos/ledger/value"
)

const (
	testSlotsPerEpoch  = 2000
	testKESUpdateSpeed = 10
	testKESDepth       = 4
)

type testPool struct {
	id   ids.ID
	seed byte
	vrf  *vrf.SecretKey
}

func newKey(t *testing.T, b byte) *keys.PrivateKey {
	sk, err := keys.NewPrivateKeyFromSeed(bytes.Repeat([]byte{b}, keys.SeedSize))
	require.NoError(t, err)
	return sk
}

// newKESKey returns the KES key of seed b evolved to period.
func newKESKey(t *testing.T, b byte, period uint32) (*kes.SecretKey, kes.PublicKey) {
	sk, pk, err := kes.NewSecretKeyFromSeed(bytes.Repeat([]byte{b}, kes.SeedSize), testKESDepth)
	require.NoError(t, err)
	for i := uint32(0); i < period; i++ {
		var status kes.EvolvingStatus
		sk, status = kes.Evolve(sk)
		require.Equal(t, kes.Success, status)
	}
	return sk, pk
}

func newBFTLedger(t *testing.T, n int) (*state.Ledger, []*keys.PrivateKey) {
	l := state.NewLedger(ids.Empty)
	leaders := make([]*keys.PrivateKey, n)
	for i := range leaders {
		leaders[i] = newKey(t, byte(i+1))
		l.Settings.BFTLeaders = append(l.Settings.BFTLeaders, leaders[i].PublicKey())
	}
	return l, leaders
}

// newPraosLedger registers one pool per stake, each with one delegator
// holding that stake.
func newPraosLedger(t *testing.T, coefficient txs.Milli, stakes ...value.Value) (*state.Ledger, []*testPool) {
	require := require.New(t)

	l := state.NewLedger(ids.Empty)
	l.Settings.ConsensusVersion = txs.GenesisPraos
	l.Settings.ActiveSlotCoefficient = coefficient
	l.Settings.SlotsPerEpoch = testSlotsPerEpoch
	l.Settings.KESUpdateSpeed = testKESUpdateSpeed
	l.Settings.ConsensusNonce = ids.ID{'n', 'o', 'n', 'c', 'e'}

	pools := make([]*testPool, len(stakes))
	for i, stake := range stakes {
		seed := byte(i + 1)
		vrfKey, err := vrf.NewSecretKeyFromSeed(bytes.Repeat([]byte{seed}, vrf.SeedSize))
		require.NoError(err)
		_, kesPK := newKESKey(t, seed, 0)
		registration := &txs.PoolRegistration{
			Serial:              uint64(i),
			Owners:              []keys.PublicKey{newKey(t, seed).PublicKey()},
			ManagementThreshold: 1,
			RewardsTax:          reward.ZeroTax,
			VRFPublicKey:        vrfKey.PublicKey(),
			KESPublicKey:        kesPK,
		}
		l.Pools, err = l.Pools.Register(registration)
		require.NoError(err)
		pools[i] = &testPool{
			id:   registration.ID(),
			seed: seed,
			vrf:  vrfKey,
		}

		if stake.IsZero() {
			continue
		}
		delegator := newKey(t, 0x80+seed).PublicKey()
		l.Accounts, err = l.Accounts.Deposit(delegator, stake)
		require.NoError(err)
		l.Accounts, err = l.Accounts.SetDelegation(delegator, pools[i].id)
		require.NoError(err)
	}
	return l, pools
}

func bftHeader(t *testing.T, sk *keys.PrivateKey, date block.Date) *block.Header {
	h := &block.Header{Date: date, ChainLength: 1}
	require.NoError(t, h.SignBFT(sk))
	return h
}

func praosHeader(t *testing.T, poolID ids.ID, proof vrf.Proof, sk *kes.SecretKey, date block.Date) *block.Header {
	h := &block.Header{Date: date, ChainLength: 1}
	require.NoError(t, h.SignPraos(poolID, proof, sk))
	return h
}

func TestNew(t *testing.T) {
	require := require.New(t)

	l, _ := newBFTLedger(t, 2)
	lead, err := New(3, l)
	require.NoError(err)
	require.Equal(block.ProofBFT, lead.Kind())
	require.Equal(uint32(3), lead.Epoch())

	l.Settings.BFTLeaders = nil
	_, err = New(3, l)
	require.ErrorIs(err, ErrUnknownLeader)

	l.Settings.ConsensusVersion = 0
	_, err = New(3, l)
	require.ErrorIs(err, ErrUnknownConsensus)

	praos, _ := newPraosLedger(t, 100, 10, 20)
	lead, err = New(0, praos)
	require.NoError(err)
	require.Equal(block.ProofGenesisPraos, lead.Kind())
	require.Equal(value.Value(30), lead.praos.total)
}

func TestBFTRoundRobin(t *testing.T) {
	require := require.New(t)

	l, leaders := newBFTLedger(t, 3)
	lead, err := New(2, l)
	require.NoError(err)

	for slot := uint32(0); slot < 30; slot++ {
		date := block.Date{Epoch: 2, Slot: slot}
		leader, ok, err := lead.GetLeaderAt(date)
		require.NoError(err)
		require.True(ok)
		require.Equal(leaders[slot%3].PublicKey(), leader)

		again, _, err := lead.GetLeaderAt(date)
		require.NoError(err)
		require.Equal(leader, again)

		for i, sk := range leaders {
			election, ok, err := lead.IsLeaderFor(Leader{BFT: sk}, date)
			require.NoError(err)
			require.Equal(uint32(i) == slot%3, ok)
			if ok {
				require.Equal(block.ProofBFT, election.Kind)
			}
		}
	}

	_, _, err = lead.GetLeaderAt(block.Date{Epoch: 3})
	require.ErrorIs(err, ErrInvalidEpoch)

	_, ok, err := lead.IsLeaderFor(Leader{}, block.Date{Epoch: 2})
	require.NoError(err)
	require.False(ok)
}

func TestVerifyBFT(t *testing.T) {
	l, leaders := newBFTLedger(t, 3)
	lead, err := New(0, l)
	require.NoError(t, err)

	date := block.Date{Epoch: 0, Slot: 4}
	tests := []struct {
		name        string
		header      func(t *testing.T) *block.Header
		expectedErr error
	}{
		{
			name: "designated leader",
			header: func(t *testing.T) *block.Header {
				return bftHeader(t, leaders[1], date)
			},
		},
		{
			name: "other leader",
			header: func(t *testing.T) *block.Header {
				return bftHeader(t, leaders[0], date)
			},
			expectedErr: ErrInvalidLeaderSignature,
		},
		{
			name: "tampered header",
			header: func(t *testing.T) *block.Header {
				h := bftHeader(t, leaders[1], date)
				h.ContentSize++
				return h
			},
			expectedErr: ErrInvalidLeaderSignature,
		},
		{
			name: "signature of another header",
			header: func(t *testing.T) *block.Header {
				h := bftHeader(t, leaders[1], date)
				other := bftHeader(t, leaders[1], block.Date{Epoch: 0, Slot: 1})
				h.BFT.Signature = other.BFT.Signature
				return h
			},
			expectedErr: ErrInvalidLeaderSignature,
		},
		{
			name: "wrong epoch",
			header: func(t *testing.T) *block.Header {
				return bftHeader(t, leaders[1], block.Date{Epoch: 1, Slot: 4})
			},
			expectedErr: ErrInvalidEpoch,
		},
		{
			name: "praos proof",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, 1, 0)
				return praosHeader(t, ids.Empty, vrf.Proof{}, sk, date)
			},
			expectedErr: ErrWrongProofKind,
		},
		{
			name: "no proof",
			header: func(*testing.T) *block.Header {
				return &block.Header{Date: date}
			},
			expectedErr: ErrWrongProofKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, lead.Verify(tt.header(t)), tt.expectedErr)
		})
	}
}

func TestNone(t *testing.T) {
	require := require.New(t)

	block0, err := block.NewGenesis(nil)
	require.NoError(err)

	lead := None(0)
	require.NoError(lead.Verify(block0.Header))

	_, ok, err := lead.GetLeaderAt(block.Date{})
	require.NoError(err)
	require.False(ok)

	_, ok, err = lead.IsLeaderFor(Leader{BFT: newKey(t, 1)}, block.Date{})
	require.NoError(err)
	require.False(ok)

	require.ErrorIs(lead.Verify(bftHeader(t, newKey(t, 1), block.Date{})), ErrWrongProofKind)
}

func TestVerifyPraos(t *testing.T) {
	// With a coefficient of 1 every pool with stake wins every slot.
	l, pools := newPraosLedger(t, txs.MilliOne, 100, 0)
	lead, err := New(0, l)
	require.NoError(t, err)

	var (
		date      = block.Date{Epoch: 0, Slot: 3}
		laterDate = block.Date{Epoch: 0, Slot: 15}
	)
	proof := func(t *testing.T, pool *testPool, date block.Date) vrf.Proof {
		p, err := pool.vrf.Evaluate(lead.praos.input(date))
		require.NoError(t, err)
		return p
	}

	tests := []struct {
		name        string
		header      func(t *testing.T) *block.Header
		expectedErr error
	}{
		{
			name: "elected pool",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[0], date), sk, date)
			},
		},
		{
			name: "elected pool in a later kes period",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 1)
				return praosHeader(t, pools[0].id, proof(t, pools[0], laterDate), sk, laterDate)
			},
		},
		{
			name: "unknown pool",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, ids.ID{1}, proof(t, pools[0], date), sk, date)
			},
			expectedErr: ErrUnknownLeader,
		},
		{
			name: "proof of another key",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[1], date), sk, date)
			},
			expectedErr: ErrInvalidVrfProof,
		},
		{
			name: "proof of another slot",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[0], block.Date{Slot: 4}), sk, date)
			},
			expectedErr: ErrInvalidVrfProof,
		},
		{
			name: "vrf checked before kes period",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[1], laterDate), sk, laterDate)
			},
			expectedErr: ErrInvalidVrfProof,
		},
		{
			name: "pool without stake",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[1].seed, 0)
				return praosHeader(t, pools[1].id, proof(t, pools[1], date), sk, date)
			},
			expectedErr: ErrThresholdNotMet,
		},
		{
			name: "stale kes period",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[0], laterDate), sk, laterDate)
			},
			expectedErr: ErrStaleKesPeriod,
		},
		{
			name: "kes key of another pool",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[1].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[0], date), sk, date)
			},
			expectedErr: ErrInvalidLeaderSignature,
		},
		{
			name: "tampered header",
			header: func(t *testing.T) *block.Header {
				sk, _ := newKESKey(t, pools[0].seed, 0)
				h := praosHeader(t, pools[0].id, proof(t, pools[0], date), sk, date)
				h.ChainLength++
				return h
			},
			expectedErr: ErrInvalidLeaderSignature,
		},
		{
			name: "bft proof",
			header: func(t *testing.T) *block.Header {
				return bftHeader(t, newKey(t, 1), date)
			},
			expectedErr: ErrWrongProofKind,
		},
		{
			name: "wrong epoch",
			header: func(t *testing.T) *block.Header {
				other := block.Date{Epoch: 1, Slot: 3}
				sk, _ := newKESKey(t, pools[0].seed, 0)
				return praosHeader(t, pools[0].id, proof(t, pools[0], other), sk, other)
			},
			expectedErr: ErrInvalidEpoch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, lead.Verify(tt.header(t)), tt.expectedErr)
		})
	}
}

func TestPraosElection(t *testing.T) {
	require := require.New(t)

	l, pools := newPraosLedger(t, txs.MilliOne, 100, 0)
	lead, err := New(0, l)
	require.NoError(err)

	date := block.Date{Epoch: 0, Slot: 7}
	election, ok, err := lead.IsLeaderFor(Leader{PoolID: pools[0].id, VRF: pools[0].vrf}, date)
	require.NoError(err)
	require.True(ok)
	require.Equal(block.ProofGenesisPraos, election.Kind)

	sk, _ := newKESKey(t, pools[0].seed, 0)
	header := praosHeader(t, pools[0].id, election.VRFProof, sk, date)
	require.NoError(lead.Verify(header))

	nonce := lead.Nonce(header)
	require.NotNil(nonce)
	require.Equal(election.VRFProof.Output(lead.praos.input(date), domainNonce), *nonce)
	require.NotEqual(election.VRFProof.Output(lead.praos.input(date), domainThreshold), *nonce)

	_, ok, err = lead.IsLeaderFor(Leader{PoolID: pools[1].id, VRF: pools[1].vrf}, date)
	require.NoError(err)
	require.False(ok)

	// a pool can only be elected with its registered VRF key
	_, _, err = lead.IsLeaderFor(Leader{PoolID: pools[0].id, VRF: pools[1].vrf}, date)
	require.ErrorIs(err, ErrUnknownLeader)

	_, _, err = lead.IsLeaderFor(Leader{PoolID: ids.ID{1}, VRF: pools[0].vrf}, date)
	require.ErrorIs(err, ErrUnknownLeader)

	// BFT credentials do not take part in the lottery
	_, ok, err = lead.IsLeaderFor(Leader{BFT: newKey(t, 1)}, date)
	require.NoError(err)
	require.False(ok)
}

func TestPraosRetiredPool(t *testing.T) {
	require := require.New(t)

	l, pools := newPraosLedger(t, txs.MilliOne, 100)
	var err error
	l.Pools, err = l.Pools.Retire(pools[0].id, 10)
	require.NoError(err)
	lead, err := New(0, l)
	require.NoError(err)

	// the snapshot keeps the stake, the pool stops at its retirement time
	_, ok, err := lead.IsLeaderFor(Leader{PoolID: pools[0].id, VRF: pools[0].vrf}, block.Date{Slot: 9})
	require.NoError(err)
	require.True(ok)
	_, _, err = lead.IsLeaderFor(Leader{PoolID: pools[0].id, VRF: pools[0].vrf}, block.Date{Slot: 10})
	require.ErrorIs(err, ErrUnknownLeader)
}

func TestTotalStakeIsZero(t *testing.T) {
	require := require.New(t)

	l, pools := newPraosLedger(t, txs.MilliOne, 0)
	lead, err := New(0, l)
	require.NoError(err)

	date := block.Date{Slot: 1}
	_, _, err = lead.IsLeaderFor(Leader{PoolID: pools[0].id, VRF: pools[0].vrf}, date)
	require.ErrorIs(err, ErrTotalStakeIsZero)

	proof, err := pools[0].vrf.Evaluate(lead.praos.input(date))
	require.NoError(err)
	sk, _ := newKESKey(t, pools[0].seed, 0)
	require.ErrorIs(lead.Verify(praosHeader(t, pools[0].id, proof, sk, date)), ErrTotalStakeIsZero)
}

func TestKESPeriod(t *testing.T) {
	require := require.New(t)

	l, pools := newPraosLedger(t, 100, 10)
	lead, err := New(1, l)
	require.NoError(err)

	period, err := lead.KESPeriod(pools[0].id, block.Date{Epoch: 1, Slot: 25})
	require.NoError(err)
	require.Equal(uint32((testSlotsPerEpoch+25)/testKESUpdateSpeed), period)

	_, err = lead.KESPeriod(ids.ID{1}, block.Date{Epoch: 1})
	require.ErrorIs(err, ErrUnknownLeader)

	late := &txs.PoolRegistration{StartValidity: testSlotsPerEpoch + 100}
	_, err = lead.praos.kesPeriod(late, block.Date{Epoch: 1, Slot: 99})
	require.ErrorIs(err, ErrStaleKesPeriod)
	period, err = lead.praos.kesPeriod(late, block.Date{Epoch: 1, Slot: 100})
	require.NoError(err)
	require.Zero(period)

	bft, _ := newBFTLedger(t, 1)
	lead, err = New(0, bft)
	require.NoError(err)
	_, err = lead.KESPeriod(pools[0].id, block.Date{})
	require.ErrorIs(err, ErrWrongProofKind)
}
