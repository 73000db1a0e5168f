// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/praos/config"
	"github.com/luxfi/praos/ledger/block"
)

// Multiverse keeps the states of every fork within the retained depth of the
// tip. The tip is the longest chain, the first one seen winning ties.
//
// Blocks are validated against their own parent state, so blocks of
// different forks can be validated concurrently.
type Multiverse struct {
	log     log.Logger
	config  config.Config
	metrics *metrics

	lock   sync.RWMutex
	states map[ids.ID]*State
	tip    *State
	// rejected maps the ID of a rejected block to its error.
	rejected *lru.Cache
}

func NewMultiverse(
	logger log.Logger,
	registerer prometheus.Registerer,
	cfg config.Config,
	genesis *State,
) (*Multiverse, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	rejected, err := lru.New(cfg.RejectedCacheSize)
	if err != nil {
		return nil, err
	}
	metrics, err := newMetrics(registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	m := &Multiverse{
		log:      logger,
		config:   cfg,
		metrics:  metrics,
		states:   map[ids.ID]*State{genesis.ID(): genesis},
		tip:      genesis,
		rejected: rejected,
	}
	metrics.states.Set(1)
	return m, nil
}

// Get returns the state after block id.
func (m *Multiverse) Get(id ids.ID) (*State, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	s, ok := m.states[id]
	return s, ok
}

func (m *Multiverse) Tip() *State {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.tip
}

func (m *Multiverse) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.states)
}

func (m *Multiverse) Status(id ids.ID) Status {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.status(id)
}

func (m *Multiverse) status(id ids.ID) Status {
	if _, ok := m.states[id]; ok {
		return Accepted
	}
	if m.rejected.Contains(id) {
		return Rejected
	}
	return Unknown
}

// Add validates b on top of its parent and keeps the resulting state. Adding
// a block twice returns the outcome of the first attempt.
func (m *Multiverse) Add(b *block.Block) (*State, error) {
	id := b.ID()
	m.lock.RLock()
	s, ok := m.states[id]
	cached, rejected := m.rejected.Get(id)
	parent, hasParent := m.states[b.Header.Parent]
	m.lock.RUnlock()

	switch {
	case ok:
		return s, nil
	case rejected:
		return nil, cached.(error)
	case !hasParent:
		// The parent may still arrive, so the block is not remembered.
		err := fmt.Errorf("%w: %s", ErrUnknownParent, b.Header.Parent)
		m.metrics.markRejected(err)
		return nil, err
	}

	next, err := parent.ApplyBlock(b)
	if err != nil {
		m.reject(id, err)
		return nil, err
	}
	return m.accept(parent, next, b), nil
}

// AddBlocks adds blocks, validating in parallel the blocks whose parents are
// known. It returns the outcome of every block, by index. The returned error
// is only set if ctx is cancelled.
func (m *Multiverse) AddBlocks(ctx context.Context, blocks []*block.Block) ([]error, error) {
	errs := make([]error, len(blocks))
	pending := make([]int, len(blocks))
	for i := range pending {
		pending[i] = i
	}

	for len(pending) > 0 {
		pendingIDs := make(map[ids.ID]struct{}, len(pending))
		for _, i := range pending {
			pendingIDs[blocks[i].ID()] = struct{}{}
		}

		// A block waits for its parent while the parent is still to be
		// added. Everything else is validated now.
		var ready, waiting []int
		for _, i := range pending {
			if _, ok := pendingIDs[blocks[i].Header.Parent]; ok {
				waiting = append(waiting, i)
			} else {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			for _, i := range waiting {
				errs[i] = fmt.Errorf("%w: %s", ErrUnknownParent, blocks[i].Header.Parent)
			}
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.config.ValidationWorkers)
		for _, i := range ready {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, errs[i] = m.Add(blocks[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return errs, err
		}
		pending = waiting
	}
	return errs, nil
}

func (m *Multiverse) reject(id ids.ID, err error) {
	m.lock.Lock()
	m.rejected.Add(id, err)
	m.lock.Unlock()

	m.metrics.markRejected(err)
	m.log.Debug("rejected block",
		log.Stringer("blkID", id),
		log.Err(err),
	)
}

func (m *Multiverse) accept(parent, next *State, b *block.Block) *State {
	id := next.ID()

	m.lock.Lock()
	defer m.lock.Unlock()

	// Another goroutine validated the same block.
	if s, ok := m.states[id]; ok {
		return s
	}
	m.states[id] = next
	m.metrics.markAccepted(parent, next, b)
	m.log.Debug("accepted block",
		log.Stringer("blkID", id),
		log.Stringer("parentID", parent.ID()),
		log.Stringer("date", next.Header.Date),
		log.Uint64("height", uint64(next.Header.ChainLength)),
	)

	if next.Header.ChainLength > m.tip.Header.ChainLength {
		m.tip = next
		m.log.Info("new tip",
			log.Stringer("blkID", id),
			log.Stringer("date", next.Header.Date),
			log.Uint64("height", uint64(next.Header.ChainLength)),
		)
		m.prune()
	}
	m.metrics.states.Set(float64(len(m.states)))
	return next
}

// prune drops the states more than the retained depth behind the tip.
func (m *Multiverse) prune() {
	tipHeight := m.tip.Header.ChainLength
	if tipHeight <= m.config.RetainedDepth {
		return
	}
	minHeight := tipHeight - m.config.RetainedDepth

	pruned := 0
	for id, s := range m.states {
		if s.Header.ChainLength < minHeight {
			delete(m.states, id)
			pruned++
		}
	}
	if pruned > 0 {
		m.log.Debug("pruned states",
			log.Int("count", pruned),
			log.Uint64("minHeight", uint64(minHeight)),
		)
	}
}
