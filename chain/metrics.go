// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/praos/ledger/block"
)

const (
	reasonLabel   = "reason"
	fragmentLabel = "fragment"
)

type metrics struct {
	blocksAccepted   prometheus.Counter
	blocksRejected   *prometheus.CounterVec
	fragments        *prometheus.CounterVec
	epochTransitions prometheus.Counter
	states           prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		blocksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blks_accepted",
			Help: "number of blocks accepted",
		}),
		blocksRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blks_rejected",
				Help: "number of blocks rejected",
			},
			[]string{reasonLabel},
		),
		fragments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fragments_accepted",
				Help: "number of fragments applied by accepted blocks",
			},
			[]string{fragmentLabel},
		),
		epochTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epoch_transitions",
			Help: "number of accepted blocks opening a new epoch",
		}),
		states: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "states",
			Help: "number of chain states retained",
		}),
	}
	err := errors.Join(
		registerer.Register(m.blocksAccepted),
		registerer.Register(m.blocksRejected),
		registerer.Register(m.fragments),
		registerer.Register(m.epochTransitions),
		registerer.Register(m.states),
	)
	return m, err
}

func (m *metrics) markAccepted(parent, next *State, b *block.Block) {
	m.blocksAccepted.Inc()
	if next.Header.Date.Epoch > parent.Header.Date.Epoch {
		m.epochTransitions.Inc()
	}
	for _, f := range b.Fragments {
		m.fragments.With(prometheus.Labels{
			fragmentLabel: f.Tag().String(),
		}).Inc()
	}
}

func (m *metrics) markRejected(err error) {
	m.blocksRejected.With(prometheus.Labels{
		reasonLabel: rejectionReason(err),
	}).Inc()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownParent):
		return "unknown_parent"
	case errors.Is(err, ErrParentMismatch):
		return "parent_mismatch"
	case errors.Is(err, ErrInvalidBlockContent):
		return "content"
	case errors.Is(err, ErrInvalidLeadership):
		return "leadership"
	default:
		return "ledger"
	}
}
