// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics tracks metrics for the entire pipeline.
// Uses atomic counters for thread-safe operation, and mirrors them into
// prometheus collectors.
type PipelineMetrics struct {
	// Counters (atomic)
	txSubmitted           atomic.Uint64
	txProcessed           atomic.Uint64
	txFailed              atomic.Uint64
	decodeErrors          atomic.Uint64
	voteTransactions      atomic.Uint64
	hierarchyTransactions atomic.Uint64
	votesExtracted        atomic.Uint64
	anchorChecks          atomic.Uint64
	anchorFailures        atomic.Uint64
	walletErrors          atomic.Uint64
	staleResults          atomic.Uint64

	// Timing (requires mutex)
	mu         sync.RWMutex
	lastTxTime time.Time
	startTime  time.Time

	prom *promMetrics
}

type promMetrics struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	anchorChecks  *prometheus.CounterVec
	staleResults  prometheus.Counter
}

func initPromMetrics(reg prometheus.Registerer) *promMetrics {
	factory := promauto.With(reg)
	return &promMetrics{
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vote_inspector_pipeline_stage_duration_seconds",
				Help:    "time spent in each pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_inspector_pipeline_stage_errors_total",
				Help: "pipeline stage errors",
			},
			[]string{"stage"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_inspector_transactions_total",
				Help: "inspected transactions by kind",
			},
			[]string{"kind"},
		),
		anchorChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vote_inspector_anchor_checks_total",
				Help: "metadata anchor checks by result",
			},
			[]string{"result"},
		),
		staleResults: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "vote_inspector_stale_results_total",
				Help: "inspection results discarded because a newer transaction was submitted",
			},
		),
	}
}

// NewPipelineMetrics creates a new PipelineMetrics. The prometheus collectors
// are registered with reg unless it is nil.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	return &PipelineMetrics{
		startTime: time.Now(),
		prom:      initPromMetrics(reg),
	}
}

// RecordSubmit increments the submitted counter.
func (m *PipelineMetrics) RecordSubmit() {
	m.txSubmitted.Add(1)
}

// RecordStage records a stage result.
func (m *PipelineMetrics) RecordStage(stage string, duration time.Duration, err error) {
	m.prom.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if err == nil {
		return
	}
	m.prom.stageErrors.WithLabelValues(stage).Inc()
	switch stage {
	case StageDecode:
		m.decodeErrors.Add(1)
	case StageWallet:
		m.walletErrors.Add(1)
	}
}

// RecordComplete records the end of processing for a transaction.
func (m *PipelineMetrics) RecordComplete(err error) {
	if err != nil {
		m.txFailed.Add(1)
		return
	}
	m.txProcessed.Add(1)
	m.mu.Lock()
	m.lastTxTime = time.Now()
	m.mu.Unlock()
}

// RecordKind records the classification of a transaction.
func (m *PipelineMetrics) RecordKind(kind TransactionKind) {
	switch k := kind.(type) {
	case VoteKind:
		m.voteTransactions.Add(1)
		m.votesExtracted.Add(uint64(len(k.Votes)))
	case HierarchyKind:
		m.hierarchyTransactions.Add(1)
	}
	m.prom.transactions.WithLabelValues(KindName(kind)).Inc()
}

// RecordAnchorCheck records a metadata anchor check result.
func (m *PipelineMetrics) RecordAnchorCheck(valid bool) {
	m.anchorChecks.Add(1)
	result := "valid"
	if !valid {
		m.anchorFailures.Add(1)
		result = "invalid"
	}
	m.prom.anchorChecks.WithLabelValues(result).Inc()
}

// RecordStale records a result discarded by the generation guard.
func (m *PipelineMetrics) RecordStale() {
	m.staleResults.Add(1)
	m.prom.staleResults.Inc()
}

// Stats returns a snapshot of the current metrics.
func (m *PipelineMetrics) Stats() PipelineStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return PipelineStats{
		TxSubmitted:           m.txSubmitted.Load(),
		TxProcessed:           m.txProcessed.Load(),
		TxFailed:              m.txFailed.Load(),
		DecodeErrors:          m.decodeErrors.Load(),
		VoteTransactions:      m.voteTransactions.Load(),
		HierarchyTransactions: m.hierarchyTransactions.Load(),
		VotesExtracted:        m.votesExtracted.Load(),
		AnchorChecks:          m.anchorChecks.Load(),
		AnchorFailures:        m.anchorFailures.Load(),
		WalletErrors:          m.walletErrors.Load(),
		StaleResults:          m.staleResults.Load(),
		LastTxTime:            m.lastTxTime,
		StartTime:             m.startTime,
	}
}

// Reset resets all counters. Prometheus collectors are left untouched.
func (m *PipelineMetrics) Reset() {
	m.txSubmitted.Store(0)
	m.txProcessed.Store(0)
	m.txFailed.Store(0)
	m.decodeErrors.Store(0)
	m.voteTransactions.Store(0)
	m.hierarchyTransactions.Store(0)
	m.votesExtracted.Store(0)
	m.anchorChecks.Store(0)
	m.anchorFailures.Store(0)
	m.walletErrors.Store(0)
	m.staleResults.Store(0)

	m.mu.Lock()
	m.lastTxTime = time.Time{}
	m.startTime = time.Now()
	m.mu.Unlock()
}
