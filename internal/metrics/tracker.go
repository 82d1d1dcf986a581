// Package metrics provides real-time metrics tracking for the system.
package metrics

import (
	"sync"
	"time"

	"github.com/tgeclaim/engine/internal/store"
)

// Item outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeStaked    = "staked"
)

// BatchRecord is the summary of one settled batch.
type BatchRecord struct {
	Strategy  string
	Items     int
	Succeeded int
	Failed    int
	Staked    int
	Elapsed   time.Duration
	At        time.Time
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	BatchesTotal      int64
	RejectedTotal     int64
	ItemsByOutcome    map[string]int64
	FailuresByReason  map[string]int64
	BatchesByStrategy map[string]int64
	RecentBatches     []BatchRecord
	Uptime            time.Duration
	WalletStatus      string
	LastBatch         time.Time
}

// MetricsTracker provides thread-safe metrics tracking.
type MetricsTracker struct {
	mu                sync.RWMutex
	batchesTotal      int64
	rejectedTotal     int64
	itemsByOutcome    map[string]int64
	failuresByReason  map[string]int64
	batchesByStrategy map[string]int64
	recent            []BatchRecord
	maxRecent         int
	startTime         time.Time
	walletStatus      string
	lastBatch         time.Time
}

// NewMetricsTracker creates a new MetricsTracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		itemsByOutcome:    make(map[string]int64),
		failuresByReason:  make(map[string]int64),
		batchesByStrategy: make(map[string]int64),
		recent:            make([]BatchRecord, 0, 20),
		maxRecent:         20,
		startTime:         time.Now(),
		walletStatus:      "disconnected",
	}
}

// RecordBatch records the results of a settled batch.
func (m *MetricsTracker) RecordBatch(strategy string, results []store.SettlementResult, elapsed time.Duration) BatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := BatchRecord{
		Strategy: strategy,
		Items:    len(results),
		Elapsed:  elapsed,
		At:       time.Now(),
	}

	for _, r := range results {
		if r.Success {
			rec.Succeeded++
		} else {
			rec.Failed++
			m.failuresByReason[r.Error]++
		}
		if r.Staked {
			rec.Staked++
		}
	}

	m.batchesTotal++
	m.batchesByStrategy[strategy]++
	m.itemsByOutcome[OutcomeSucceeded] += int64(rec.Succeeded)
	m.itemsByOutcome[OutcomeFailed] += int64(rec.Failed)
	m.itemsByOutcome[OutcomeStaked] += int64(rec.Staked)
	m.lastBatch = rec.At

	// Newest first, bounded
	m.recent = append([]BatchRecord{rec}, m.recent...)
	if len(m.recent) > m.maxRecent {
		m.recent = m.recent[:m.maxRecent]
	}

	return rec
}

// IncrementRejected counts a submission refused before settlement.
func (m *MetricsTracker) IncrementRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectedTotal++
}

// SetWalletStatus sets the wallet connection status.
func (m *MetricsTracker) SetWalletStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walletStatus = status
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *MetricsTracker) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		BatchesTotal:      m.batchesTotal,
		RejectedTotal:     m.rejectedTotal,
		ItemsByOutcome:    copyCounts(m.itemsByOutcome),
		FailuresByReason:  copyCounts(m.failuresByReason),
		BatchesByStrategy: copyCounts(m.batchesByStrategy),
		RecentBatches:     append([]BatchRecord(nil), m.recent...),
		Uptime:            time.Since(m.startTime),
		WalletStatus:      m.walletStatus,
		LastBatch:         m.lastBatch,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// WalletStatus names the wallet state for display.
func WalletStatus(s store.WalletState) string {
	switch {
	case s.Connected:
		return "connected"
	case s.Connecting:
		return "connecting"
	default:
		return "disconnected"
	}
}
