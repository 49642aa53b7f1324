package patch

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects parse and merge statistics.
type Metrics interface {
	// RecordParse records one parsed change set.
	RecordParse(dialect Dialect, hunks int, duration time.Duration)
	// RecordHunk records the verdict for one hunk and how far it moved.
	RecordHunk(verdict Verdict, offset, edits int)
	// RecordApply records a complete merge pass.
	RecordApply(duration time.Duration, success bool)
	// Snapshot returns the current metrics snapshot.
	Snapshot() MetricsSnapshot
	// Reset clears all metrics.
	Reset()
}

// MetricsSnapshot contains a point-in-time view of collected metrics.
type MetricsSnapshot struct {
	Parses       int64
	HunksParsed  int64
	Dialects     map[string]int64
	Verdicts     map[string]int64
	Relocated    int64
	FuzzyMatches int64
	Applies      DurationMetrics
	LastApply    time.Time
}

// DurationMetrics tracks call counts and timings.
type DurationMetrics struct {
	Total     int64
	Success   int64
	Failed    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// NoOpMetrics is a metrics collector that discards all metrics.
type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordParse(_ Dialect, _ int, _ time.Duration) {}
func (n *NoOpMetrics) RecordHunk(_ Verdict, _, _ int)                {}
func (n *NoOpMetrics) RecordApply(_ time.Duration, _ bool)           {}
func (n *NoOpMetrics) Snapshot() MetricsSnapshot                     { return MetricsSnapshot{} }
func (n *NoOpMetrics) Reset()                                        {}

// InMemoryMetrics is a thread-safe in-memory metrics collector. One instance may be shared by
// concurrent merges of independent documents.
type InMemoryMetrics struct {
	mu        sync.RWMutex
	dialects  map[string]int64
	verdicts  map[string]int64
	applies   DurationMetrics
	lastApply time.Time

	parses       atomic.Int64
	hunksParsed  atomic.Int64
	relocated    atomic.Int64
	fuzzyMatches atomic.Int64

	minApply atomic.Int64 // nanoseconds
	maxApply atomic.Int64 // nanoseconds
}

// NewInMemoryMetrics creates a new in-memory metrics collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	m := &InMemoryMetrics{
		dialects: make(map[string]int64),
		verdicts: make(map[string]int64),
	}
	// Start high so the first measurement sets the minimum.
	m.minApply.Store(int64(time.Hour))
	return m
}

func (m *InMemoryMetrics) RecordParse(dialect Dialect, hunks int, _ time.Duration) {
	m.parses.Add(1)
	m.hunksParsed.Add(int64(hunks))
	m.mu.Lock()
	m.dialects[dialect.String()]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordHunk(verdict Verdict, offset, edits int) {
	if offset != 0 {
		m.relocated.Add(1)
	}
	if edits > 0 {
		m.fuzzyMatches.Add(1)
	}
	m.mu.Lock()
	m.verdicts[verdict.String()]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordApply(duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applies.Total++
	if success {
		m.applies.Success++
	} else {
		m.applies.Failed++
	}
	m.applies.TotalTime += duration
	m.lastApply = time.Now()

	durNanos := int64(duration)
	for {
		oldMin := m.minApply.Load()
		if durNanos >= oldMin || m.minApply.CompareAndSwap(oldMin, durNanos) {
			break
		}
	}
	for {
		oldMax := m.maxApply.Load()
		if durNanos <= oldMax || m.maxApply.CompareAndSwap(oldMax, durNanos) {
			break
		}
	}
}

func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := MetricsSnapshot{
		Parses:       m.parses.Load(),
		HunksParsed:  m.hunksParsed.Load(),
		Dialects:     make(map[string]int64, len(m.dialects)),
		Verdicts:     make(map[string]int64, len(m.verdicts)),
		Relocated:    m.relocated.Load(),
		FuzzyMatches: m.fuzzyMatches.Load(),
		Applies:      m.applies,
		LastApply:    m.lastApply,
	}
	for k, v := range m.dialects {
		snapshot.Dialects[k] = v
	}
	for k, v := range m.verdicts {
		snapshot.Verdicts[k] = v
	}

	if snapshot.Applies.Total > 0 {
		snapshot.Applies.MinTime = time.Duration(m.minApply.Load())
		snapshot.Applies.MaxTime = time.Duration(m.maxApply.Load())
	}
	return snapshot
}

func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dialects = make(map[string]int64)
	m.verdicts = make(map[string]int64)
	m.applies = DurationMetrics{}
	m.lastApply = time.Time{}
	m.parses.Store(0)
	m.hunksParsed.Store(0)
	m.relocated.Store(0)
	m.fuzzyMatches.Store(0)
	m.minApply.Store(int64(time.Hour))
	m.maxApply.Store(0)
}
