package service

import (
	"sync/atomic"
	"time"
)

// Metrics tracks submission outcomes across controllers
type Metrics struct {
	submits         atomic.Int64
	successes       atomic.Int64
	failures        atomic.Int64
	notConfigured   atomic.Int64
	rejected        atomic.Int64
	insertLatencyNs atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics
type MetricsSnapshot struct {
	Submits          int64   `json:"submits"`
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	NotConfigured    int64   `json:"not_configured"`
	Rejected         int64   `json:"rejected"`
	AvgInsertLatency float64 `json:"avg_insert_latency_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot returns the current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Submits:       m.submits.Load(),
		Successes:     m.successes.Load(),
		Failures:      m.failures.Load(),
		NotConfigured: m.notConfigured.Load(),
		Rejected:      m.rejected.Load(),
	}
	if attempts := s.Successes + s.Failures; attempts > 0 {
		s.AvgInsertLatency = float64(m.insertLatencyNs.Load()) / float64(attempts) / 1e6
	}
	return s
}

// FailureRate returns failed inserts as a percentage of attempted inserts
func (s MetricsSnapshot) FailureRate() float64 {
	attempts := s.Successes + s.Failures
	if attempts == 0 {
		return 0
	}
	return float64(s.Failures) / float64(attempts) * 100
}

func (m *Metrics) recordSubmit() {
	m.submits.Add(1)
}

func (m *Metrics) recordRejected() {
	m.rejected.Add(1)
}

func (m *Metrics) recordInsert(d time.Duration, err error, notConfigured bool) {
	m.insertLatencyNs.Add(d.Nanoseconds())
	if err == nil {
		m.successes.Add(1)
		return
	}
	m.failures.Add(1)
	if notConfigured {
		m.notConfigured.Add(1)
	}
}
