package service

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects prompt execution statistics for the current process.
type Metrics struct {
	totals ExecutionMetrics
	models map[string]*ModelMetrics
	mu     sync.RWMutex
}

// ExecutionMetrics holds process-wide counters.
type ExecutionMetrics struct {
	Runs          int           `json:"runs"`
	Succeeded     int           `json:"succeeded"`
	Empty         int           `json:"empty"`
	Failed        int           `json:"failed"`
	Rejected      int           `json:"rejected"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastRunAt     time.Time     `json:"last_run_at,omitempty"`
}

// ModelMetrics holds per-model counters.
type ModelMetrics struct {
	Name          string        `json:"name"`
	Invocations   int           `json:"invocations"`
	Errors        int           `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{models: make(map[string]*ModelMetrics)}
}

// Record counts one finished run.
func (m *Metrics) Record(model string, outcome Outcome, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals.Runs++
	m.totals.TotalDuration += d
	m.totals.AvgDuration = m.totals.TotalDuration / time.Duration(m.totals.Runs)
	m.totals.LastRunAt = time.Now()
	switch outcome {
	case OutcomeSucceeded:
		m.totals.Succeeded++
	case OutcomeEmpty:
		m.totals.Empty++
	case OutcomeFailed:
		m.totals.Failed++
	}

	mm, ok := m.models[model]
	if !ok {
		mm = &ModelMetrics{Name: model}
		m.models[model] = mm
	}
	mm.Invocations++
	mm.TotalDuration += d
	mm.AvgDuration = mm.TotalDuration / time.Duration(mm.Invocations)
	if outcome == OutcomeFailed {
		mm.Errors++
	}
}

// RecordRejected counts a submission turned away because a run was in flight.
func (m *Metrics) RecordRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals.Rejected++
}

// Totals returns the process-wide counters.
func (m *Metrics) Totals() ExecutionMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totals
}

// Models returns per-model counters sorted by name.
func (m *Metrics) Models() []ModelMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ModelMetrics, 0, len(m.models))
	for _, mm := range m.models {
		out = append(out, *mm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals = ExecutionMetrics{}
	m.models = make(map[string]*ModelMetrics)
}
