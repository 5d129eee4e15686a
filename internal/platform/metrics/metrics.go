package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the onboarding flow engine.
type Metrics struct {
	// Flow opens by entry kind: "fresh", "preset", "claim"
	FlowOpens *prometheus.CounterVec

	// Step submissions by step and outcome: "advanced", "rejected", "committed", "failed"
	StepSubmissions *prometheus.CounterVec

	// Commit outcomes: "created", "claimed", "failed"
	CommitOutcome *prometheus.CounterVec

	// Commit orchestration latency
	CommitDuration prometheus.Histogram

	// Draft restore outcomes: "restored", "stale", "conflict", "missing"
	DraftRestores *prometheus.CounterVec
}

// New creates a Metrics instance with all flow engine metrics registered.
func New() *Metrics {
	return &Metrics{
		FlowOpens: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_flow_opens_total",
			Help: "Total onboarding flow opens by entry kind",
		}, []string{"entry"}),

		StepSubmissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_step_submissions_total",
			Help: "Total step submissions by step and outcome",
		}, []string{"step", "outcome"}),

		CommitOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_commit_outcomes_total",
			Help: "Total commit orchestrations by outcome",
		}, []string{"outcome"}),

		CommitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "carebridge_commit_duration_seconds",
			Help:    "Duration of the commit orchestration including store writes",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		DraftRestores: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_draft_restores_total",
			Help: "Draft restore attempts by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementFlowOpen records a flow open.
func (m *Metrics) IncrementFlowOpen(entry string) {
	if m != nil {
		m.FlowOpens.WithLabelValues(entry).Inc()
	}
}

// IncrementStepSubmission records a step submission outcome.
func (m *Metrics) IncrementStepSubmission(step, outcome string) {
	if m != nil {
		m.StepSubmissions.WithLabelValues(step, outcome).Inc()
	}
}

// IncrementCommit records a commit outcome.
func (m *Metrics) IncrementCommit(outcome string) {
	if m != nil {
		m.CommitOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveCommitDuration records how long a commit orchestration took.
func (m *Metrics) ObserveCommitDuration(d time.Duration) {
	if m != nil {
		m.CommitDuration.Observe(d.Seconds())
	}
}

// IncrementDraftRestore records a draft restore outcome.
func (m *Metrics) IncrementDraftRestore(outcome string) {
	if m != nil {
		m.DraftRestores.WithLabelValues(outcome).Inc()
	}
}
