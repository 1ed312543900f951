package bundle

import (
	"time"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeAdmitted labels files that made it into a bundle. Omitted files
// are labeled with their Reason.
const OutcomeAdmitted = "admitted"

// Metrics holds Prometheus collectors for bundling runs.
//
// Metrics:
//   - ctxpack_bundle_files_total{category,outcome} - files admitted or omitted
//   - ctxpack_bundle_tokens_total{category} - tokens admitted
//   - ctxpack_bundle_redactions_total{type} - secrets redacted
//   - ctxpack_bundle_duration_seconds - wall time of Build
type Metrics struct {
	FilesTotal      *prometheus.CounterVec
	TokensTotal     *prometheus.CounterVec
	RedactionsTotal *prometheus.CounterVec
	Duration        prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxpack_bundle_files_total",
				Help: "Candidate files processed, by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		TokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxpack_bundle_tokens_total",
				Help: "Estimated tokens admitted into bundles, by category",
			},
			[]string{"category"},
		),
		RedactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ctxpack_bundle_redactions_total",
				Help: "Secrets redacted from bundled content, by rule",
			},
			[]string{"type"},
		),
		Duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ctxpack_bundle_duration_seconds",
				Help:    "Duration of bundling runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
		),
	}
}

func (m *Metrics) recordAdmitted(c budget.Category, tokens int) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(string(c), OutcomeAdmitted).Inc()
	m.TokensTotal.WithLabelValues(string(c)).Add(float64(tokens))
}

func (m *Metrics) recordOmitted(c budget.Category, reason Reason) {
	if m == nil {
		return
	}
	m.FilesTotal.WithLabelValues(string(c), string(reason)).Inc()
}

func (m *Metrics) recordRedactions(byType map[string]int) {
	if m == nil {
		return
	}
	for t, n := range byType {
		m.RedactionsTotal.WithLabelValues(t).Add(float64(n))
	}
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.Observe(d.Seconds())
}
