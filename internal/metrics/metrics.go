// Package metrics provides Prometheus metrics for a training run.
// Each run owns its own registry; at the end of the run the registry is written in
// the text exposition format next to the report, where a node_exporter textfile
// collector or a CI job can pick it up.
package metrics

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"exe-predictor/internal/common"
)

// Metrics holds all Prometheus metrics for a training run.
type Metrics struct {
	// Candidate metrics
	Evaluations  *prometheus.CounterVec   // Candidates evaluated, by model
	Failures     *prometheus.CounterVec   // Candidates that failed to evaluate, by model
	CVAccuracy   *prometheus.GaugeVec     // Mean cross-validated accuracy, by model
	CVRegret     *prometheus.GaugeVec     // Mean cross-validated expected regret in bytes, by model
	EvalDuration *prometheus.HistogramVec // Wall time of a full cross-validation, by model

	// Dataset metrics
	Samples     prometheus.Gauge // Rows used for training
	Features    prometheus.Gauge // Selected feature columns
	DroppedRows prometheus.Gauge // Rows dropped for a missing label

	// Exported tree metrics
	TreeNodes prometheus.Gauge // Nodes of the exported tree
	TreeDepth prometheus.Gauge // Depth of the exported tree

	registry *prometheus.Registry
}

// New creates metrics on a fresh registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates metrics registered on registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exetrain_model_evaluations_total",
			Help: "Total number of candidate models evaluated",
		}, []string{"model"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exetrain_model_failures_total",
			Help: "Total number of candidate models that failed to evaluate",
		}, []string{"model"}),
		CVAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exetrain_cv_accuracy",
			Help: "Mean grouped cross-validation accuracy",
		}, []string{"model"}),
		CVRegret: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "exetrain_cv_regret",
			Help: "Mean grouped cross-validation expected size regret in bytes",
		}, []string{"model"}),
		EvalDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "exetrain_fit_duration_seconds",
			Help:    "Duration of a full cross-validation of one candidate in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}, []string{"model"}),
		Samples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exetrain_samples",
			Help: "Number of labelled rows used for training",
		}),
		Features: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exetrain_features",
			Help: "Number of selected feature columns",
		}),
		DroppedRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exetrain_dropped_rows",
			Help: "Number of rows dropped for a missing label",
		}),
		TreeNodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exetrain_tree_nodes",
			Help: "Number of nodes in the exported decision tree",
		}),
		TreeDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exetrain_tree_depth",
			Help: "Depth of the exported decision tree",
		}),
		registry: registry,
	}
}

// RecordEvaluation records a successful cross-validation. A NaN regret leaves the regret
// gauge unset for that model.
func (m *Metrics) RecordEvaluation(model string, accuracy, regret float64, elapsed time.Duration) {
	m.Evaluations.WithLabelValues(model).Inc()
	m.CVAccuracy.WithLabelValues(model).Set(accuracy)
	if !math.IsNaN(regret) {
		m.CVRegret.WithLabelValues(model).Set(regret)
	}
	m.EvalDuration.WithLabelValues(model).Observe(elapsed.Seconds())
}

// RecordFailure counts a failed candidate.
func (m *Metrics) RecordFailure(model string) {
	m.Evaluations.WithLabelValues(model).Inc()
	m.Failures.WithLabelValues(model).Inc()
}

// RecordDataset sets the dataset gauges.
func (m *Metrics) RecordDataset(samples, features, dropped int) {
	m.Samples.Set(float64(samples))
	m.Features.Set(float64(features))
	m.DroppedRows.Set(float64(dropped))
}

// RecordTree sets the exported tree gauges.
func (m *Metrics) RecordTree(nodes, depth int) {
	m.TreeNodes.Set(float64(nodes))
	m.TreeDepth.Set(float64(depth))
}

// Gatherer returns the registry backing these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics to <dir>/metrics.prom.
func (m *Metrics) WriteTextfile(dir string) (string, error) {
	path := filepath.Join(dir, common.MetricsFile)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return "", fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return path, nil
}
