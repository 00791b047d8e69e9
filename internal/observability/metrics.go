// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/niche/pkg/partition"
)

// Verification results used as the "result" label.
const (
	ResultConsistent = "consistent"
	ResultViolated   = "violated"
)

// Metrics contains the Prometheus metrics for partition verification.
type Metrics struct {
	VerificationsTotal   *prometheus.CounterVec
	ViolationsTotal      *prometheus.CounterVec
	SnapshotLoadFailures *prometheus.CounterVec
	GenomesScanned       prometheus.Histogram
	VerificationSeconds  prometheus.Histogram
}

// NewMetrics creates and registers the verification metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niche_verifications_total",
				Help: "Total number of partition verifications by result",
			},
			[]string{"result"},
		),
		ViolationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niche_violations_total",
				Help: "Total number of partition violations by kind",
			},
			[]string{"kind"},
		),
		SnapshotLoadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "niche_snapshot_load_failures_total",
				Help: "Total number of snapshot files that could not be loaded, by error code",
			},
			[]string{"code"},
		),
		GenomesScanned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "niche_genomes_scanned",
			Help:    "Number of genomes compared per verification",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		VerificationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "niche_verification_duration_seconds",
			Help:    "Time spent verifying one partition",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
	}

	reg.MustRegister(
		m.VerificationsTotal,
		m.ViolationsTotal,
		m.SnapshotLoadFailures,
		m.GenomesScanned,
		m.VerificationSeconds,
	)

	return m
}

// ObserveResult records the outcome of one verification.
func (m *Metrics) ObserveResult(res partition.Result, seconds float64) {
	result := ResultConsistent
	if !res.OK {
		result = ResultViolated
	}
	m.VerificationsTotal.WithLabelValues(result).Inc()
	m.GenomesScanned.Observe(float64(res.GenomesScanned))
	m.VerificationSeconds.Observe(seconds)
}

// Reporter returns a partition.Reporter that counts violations by kind.
func (m *Metrics) Reporter() partition.Reporter {
	return partition.ReporterFunc(func(v partition.Violation) error {
		m.ViolationsTotal.WithLabelValues(string(v.Kind)).Inc()
		return nil
	})
}

// RecordLoadFailure counts a snapshot that could not be loaded.
func (m *Metrics) RecordLoadFailure(code string) {
	if code == "" {
		code = "unknown"
	}
	m.SnapshotLoadFailures.WithLabelValues(code).Inc()
}
