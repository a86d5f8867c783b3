// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// Metrics counts supervision iterations. Each supervisor owns its own
// registry; the series are exported as a node-exporter textfile rather
// than served.
type Metrics struct {
	registry *prometheus.Registry

	iterations           *prometheus.CounterVec
	constructionFailures *prometheus.CounterVec
	alreadyRunning       *prometheus.CounterVec
	lastExitStatus       *prometheus.GaugeVec
	iterationDuration    *prometheus.HistogramVec
}

// NewMetrics registers the supervisor's series on a fresh registry.
func NewMetrics() *Metrics {
	labels := []string{"jail"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jailkeeper_iterations_total",
			Help: "Supervision iterations started.",
		}, labels),
		constructionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jailkeeper_construction_failures_total",
			Help: "Iterations whose keeper exited before launching the target.",
		}, labels),
		alreadyRunning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jailkeeper_already_running_total",
			Help: "Iterations refused because the instance lock existed.",
		}, labels),
		lastExitStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jailkeeper_last_exit_status",
			Help: "Exit status of the most recent keeper (128+signal for a signal death).",
		}, labels),
		iterationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jailkeeper_iteration_duration_seconds",
			Help:    "Wall time of one supervision iteration, lock to unlock.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}, labels),
	}
	m.registry.MustRegister(
		m.iterations,
		m.constructionFailures,
		m.alreadyRunning,
		m.lastExitStatus,
		m.iterationDuration,
	)
	return m
}

// Registry returns the registry holding the supervisor's series.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) iterationStarted(jail string) {
	m.iterations.WithLabelValues(jail).Inc()
}

func (m *Metrics) constructionFailed(jail string) {
	m.constructionFailures.WithLabelValues(jail).Inc()
}

func (m *Metrics) refused(jail string) {
	m.alreadyRunning.WithLabelValues(jail).Inc()
}

func (m *Metrics) exited(jail string, status int) {
	m.lastExitStatus.WithLabelValues(jail).Set(float64(status))
}

func (m *Metrics) iterationFinished(jail string, elapsed time.Duration) {
	m.iterationDuration.WithLabelValues(jail).Observe(elapsed.Seconds())
}

// TextfilePath returns where WriteTextfile writes for chrootName.
func TextfilePath(directory, chrootName string) string {
	return filepath.Join(directory, "jailkeeper_"+chrootName+".prom")
}

// WriteTextfile writes every series to the textfile for chrootName in
// directory. The write is atomic.
func (m *Metrics) WriteTextfile(directory, chrootName string) error {
	if err := jailspec.ValidateComponent("chroot name", chrootName); err != nil {
		return err
	}
	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	path := TextfilePath(directory, chrootName)
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
