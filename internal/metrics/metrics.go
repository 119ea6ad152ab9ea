// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package metrics exposes what a dispatch did to the microceph CLI and
// the OSD index as Prometheus metrics, written to a node-exporter
// textfile.
package metrics

import (
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/canonical/microceph-osd/domain/osd"
)

const metricsNamespace = "microceph_osd"

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Collector is a prometheus.Collector that collects metrics about a
// single dispatch.
type Collector struct {
	cliCalls       *prometheus.CounterVec
	cliDuration    *prometheus.HistogramVec
	signalOutcomes *prometheus.CounterVec
	indexRecords   *prometheus.GaugeVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		cliCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "cli_calls_total",
				Help:      "The number of microceph invocations.",
			}, []string{"operation", "result"},
		),
		cliDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "cli_call_duration_seconds",
				Help:      "The time taken by microceph invocations.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180},
			}, []string{"operation"},
		),
		signalOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "signal_outcomes_total",
				Help:      "The outcome of every handled signal.",
			}, []string{"signal", "outcome"},
		),
		indexRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "index_records",
				Help:      "The number of OSDs recorded in the local index.",
			}, []string{"source"},
		),
	}
}

// ObserveCLI records a microceph invocation. It has the signature of
// microceph.Observer.
func (c *Collector) ObserveCLI(operation string, elapsed time.Duration, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.cliCalls.WithLabelValues(operation, result).Inc()
	c.cliDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveOutcome records how a signal was handled. Fatal failures are
// recorded with the outcome "error".
func (c *Collector) ObserveOutcome(signal string, outcome osd.OutcomeKind, err error) {
	label := string(outcome)
	if err != nil {
		label = resultError
	}
	c.signalOutcomes.WithLabelValues(signal, label).Inc()
}

// SetIndexRecords sets the index gauge from the current records.
func (c *Collector) SetIndexRecords(records []osd.Record) {
	c.indexRecords.Reset()
	for _, source := range []osd.Source{osd.SourceLifecycle, osd.SourceConfigMatch, osd.SourceAction} {
		c.indexRecords.WithLabelValues(string(source)).Set(0)
	}
	for _, r := range records {
		c.indexRecords.WithLabelValues(string(r.Source)).Inc()
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.cliCalls.Describe(ch)
	c.cliDuration.Describe(ch)
	c.signalOutcomes.Describe(ch)
	c.indexRecords.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.cliCalls.Collect(ch)
	c.cliDuration.Collect(ch)
	c.signalOutcomes.Collect(ch)
	c.indexRecords.Collect(ch)
}

// WriteTextfile writes the collected metrics to path in the text
// exposition format, replacing the file atomically.
func WriteTextfile(path string, collector prometheus.Collector) error {
	registry := prometheus.NewPedanticRegistry()
	if err := registry.Register(collector); err != nil {
		return errors.Annotate(err, "registering metrics collector")
	}
	return errors.Annotatef(prometheus.WriteToTextfile(path, registry), "writing metrics to %q", path)
}
