// Package metrics holds the Prometheus collectors for pipeline runs.
//
// Collectors live in a private registry. The CLI writes them in the text
// exposition format with WriteFile, for node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default buckets for stage durations, in seconds.
var DefaultStageDurationBuckets = []float64{.001, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	StageRuns       *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	PipelineRuns    *prometheus.CounterVec
	Citations       *prometheus.CounterVec
	OrphanKeys      prometheus.Counter
	LookupCache     *prometheus.CounterVec
	StoredDocuments prometheus.Counter
	LookupRequests  *prometheus.CounterVec
}

// New registers all collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_stage_runs_total",
			Help: "Pipeline stage executions by final status.",
		}, []string{"stage", "status"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cg_stage_duration_seconds",
			Help:    "Pipeline stage duration.",
			Buckets: DefaultStageDurationBuckets,
		}, []string{"stage"}),
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_pipeline_runs_total",
			Help: "Pipeline runs by terminal state.",
		}, []string{"state"}),
		Citations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_citations_total",
			Help: "Citations extracted, by style.",
		}, []string{"style"}),
		OrphanKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cg_orphan_keys_total",
			Help: "Cited keys with no matching reference.",
		}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_lookup_cache_total",
			Help: "Lookup cache accesses by result.",
		}, []string{"result"}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cg_lookup_requests_total",
			Help: "Bibliographic lookup requests by service and outcome.",
		}, []string{"service", "outcome"}),
		StoredDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cg_stored_documents_total",
			Help: "Document records written to the store.",
		}),
	}
	reg.MustRegister(
		m.StageRuns, m.StageDuration, m.PipelineRuns, m.Citations,
		m.OrphanKeys, m.LookupCache, m.LookupRequests, m.StoredDocuments,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordStage records one stage execution.
func (m *Metrics) RecordStage(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageRuns.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordPipeline records a finished run.
func (m *Metrics) RecordPipeline(state string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(state).Inc()
}

// RecordCitations adds per-style citation counts and orphan keys.
func (m *Metrics) RecordCitations(byStyle map[string]int, orphans int) {
	if m == nil {
		return
	}
	for style, n := range byStyle {
		m.Citations.WithLabelValues(style).Add(float64(n))
	}
	m.OrphanKeys.Add(float64(orphans))
}

// RecordCacheAccess records a lookup cache hit or miss.
func (m *Metrics) RecordCacheAccess(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LookupCache.WithLabelValues(result).Inc()
}

// RecordLookup records one request to an external lookup service.
func (m *Metrics) RecordLookup(service, outcome string) {
	if m == nil {
		return
	}
	m.LookupRequests.WithLabelValues(service, outcome).Inc()
}

// RecordStored counts a record written to the store.
func (m *Metrics) RecordStored() {
	if m == nil {
		return
	}
	m.StoredDocuments.Inc()
}

// WriteFile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
