package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AllMetricsRegistered(t *testing.T) {
	m := New()
	m.RecordStage("text_extraction", "succeeded", time.Millisecond)
	m.RecordPipeline("completed")
	m.RecordCitations(map[string]int{"numeric": 1}, 1)
	m.RecordCacheAccess(true)
	m.RecordLookup("crossref", "ok")
	m.RecordStored()

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"cg_stage_runs_total",
		"cg_stage_duration_seconds",
		"cg_pipeline_runs_total",
		"cg_citations_total",
		"cg_orphan_keys_total",
		"cg_lookup_cache_total",
		"cg_lookup_requests_total",
		"cg_stored_documents_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestRecordStage(t *testing.T) {
	m := New()
	m.RecordStage("storage", "failed", time.Second)
	m.RecordStage("storage", "failed", time.Second)
	m.RecordStage("storage", "succeeded", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("storage", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRuns.WithLabelValues("storage", "succeeded")))
}

func TestRecordCitations(t *testing.T) {
	m := New()
	m.RecordCitations(map[string]int{"numeric": 3, "author-year": 2}, 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Citations.WithLabelValues("numeric")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Citations.WithLabelValues("author-year")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrphanKeys))
}

func TestRecordCacheAccess(t *testing.T) {
	m := New()
	m.RecordCacheAccess(true)
	m.RecordCacheAccess(false)
	m.RecordCacheAccess(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LookupCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LookupCache.WithLabelValues("miss")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordStage("x", "y", time.Second)
	m.RecordPipeline("completed")
	m.RecordCitations(map[string]int{"numeric": 1}, 1)
	m.RecordCacheAccess(true)
	m.RecordLookup("crossref", "ok")
	m.RecordStored()
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteFile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.RecordPipeline("aborted")

	path := filepath.Join(t.TempDir(), "cg.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `cg_pipeline_runs_total{state="aborted"} 1`))
}

func TestConcurrentRecording(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordPipeline("completed")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20.0, testutil.ToFloat64(m.PipelineRuns.WithLabelValues("completed")))
}
