package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Recorder = NoopRecorder{}
var _ Recorder = (*PrometheusRecorder)(nil)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("parse", 150*time.Millisecond)
	pr.ObserveRunDuration(500 * time.Millisecond)
	pr.IncStageResult("parse", ResultSuccess)
	pr.IncRunOutcome("success")
	pr.ObserveParseDuration(20*time.Millisecond, false)
	pr.IncCacheLookup(true)
	pr.IncCacheLookup(true)
	pr.IncCacheLookup(false)
	pr.SetParseConcurrency(4)
	pr.IncPageResult("html", PageWritten)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.cacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.cacheLookups.WithLabelValues("miss")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(pr.parseConcurrency), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.pages.WithLabelValues("html", "written")), 0)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveStageDuration("parse", time.Second)
		pr.IncRunOutcome("failed")
		pr.IncPageResult("docset", PageFailed)
	})
}

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncRunOutcome("warning")

	path := filepath.Join(t.TempDir(), "doctool.prom")
	require.NoError(t, pr.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `doctool_run_outcomes_total{outcome="warning"} 1`)
}

func TestPrometheusRecorder_HTTPHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncStageResult("resolve", ResultWarning)

	rec := httptest.NewRecorder()
	pr.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "doctool_stage_results_total"))
}
