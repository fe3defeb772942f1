package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAggregateSignals(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregateOperation("Interventions.Create", "success", 20*time.Millisecond)
	m.IncAggregateConflict("Interventions.ReconcileSpecies")
	m.IncAggregateConflict("Interventions.ReconcileSpecies")
	m.AddBulkRows("intervention", "passed", 9)
	m.AddBulkRows("intervention", "failed", 1)
	m.AddBulkRows("intervention", "failed", 0)
	m.IncBatchFallback("intervention")
	m.IncSinkFailure("")

	require.Equal(t, 2.0, testutil.ToFloat64(m.aggregateConflicts.WithLabelValues("Interventions.ReconcileSpecies")))
	require.Equal(t, 9.0, testutil.ToFloat64(m.bulkRows.WithLabelValues("intervention", "passed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.bulkRows.WithLabelValues("intervention", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.batchFallbacks.WithLabelValues("intervention")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sinkFailures.WithLabelValues("unknown")))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregateOperation("Interventions.Create", "validation", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `reforest_aggregate_operation_duration_seconds_count{operation="Interventions.Create",status="validation"} 1`))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.IncAggregateRetry("op")
	m.AddBulkRows("tree", "passed", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 503, rec.Code)
}
