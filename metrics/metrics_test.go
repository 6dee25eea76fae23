package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunMetricsCountsOutcomes(t *testing.T) {
	t.Parallel()

	m := NewRunMetrics()
	m.RecordOutcome("monitors", OutcomeCreated)
	m.RecordOutcome("monitors", OutcomeCreated)
	m.RecordOutcome("monitors", OutcomeSkipped)
	m.RecordFetchFailure("dashboards")

	if got := testutil.ToFloat64(m.operations.WithLabelValues("monitors", OutcomeCreated)); got != 2 {
		t.Fatalf("expected 2 created monitors, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("monitors", OutcomeSkipped)); got != 1 {
		t.Fatalf("expected 1 skipped monitor, got %v", got)
	}
	if got := testutil.ToFloat64(m.fetchFailures.WithLabelValues("dashboards")); got != 1 {
		t.Fatalf("expected 1 fetch failure, got %v", got)
	}
}

func TestRunMetricsWriteTextfile(t *testing.T) {
	t.Parallel()

	m := NewRunMetrics()
	m.RecordOutcome("roles", OutcomeUpdated)

	path := filepath.Join(t.TempDir(), "orgsync.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	want := `orgsync_resource_operations_total{outcome="updated",resource_type="roles"} 1`
	if !strings.Contains(string(data), want) {
		t.Fatalf("expected %q in textfile, got:\n%s", want, data)
	}
}
