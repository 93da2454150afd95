package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"webstress/models"
)

func sampleReport() *models.AggregateReport {
	return &models.AggregateReport{
		TargetURL:      "https://example.test/builder/",
		StartedAt:      time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
		FinishedAt:     time.Date(2026, 3, 14, 15, 12, 2, 0, time.UTC),
		RequestedRuns:  5,
		TotalRuns:      5,
		SuccessfulRuns: 4,
		FailedRuns:     1,
		RunTimes:       []float64{10.1, 9.8, 11.2, 10.4, 10.0},
		PeakUsageByRun: []float64{22.5, 31.0, 36.4, 41.1, 44.9},
		Summary: models.Summary{
			SuccessRate:   80,
			MeanRunTime:   10.3,
			MinRunTime:    9.8,
			MaxRunTime:    11.2,
			ConsoleErrors: 2,
		},
		Iterations: []*models.IterationResult{
			{Index: 1, Status: models.IterationSucceeded, Duration: 10.1},
		},
	}
}

func TestWriteReportFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	path, err := w.Write(sampleReport())
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if filepath.Base(path) != "stress_report_20260314_150926.json" {
		t.Fatalf("path = %q, want name derived from start time", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Field names are load-bearing: downstream comparison tooling keys
	// on them.
	for _, key := range []string{
		"target_url", "started_at", "finished_at",
		"requested_runs", "total_runs", "successful_runs", "failed_runs",
		"incomplete", "run_times", "peak_usage_by_run", "summary", "iterations",
	} {
		if _, ok := doc[key]; !ok {
			t.Errorf("report missing field %q", key)
		}
	}

	summary, ok := doc["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary is %T", doc["summary"])
	}
	if summary["success_rate"] != 80.0 {
		t.Errorf("success_rate = %v, want 80", summary["success_rate"])
	}
}

func TestWriterCreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	if _, err := NewWriter(dir); err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("output dir missing: %v", err)
	}
}

func TestScreenshotStoreNaming(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScreenshotStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path, err := s.Save(3, "final_state", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "run_3_final_state.png" {
		t.Fatalf("path = %q", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "png-bytes" {
		t.Fatalf("read back = %q, %v", raw, err)
	}
}
