// Package report persists campaign artifacts: the aggregate report as
// JSON, screenshot captures, and optional delivery to an HTTP endpoint.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"webstress/models"
)

// Writer persists aggregate reports under a fixed output directory.
type Writer struct {
	dir string
}

// NewWriter ensures the output directory exists.
func NewWriter(dir string) (*Writer, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &Writer{dir: dir}, nil
}

// Write serialises the report to an indented JSON file named after the
// campaign start time and returns the file path.
func (w *Writer) Write(rep *models.AggregateReport) (string, error) {
	started := rep.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	path := filepath.Join(w.dir, fmt.Sprintf("stress_report_%s.json", started.Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return path, nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
