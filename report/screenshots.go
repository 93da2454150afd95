package report

import (
	"fmt"
	"os"
	"path/filepath"
)

// ScreenshotStore writes iteration screenshots next to the report.
// File names follow run_<index>_<label>.png so artifacts sort by run.
type ScreenshotStore struct {
	dir string
}

// NewScreenshotStore ensures the screenshot directory exists.
func NewScreenshotStore(dir string) (*ScreenshotStore, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &ScreenshotStore{dir: dir}, nil
}

// Save writes one capture and returns its path for the iteration
// record.
func (s *ScreenshotStore) Save(runIndex int, label string, png []byte) (string, error) {
	path := filepath.Join(s.dir, fmt.Sprintf("run_%d_%s.png", runIndex, label))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}
