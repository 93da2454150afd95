package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRelevance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relevance.yaml")
	doc := `console_categories:
  export:
    - pdf
    - render
  memory:
    - heap
network_domains:
  - api.example.test
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	rules, err := LoadRelevance(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rules.ConsoleCategories) != 2 {
		t.Fatalf("categories = %v", rules.ConsoleCategories)
	}
	if len(rules.ConsoleCategories["export"]) != 2 {
		t.Fatalf("export keywords = %v", rules.ConsoleCategories["export"])
	}
	if len(rules.NetworkDomains) != 1 || rules.NetworkDomains[0] != "api.example.test" {
		t.Fatalf("domains = %v", rules.NetworkDomains)
	}
}

func TestLoadRelevanceRejectsEmptyRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relevance.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadRelevance(path); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
