package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRelevance reads classification rules from a YAML file. Campaigns
// against different target applications ship their own rule files; the
// defaults only fit configurator-style targets.
func LoadRelevance(path string) (Relevance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Relevance{}, fmt.Errorf("read relevance rules: %w", err)
	}

	var rules Relevance
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Relevance{}, fmt.Errorf("%w: parse relevance rules %s: %v", ErrConfiguration, path, err)
	}
	if len(rules.ConsoleCategories) == 0 && len(rules.NetworkDomains) == 0 {
		return Relevance{}, fmt.Errorf("%w: relevance rules %s define no categories or domains", ErrConfiguration, path)
	}
	return rules, nil
}
