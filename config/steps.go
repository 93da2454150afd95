package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"webstress/models"
)

// stepRecord is the on-disk test-path entry. The flat field names are
// kept stable so existing test-path files keep loading.
type stepRecord struct {
	Step          string `json:"step" yaml:"step"`
	Action        string `json:"action" yaml:"action"`
	SelectorType  string `json:"selector_type" yaml:"selector_type"`
	SelectorValue string `json:"selector_value" yaml:"selector_value"`
	Base          string `json:"base,omitempty" yaml:"base,omitempty"`
}

// LoadSteps reads an ordered step sequence from a JSON or YAML
// test-path file and validates every entry.
func LoadSteps(path string) ([]models.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read test path: %w", err)
	}

	var records []stepRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse test path %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse test path %s: %w", path, err)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: test path %s contains no steps", ErrConfiguration, path)
	}

	steps := make([]models.Step, 0, len(records))
	for i, rec := range records {
		step, err := rec.toStep()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (r stepRecord) toStep() (models.Step, error) {
	if r.Step == "" {
		return models.Step{}, fmt.Errorf("%w: step label cannot be empty", ErrConfiguration)
	}

	action := models.ActionKind(r.Action)
	if !action.Valid() {
		return models.Step{}, fmt.Errorf("%w: unknown action %q", ErrConfiguration, r.Action)
	}

	kind := models.SelectorKind(r.SelectorType)
	if !kind.Valid() {
		return models.Step{}, fmt.Errorf("%w: unknown selector kind %q", ErrConfiguration, r.SelectorType)
	}
	if r.SelectorValue == "" {
		return models.Step{}, fmt.Errorf("%w: selector value cannot be empty", ErrConfiguration)
	}
	if r.Base != "" && kind != models.SelectorText {
		return models.Step{}, fmt.Errorf("%w: base is only valid for text selectors, got %q", ErrConfiguration, r.SelectorType)
	}

	return models.Step{
		Label:  r.Step,
		Action: action,
		Selector: models.SelectorSpec{
			Kind:  kind,
			Value: r.SelectorValue,
			Base:  r.Base,
		},
	}, nil
}
