// Package models defines data structures for the stress campaign.
package models

import "fmt"

// SelectorKind is the strategy used to address a UI element.
type SelectorKind string

const (
	SelectorText           SelectorKind = "text"
	SelectorTestID         SelectorKind = "testid"
	SelectorComposite      SelectorKind = "composite"
	SelectorSectionProduct SelectorKind = "section_product"
)

// Valid reports whether the kind is one of the closed set.
func (k SelectorKind) Valid() bool {
	switch k {
	case SelectorText, SelectorTestID, SelectorComposite, SelectorSectionProduct:
		return true
	}
	return false
}

// SelectorSpec declares how to locate one element. Base narrows the
// candidate set for text searches and is meaningless for other kinds.
// Specs are created from configuration and never mutated.
type SelectorSpec struct {
	Kind  SelectorKind `json:"kind" yaml:"kind"`
	Value string       `json:"value" yaml:"value"`
	Base  string       `json:"base,omitempty" yaml:"base,omitempty"`
}

func (s SelectorSpec) String() string {
	if s.Base != "" {
		return fmt.Sprintf("%s(%q in %q)", s.Kind, s.Value, s.Base)
	}
	return fmt.Sprintf("%s(%q)", s.Kind, s.Value)
}

// ActionKind is the typed action applied to a resolved element.
type ActionKind string

const (
	ActionClick             ActionKind = "click"
	ActionIncrementQuantity ActionKind = "increment_quantity"
)

// Valid reports whether the action is recognised.
func (a ActionKind) Valid() bool {
	return a == ActionClick || a == ActionIncrementQuantity
}

// Step is one interaction in the configured test path.
type Step struct {
	Label    string       `json:"step" yaml:"step"`
	Action   ActionKind   `json:"action" yaml:"action"`
	Selector SelectorSpec `json:"selector" yaml:"selector"`
}
