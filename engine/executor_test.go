package engine

import (
	"context"
	"errors"
	"testing"

	"webstress/models"
)

func TestApplyClick(t *testing.T) {
	page := newFakePage()
	e := NewExecutor(page, testConfig())

	if err := e.Apply(context.Background(), `[data-testid="add"]`, models.ActionClick); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if page.clickCount() != 1 || page.clicks[0] != `[data-testid="add"]` {
		t.Fatalf("clicks = %v", page.clicks)
	}
}

func TestApplyClickTimeout(t *testing.T) {
	page := newFakePage()
	page.notVisible[`[data-testid="add"]`] = true
	e := NewExecutor(page, testConfig())

	err := e.Apply(context.Background(), `[data-testid="add"]`, models.ActionClick)
	var timeout ErrActionTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrActionTimeout, got %v", err)
	}
	if ErrorKindLabel(err) != "action_timeout" {
		t.Fatalf("label = %q, want action_timeout", ErrorKindLabel(err))
	}
	if page.clickCount() != 0 {
		t.Fatalf("click should not fire on a non-interactable element")
	}
}

func TestApplyIncrementQuantity(t *testing.T) {
	cfg := testConfig()
	section := `[data-testid="section-product"][data-product-id="shelf-24"]`
	control := section + " " + cfg.IncrementSelector

	page := newFakePage()
	page.counts[control] = 1
	e := NewExecutor(page, cfg)

	if err := e.Apply(context.Background(), section, models.ActionIncrementQuantity); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if page.clickCount() != 1 || page.clicks[0] != control {
		t.Fatalf("clicks = %v, want nested increment control", page.clicks)
	}
}

func TestApplyIncrementQuantityControlMissing(t *testing.T) {
	cfg := testConfig()
	section := `[data-testid="section-product"][data-product-id="shelf-24"]`

	page := newFakePage()
	e := NewExecutor(page, cfg)

	err := e.Apply(context.Background(), section, models.ActionIncrementQuantity)
	var control ErrControlNotFound
	if !errors.As(err, &control) {
		t.Fatalf("expected ErrControlNotFound, got %v", err)
	}
	if ErrorKindLabel(err) != "control_not_found" {
		t.Fatalf("label = %q, want control_not_found", ErrorKindLabel(err))
	}
}

func TestApplyUnknownAction(t *testing.T) {
	page := newFakePage()
	e := NewExecutor(page, testConfig())

	if err := e.Apply(context.Background(), "div", models.ActionKind("hover")); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
