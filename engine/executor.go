package engine

import (
	"context"
	"errors"
	"fmt"

	"webstress/browser"
	"webstress/config"
	"webstress/models"
)

// Executor applies a typed action to a resolved element with a bounded
// interactability wait. It never waits for downstream page mutations an
// action triggers; the next step's own resolution wait covers those.
type Executor struct {
	page browser.Page
	cfg  *config.Config
}

// NewExecutor builds an executor bound to one page handle.
func NewExecutor(page browser.Page, cfg *config.Config) *Executor {
	return &Executor{page: page, cfg: cfg}
}

// Apply performs the action against the resolved selector.
func (e *Executor) Apply(ctx context.Context, selector string, action models.ActionKind) error {
	switch action {
	case models.ActionClick:
		return e.click(ctx, selector, action)
	case models.ActionIncrementQuantity:
		return e.incrementQuantity(ctx, selector)
	default:
		return fmt.Errorf("unrecognized action %q", action)
	}
}

func (e *Executor) click(ctx context.Context, selector string, action models.ActionKind) error {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	defer cancel()

	if err := e.page.WaitVisible(opCtx, selector); err != nil {
		return classifyActionErr(selector, action, err)
	}
	if err := e.page.Click(opCtx, selector); err != nil {
		return classifyActionErr(selector, action, err)
	}
	return nil
}

// incrementQuantity expects selector to address a product section and
// clicks the increment control nested inside it. A missing control is
// ErrControlNotFound, distinct from the section itself being absent.
func (e *Executor) incrementQuantity(ctx context.Context, section string) error {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	defer cancel()

	control := section + " " + e.cfg.IncrementSelector
	count, err := e.page.Count(opCtx, control)
	if err != nil {
		return classifyActionErr(control, models.ActionIncrementQuantity, err)
	}
	if count == 0 {
		return ErrControlNotFound{Section: section, Control: e.cfg.IncrementSelector}
	}

	if err := e.page.WaitVisible(opCtx, control); err != nil {
		return classifyActionErr(control, models.ActionIncrementQuantity, err)
	}
	if err := e.page.Click(opCtx, control); err != nil {
		return classifyActionErr(control, models.ActionIncrementQuantity, err)
	}
	return nil
}

func classifyActionErr(selector string, action models.ActionKind, err error) error {
	if errors.Is(err, browser.ErrSessionClosed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrActionTimeout{Selector: selector, Action: action, Err: err}
	}
	return fmt.Errorf("%s on %q: %w", action, selector, err)
}
