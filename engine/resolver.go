// Package engine drives iterations: it resolves selector specs to
// concrete elements, applies typed actions, and runs the per-iteration
// step state machine with failure isolation.
package engine

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"webstress/browser"
	"webstress/config"
	"webstress/models"
)

const (
	resolvePollInterval = 100 * time.Millisecond
	resolveCacheSize    = 256
)

// Resolver turns a declarative selector spec into zero-or-one concrete
// element selector. Resolutions are cached per page state so resolving
// the same spec twice against an unchanged page yields the same
// element identity; the runner purges the cache on navigation.
type Resolver struct {
	page  browser.Page
	cfg   *config.Config
	cache *lru.Cache[models.SelectorSpec, string]
}

// NewResolver builds a resolver bound to one page handle.
func NewResolver(page browser.Page, cfg *config.Config) (*Resolver, error) {
	cache, err := lru.New[models.SelectorSpec, string](resolveCacheSize)
	if err != nil {
		return nil, fmt.Errorf("resolution cache: %w", err)
	}
	return &Resolver{page: page, cfg: cfg, cache: cache}, nil
}

// Purge drops all cached resolutions. Called whenever the page
// navigates, since tagged elements do not survive a document change.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

// Resolve locates the element a spec addresses, waiting up to the
// configured resolve timeout for it to appear. A kind is fixed per
// step: resolution failure fails the step, never a fallback to an
// alternate kind.
func (r *Resolver) Resolve(ctx context.Context, spec models.SelectorSpec) (string, error) {
	if sel, ok := r.cache.Get(spec); ok {
		return sel, nil
	}

	deadline := time.Now().Add(r.cfg.ResolveTimeout)
	for {
		sel, matches, err := r.locate(ctx, spec)
		if err != nil {
			return "", err
		}

		switch {
		case matches == 1:
			r.cache.Add(spec, sel)
			return sel, nil
		case matches > 1:
			// Structural queries must identify one element class;
			// text and test-id searches take the first match.
			if spec.Kind == models.SelectorComposite || spec.Kind == models.SelectorSectionProduct {
				return "", ErrAmbiguousMatch{Spec: spec, Matches: matches}
			}
			r.cache.Add(spec, sel)
			return sel, nil
		}

		if time.Now().After(deadline) {
			return "", ErrElementNotFound{Spec: spec, Timeout: r.cfg.ResolveTimeout}
		}
		select {
		case <-ctx.Done():
			return "", ErrElementNotFound{Spec: spec, Timeout: r.cfg.ResolveTimeout, Err: ctx.Err()}
		case <-time.After(resolvePollInterval):
		}
	}
}

// locate performs one lookup attempt for a spec. The switch over
// selector kinds is exhaustive; configuration loading rejects unknown
// kinds before a campaign starts.
func (r *Resolver) locate(ctx context.Context, spec models.SelectorSpec) (string, int, error) {
	switch spec.Kind {
	case models.SelectorText:
		return r.page.FindByText(ctx, spec.Base, spec.Value)
	case models.SelectorTestID:
		sel := fmt.Sprintf(`[%s=%q]`, r.cfg.TestIDAttribute, spec.Value)
		count, err := r.page.Count(ctx, sel)
		return sel, count, err
	case models.SelectorComposite:
		// Value is an opaque structural query, passed through verbatim.
		count, err := r.page.Count(ctx, spec.Value)
		return spec.Value, count, err
	case models.SelectorSectionProduct:
		sel := fmt.Sprintf(`%s[%s=%q]`, r.cfg.SectionSelector, r.cfg.ProductAttribute, spec.Value)
		count, err := r.page.Count(ctx, sel)
		return sel, count, err
	default:
		return "", 0, fmt.Errorf("unrecognized selector kind %q", spec.Kind)
	}
}
