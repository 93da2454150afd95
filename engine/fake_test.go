package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"webstress/browser"
	"webstress/config"
	"webstress/models"
)

// fakePage scripts page behaviour for engine tests: counts maps a
// structural query to its match count, visible marks selectors that
// never become interactable, and failAll simulates a dead session.
type fakePage struct {
	mu          sync.Mutex
	counts      map[string]int
	textHits    map[string]textHit
	notVisible  map[string]bool
	clickErrs   map[string]error
	clicks      []string
	countCalls  int
	evalExprs   []string
	evalFn      func(expr string, out any) error
	screenshot  []byte
	failAll     error
	consoleFns  []func(browser.ConsoleEvent)
	networkFns  []func(browser.NetworkEvent)
	navigations []string
}

type textHit struct {
	selector string
	matches  int
}

func newFakePage() *fakePage {
	return &fakePage{
		counts:     make(map[string]int),
		textHits:   make(map[string]textHit),
		notVisible: make(map[string]bool),
		clickErrs:  make(map[string]error),
		screenshot: []byte("png"),
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.failAll != nil {
		return p.failAll
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.mu.Unlock()
	return nil
}

func (p *fakePage) WaitReady(ctx context.Context) error {
	return p.failAll
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string) error {
	if p.failAll != nil {
		return p.failAll
	}
	p.mu.Lock()
	hidden := p.notVisible[selector]
	p.mu.Unlock()
	if hidden {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	if p.failAll != nil {
		return p.failAll
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	err := p.clickErrs[selector]
	p.mu.Unlock()
	return err
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	if p.failAll != nil {
		return 0, p.failAll
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.countCalls++
	return p.counts[selector], nil
}

func (p *fakePage) FindByText(ctx context.Context, base, value string) (string, int, error) {
	if p.failAll != nil {
		return "", 0, p.failAll
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.countCalls++
	hit := p.textHits[base+"|"+value]
	return hit.selector, hit.matches, nil
}

func (p *fakePage) Evaluate(ctx context.Context, expr string, out any) error {
	if p.failAll != nil {
		return p.failAll
	}
	p.mu.Lock()
	p.evalExprs = append(p.evalExprs, expr)
	fn := p.evalFn
	p.mu.Unlock()
	if fn != nil {
		return fn(expr, out)
	}
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.failAll != nil {
		return nil, p.failAll
	}
	return p.screenshot, nil
}

func (p *fakePage) OnConsole(fn func(browser.ConsoleEvent)) {
	p.consoleFns = append(p.consoleFns, fn)
}

func (p *fakePage) OnNetwork(fn func(browser.NetworkEvent)) {
	p.networkFns = append(p.networkFns, fn)
}

func (p *fakePage) clickCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clicks)
}

// fakeSampler records sampled phases and reports a fixed usage.
type fakeSampler struct {
	mu      sync.Mutex
	percent float64
	phases  []string
}

func (s *fakeSampler) Sample(ctx context.Context, phase string) (models.MemorySample, bool) {
	s.mu.Lock()
	s.phases = append(s.phases, phase)
	s.mu.Unlock()
	return models.NewMemorySample(phase, int64(s.percent*10), 1000), true
}

// fakeShots records saved screenshots.
type fakeShots struct {
	mu    sync.Mutex
	saved []string
}

func (s *fakeShots) Save(runIndex int, label string, png []byte) (string, error) {
	path := fmt.Sprintf("shots/run_%d_%s.png", runIndex, label)
	s.mu.Lock()
	s.saved = append(s.saved, path)
	s.mu.Unlock()
	return path, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TargetURL = "https://example.test/builder/"
	cfg.ResolveTimeout = 200 * time.Millisecond
	cfg.ActionTimeout = 100 * time.Millisecond
	cfg.SettleDelay = 0
	cfg.StepDelay = 0
	cfg.IterationDelay = 0
	cfg.HeapReliefSettle = 0
	return cfg
}
