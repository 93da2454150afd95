// Package config holds campaign configuration and test-path loading.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrConfiguration marks a configuration fault. Campaigns fail fast on
// it before any iteration runs.
var ErrConfiguration = errors.New("invalid configuration")

// Relevance holds the injected classification rules for telemetry.
// Console entries matching any category keyword are kept as signal;
// everything else is retained as noise. Network entries are retained
// when they fail or when their URL matches one of the domains.
type Relevance struct {
	ConsoleCategories map[string][]string `yaml:"console_categories" json:"console_categories"`
	NetworkDomains    []string            `yaml:"network_domains" json:"network_domains"`
}

// Config holds campaign configuration.
type Config struct {
	TargetURL  string
	StepsFile  string
	Iterations int
	Headless   bool
	UserAgent  string

	ResolveTimeout time.Duration
	ActionTimeout  time.Duration
	ReadyTimeout   time.Duration
	SettleDelay    time.Duration
	StepDelay      time.Duration
	IterationDelay time.Duration

	HeapReliefPercent float64
	HeapReliefSettle  time.Duration
	DegradationPoints float64

	SectionSelector   string
	ProductAttribute  string
	TestIDAttribute   string
	IncrementSelector string

	OutputDir      string
	ReportEndpoint string
	MetricsAddr    string
	Verbose        bool

	Relevance Relevance
}

// DefaultConfig returns conservative defaults mirroring real campaign
// runs against configurator-style applications.
func DefaultConfig() *Config {
	return &Config{
		StepsFile:  "test_path.json",
		Iterations: 5,
		Headless:   true,
		UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",

		ResolveTimeout: 3 * time.Second,
		ActionTimeout:  10 * time.Second,
		ReadyTimeout:   15 * time.Second,
		SettleDelay:    5 * time.Second,
		StepDelay:      1 * time.Second,
		IterationDelay: 3 * time.Second,

		HeapReliefPercent: 70,
		HeapReliefSettle:  2 * time.Second,
		DegradationPoints: 10,

		SectionSelector:   `[data-testid="section-product"]`,
		ProductAttribute:  "data-product-id",
		TestIDAttribute:   "data-testid",
		IncrementSelector: `[data-testid="increment-button"]`,

		OutputDir: "output",

		Relevance: DefaultRelevance(),
	}
}

// DefaultRelevance returns the stock classification rules. The exact
// criteria are product-specific, so callers are expected to override
// them per target application.
func DefaultRelevance() Relevance {
	return Relevance{
		ConsoleCategories: map[string][]string{
			"export":   {"pdf", "canvas", "webgl", "blob", "export", "render", "screenshot"},
			"memory":   {"memory", "heap", "allocation", "leak", "out of memory"},
			"app":      {"configurator", "product", "summary", "parameters"},
			"resource": {"failed to load resource", "image"},
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("%w: target URL cannot be empty", ErrConfiguration)
	}

	parsedURL, err := url.Parse(c.TargetURL)
	if err != nil {
		return fmt.Errorf("%w: invalid target URL: %v", ErrConfiguration, err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%w: target URL must include a host", ErrConfiguration)
	}

	if c.Iterations < 1 {
		return fmt.Errorf("%w: iteration count must be at least 1", ErrConfiguration)
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("%w: resolve timeout must be positive", ErrConfiguration)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("%w: action timeout must be positive", ErrConfiguration)
	}
	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("%w: ready timeout must be positive", ErrConfiguration)
	}
	if c.SettleDelay < 0 || c.StepDelay < 0 || c.IterationDelay < 0 {
		return fmt.Errorf("%w: delays cannot be negative", ErrConfiguration)
	}
	if c.HeapReliefPercent < 0 || c.HeapReliefPercent > 100 {
		return fmt.Errorf("%w: heap relief percent must be within [0, 100]", ErrConfiguration)
	}
	if c.HeapReliefSettle < 0 {
		return fmt.Errorf("%w: heap relief settle cannot be negative", ErrConfiguration)
	}
	if c.DegradationPoints <= 0 {
		return fmt.Errorf("%w: degradation points must be positive", ErrConfiguration)
	}
	if c.SectionSelector == "" || c.ProductAttribute == "" {
		return fmt.Errorf("%w: section selector and product attribute cannot be empty", ErrConfiguration)
	}
	if c.TestIDAttribute == "" {
		return fmt.Errorf("%w: test id attribute cannot be empty", ErrConfiguration)
	}
	if c.IncrementSelector == "" {
		return fmt.Errorf("%w: increment selector cannot be empty", ErrConfiguration)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output directory cannot be empty", ErrConfiguration)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("%w: user agent cannot be empty", ErrConfiguration)
	}

	return nil
}
