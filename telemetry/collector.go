// Package telemetry captures and classifies page-emitted signals while
// iterations run: console messages, network outcomes, and heap samples.
package telemetry

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"webstress/browser"
	"webstress/config"
	"webstress/models"
)

// memoryScript reads the Chrome heap counters. Environments without
// performance.memory report supported=false and sampling is skipped
// for the rest of the campaign.
const memoryScript = `(function() {
	if (typeof performance === "undefined" || !performance.memory) {
		return { supported: false, used: 0, limit: 0 };
	}
	const m = performance.memory;
	return { supported: true, used: m.usedJSHeapSize, limit: m.jsHeapSizeLimit };
})()`

type memoryReading struct {
	Supported bool  `json:"supported"`
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
}

// consoleFilter is one compiled relevance category: a name plus its
// lowercased keywords.
type consoleFilter struct {
	category string
	keywords []string
}

// Collector buffers telemetry for the iteration currently in flight.
// It subscribes to the page once; Begin and End bracket each iteration
// so events landing between iterations are dropped rather than
// misattributed.
type Collector struct {
	page    browser.Page
	filters []consoleFilter
	domains []string

	mu        sync.Mutex
	active    bool
	console   []models.LogEntry
	network   []models.NetworkEntry
	samples   []models.MemorySample
	memAbsent bool
	memWarned bool
}

// NewCollector compiles the relevance rules and subscribes to the page.
func NewCollector(page browser.Page, cfg *config.Config) *Collector {
	c := &Collector{page: page}

	for category, keywords := range cfg.Relevance.ConsoleCategories {
		f := consoleFilter{category: category}
		for _, kw := range keywords {
			f.keywords = append(f.keywords, strings.ToLower(kw))
		}
		c.filters = append(c.filters, f)
	}
	for _, d := range cfg.Relevance.NetworkDomains {
		c.domains = append(c.domains, strings.ToLower(d))
	}

	page.OnConsole(c.onConsole)
	page.OnNetwork(c.onNetwork)
	return c
}

// Begin clears the buffers and starts attributing events to a new
// iteration.
func (c *Collector) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.console = nil
	c.network = nil
	c.samples = nil
}

// End stops event attribution. Buffered telemetry stays available for
// DrainInto.
func (c *Collector) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
}

// DrainInto moves the buffered telemetry onto an iteration result.
func (c *Collector) DrainInto(res *models.IterationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res.ConsoleEntries = c.console
	res.NetworkEntries = c.network
	res.MemorySamples = c.samples
	c.console = nil
	c.network = nil
	c.samples = nil
}

// Sample reads the page heap counters for the given phase. The second
// return is false when the page exposes no memory introspection or the
// read fails; campaigns proceed without memory telemetry in that case.
func (c *Collector) Sample(ctx context.Context, phase string) (models.MemorySample, bool) {
	c.mu.Lock()
	absent := c.memAbsent
	c.mu.Unlock()
	if absent {
		return models.MemorySample{}, false
	}

	var reading memoryReading
	if err := c.page.Evaluate(ctx, memoryScript, &reading); err != nil {
		slog.Warn("memory sampling failed", slog.String("phase", phase), slog.Any("error", err))
		return models.MemorySample{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !reading.Supported {
		c.memAbsent = true
		if !c.memWarned {
			c.memWarned = true
			slog.Warn("page exposes no memory counters, skipping heap telemetry")
		}
		return models.MemorySample{}, false
	}

	sample := models.NewMemorySample(phase, reading.Used, reading.Limit)
	c.samples = append(c.samples, sample)
	return sample, true
}

func (c *Collector) onConsole(ev browser.ConsoleEvent) {
	category, relevance := c.classify(ev.Text)
	entry := models.LogEntry{
		Level:     toLogLevel(ev.Level),
		Text:      ev.Text,
		Relevance: relevance,
		Category:  category,
		Timestamp: ev.Timestamp,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.console = append(c.console, entry)
}

// onNetwork retains failures unconditionally and successful responses
// only for the configured domains.
func (c *Collector) onNetwork(ev browser.NetworkEvent) {
	if !ev.Failed && !c.domainMatch(ev.URL) {
		return
	}
	entry := models.NetworkEntry{
		URL:       ev.URL,
		Status:    ev.Status,
		Failed:    ev.Failed,
		Timestamp: ev.Timestamp,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.network = append(c.network, entry)
}

// classify matches the message against each category's keywords; the
// first hit wins. Unmatched messages are retained as noise.
func (c *Collector) classify(text string) (string, models.Relevance) {
	lower := strings.ToLower(text)
	for _, f := range c.filters {
		for _, kw := range f.keywords {
			if strings.Contains(lower, kw) {
				return f.category, models.Relevant
			}
		}
	}
	return "", models.Noise
}

func (c *Collector) domainMatch(url string) bool {
	lower := strings.ToLower(url)
	for _, d := range c.domains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}

func toLogLevel(level string) models.LogLevel {
	switch level {
	case "error":
		return models.LevelError
	case "warning":
		return models.LevelWarning
	default:
		return models.LevelInfo
	}
}
