// Package campaign orchestrates iterations over one browser page and
// folds their results into the aggregate report.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"webstress/browser"
	"webstress/config"
	"webstress/engine"
	"webstress/models"
	"webstress/telemetry"
)

// Aggregator executes a whole campaign: one page, N sequential
// iterations, and a single aggregate report at the end. A fatal
// session fault stops the campaign early; the partial report is
// flagged incomplete rather than discarded.
type Aggregator struct {
	factory browser.Factory
	cfg     *config.Config
	metrics *Metrics
	shots   engine.ScreenshotSink
}

// NewAggregator wires a campaign around a page factory. metrics and
// shots may be nil.
func NewAggregator(factory browser.Factory, cfg *config.Config, metrics *Metrics, shots engine.ScreenshotSink) *Aggregator {
	return &Aggregator{
		factory: factory,
		cfg:     cfg,
		metrics: metrics,
		shots:   shots,
	}
}

// Execute runs the campaign. Configuration faults fail fast before any
// iteration; once iterations start, the report is always returned,
// partial or not.
func (a *Aggregator) Execute(ctx context.Context, steps []models.Step) (*models.AggregateReport, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: step sequence is empty", config.ErrConfiguration)
	}

	page, err := a.factory.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	collector := telemetry.NewCollector(page, a.cfg)
	runner, err := engine.NewRunner(page, a.cfg, collector, a.shots)
	if err != nil {
		return nil, err
	}

	rep := &models.AggregateReport{
		TargetURL:     a.cfg.TargetURL,
		StartedAt:     time.Now(),
		RequestedRuns: a.cfg.Iterations,
	}
	prevMean := -1.0

	slog.Info("campaign starting",
		slog.String("target", a.cfg.TargetURL),
		slog.Int("iterations", a.cfg.Iterations),
		slog.Int("steps", len(steps)),
	)

	for i := 1; i <= a.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			a.abort(rep, err)
			break
		}

		if err := a.loadTarget(ctx, page); err != nil {
			if engine.IsFatal(err) {
				a.abort(rep, err)
				break
			}
			res := &models.IterationResult{
				Index:     i,
				Status:    models.IterationFailed,
				ErrorKind: "navigation",
				Error:     err.Error(),
			}
			slog.Error("navigation failed", slog.Int("run", i), slog.Any("error", err))
			a.record(rep, res)
			a.pause(ctx, i)
			continue
		}

		collector.Begin()
		res, runErr := runner.Run(ctx, steps, i)
		collector.End()

		if runErr != nil {
			a.abort(rep, runErr)
			break
		}

		collector.DrainInto(res)
		if res.Status == models.IterationSucceeded {
			a.captureFinalState(i, page, res)
		}
		a.record(rep, res)
		a.trackDegradation(rep, res, &prevMean)

		slog.Info("iteration finished",
			slog.Int("run", i),
			slog.String("status", string(res.Status)),
			slog.Float64("duration_seconds", res.Duration),
			slog.Int("console_entries", len(res.ConsoleEntries)),
			slog.Int("network_entries", len(res.NetworkEntries)),
		)
		a.pause(ctx, i)
	}

	rep.FinishedAt = time.Now()
	finalize(rep)

	slog.Info("campaign finished",
		slog.Int("total_runs", rep.TotalRuns),
		slog.Int("successful", rep.SuccessfulRuns),
		slog.Int("failed", rep.FailedRuns),
		slog.Bool("incomplete", rep.Incomplete),
	)
	return rep, nil
}

// loadTarget navigates to the target and waits for the document plus a
// settle window, so every iteration starts from the same fresh state.
func (a *Aggregator) loadTarget(ctx context.Context, page browser.Page) error {
	navCtx, cancel := context.WithTimeout(ctx, a.cfg.ReadyTimeout)
	defer cancel()

	if err := page.Navigate(navCtx, a.cfg.TargetURL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitReady(navCtx); err != nil {
		return fmt.Errorf("wait ready: %w", err)
	}
	sleep(ctx, a.cfg.SettleDelay)
	return nil
}

// abort marks the campaign incomplete after a fatal fault. Iterations
// already recorded stay in the report.
func (a *Aggregator) abort(rep *models.AggregateReport, err error) {
	rep.Incomplete = true
	rep.FatalError = err.Error()
	slog.Error("campaign aborted", slog.Any("error", err))
}

// record folds one finished iteration into the report and metrics.
func (a *Aggregator) record(rep *models.AggregateReport, res *models.IterationResult) {
	rep.Iterations = append(rep.Iterations, res)
	rep.TotalRuns++
	rep.RunTimes = append(rep.RunTimes, res.Duration)

	switch res.Status {
	case models.IterationSucceeded:
		rep.SuccessfulRuns++
	default:
		rep.FailedRuns++
		a.metrics.IncStepFailure(res.ErrorKind)
	}
	a.metrics.ObserveIteration(string(res.Status), time.Duration(res.Duration*float64(time.Second)))

	errors, _, failures := countTelemetry(res)
	a.metrics.AddConsoleErrors(errors)
	a.metrics.AddNetworkFailures(failures)

	if peak, ok := res.PeakUsagePercent(); ok {
		rep.PeakUsageByRun = append(rep.PeakUsageByRun, peak)
		a.metrics.SetMemoryUsage(peak)
	}
}

// trackDegradation compares the mean heap usage of consecutive
// sampled runs and records a degradation event when the increase
// exceeds the configured threshold.
func (a *Aggregator) trackDegradation(rep *models.AggregateReport, res *models.IterationResult, prevMean *float64) {
	mean, ok := meanUsage(res)
	if !ok {
		return
	}
	if *prevMean >= 0 && mean-*prevMean > a.cfg.DegradationPoints {
		event := models.DegradationEvent{
			RunIndex:            res.Index,
			PreviousMeanPercent: *prevMean,
			CurrentMeanPercent:  mean,
			IncreasePoints:      mean - *prevMean,
		}
		rep.Degradations = append(rep.Degradations, event)
		a.metrics.IncDegradation()
		slog.Warn("memory degradation detected",
			slog.Int("run", res.Index),
			slog.Float64("previous_mean_percent", *prevMean),
			slog.Float64("current_mean_percent", mean),
		)
	}
	*prevMean = mean
}

// captureFinalState screenshots the page after a successful iteration.
func (a *Aggregator) captureFinalState(index int, page browser.Page, res *models.IterationResult) {
	if a.shots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	png, err := page.Screenshot(ctx)
	if err != nil {
		slog.Warn("final state screenshot failed", slog.Int("run", index), slog.Any("error", err))
		return
	}
	path, err := a.shots.Save(index, "final_state", png)
	if err != nil {
		slog.Warn("final state screenshot save failed", slog.Int("run", index), slog.Any("error", err))
		return
	}
	res.Screenshot = path
}

func (a *Aggregator) pause(ctx context.Context, index int) {
	if index < a.cfg.Iterations {
		sleep(ctx, a.cfg.IterationDelay)
	}
}

// finalize derives the summary statistics once the campaign ends.
func finalize(rep *models.AggregateReport) {
	if rep.TotalRuns > 0 {
		rep.Summary.SuccessRate = float64(rep.SuccessfulRuns) / float64(rep.TotalRuns) * 100
	}
	if len(rep.RunTimes) > 0 {
		min, max, sum := rep.RunTimes[0], rep.RunTimes[0], 0.0
		for _, d := range rep.RunTimes {
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
			sum += d
		}
		rep.Summary.MinRunTime = min
		rep.Summary.MaxRunTime = max
		rep.Summary.MeanRunTime = sum / float64(len(rep.RunTimes))
	}
	for _, res := range rep.Iterations {
		errors, warnings, failures := countTelemetry(res)
		rep.Summary.ConsoleErrors += errors
		rep.Summary.ConsoleWarnings += warnings
		rep.Summary.NetworkFailures += failures
	}
}

// countTelemetry counts relevant console errors and warnings plus
// network transport failures for one iteration. Noise entries stay out
// of the counts.
func countTelemetry(res *models.IterationResult) (errors, warnings, failures int) {
	for _, entry := range res.ConsoleEntries {
		if entry.Relevance != models.Relevant {
			continue
		}
		switch entry.Level {
		case models.LevelError:
			errors++
		case models.LevelWarning:
			warnings++
		}
	}
	for _, entry := range res.NetworkEntries {
		if entry.Failed {
			failures++
		}
	}
	return errors, warnings, failures
}

// meanUsage averages the heap samples of one iteration.
func meanUsage(res *models.IterationResult) (float64, bool) {
	if len(res.MemorySamples) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, s := range res.MemorySamples {
		sum += s.UsagePercent
	}
	return sum / float64(len(res.MemorySamples)), true
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
