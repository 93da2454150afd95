package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"webstress/browser"
	"webstress/config"
	"webstress/models"
)

// heapReliefScript asks the page to give memory back. With --expose-gc
// it collects directly; otherwise it churns large allocations to nudge
// the collector.
const heapReliefScript = `(function() {
	if (window.gc) {
		window.gc();
		return true;
	}
	let sink = [];
	for (let i = 0; i < 10; i++) {
		sink.push(new Array(1000000).fill(0));
	}
	sink = null;
	return false;
})()`

const screenshotTimeout = 5 * time.Second

// iteration states; a failed step is terminal for the iteration only.
type iterationState string

const (
	statePending   iterationState = "pending"
	stateRunning   iterationState = "running"
	stateSucceeded iterationState = "iteration_succeeded"
	stateFailed    iterationState = "iteration_failed"
)

// Sampler takes a memory sample at a fixed point of an iteration. The
// second return is false when the environment exposes no memory
// introspection.
type Sampler interface {
	Sample(ctx context.Context, phase string) (models.MemorySample, bool)
}

// ScreenshotSink persists screenshot artifacts and returns a reference
// for the iteration result.
type ScreenshotSink interface {
	Save(runIndex int, label string, png []byte) (string, error)
}

// Runner executes the ordered step sequence for one iteration. Step
// failures are values recorded into the iteration result, never
// propagated faults: one bad iteration must not abort the campaign.
// Only a fatal session fault surfaces as an error.
type Runner struct {
	page     browser.Page
	cfg      *config.Config
	resolver *Resolver
	executor *Executor
	sampler  Sampler
	shots    ScreenshotSink
}

// NewRunner wires a runner around one shared page handle. sampler and
// shots may be nil.
func NewRunner(page browser.Page, cfg *config.Config, sampler Sampler, shots ScreenshotSink) (*Runner, error) {
	resolver, err := NewResolver(page, cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{
		page:     page,
		cfg:      cfg,
		resolver: resolver,
		executor: NewExecutor(page, cfg),
		sampler:  sampler,
		shots:    shots,
	}, nil
}

// Run executes all steps for iteration index. The returned result is
// frozen; the error is non-nil only for a fatal session fault, in
// which case the result is nil and the iteration does not count.
func (r *Runner) Run(ctx context.Context, steps []models.Step, index int) (*models.IterationResult, error) {
	res := &models.IterationResult{
		Index:  index,
		Status: models.IterationSucceeded,
	}
	start := time.Now()

	// Navigation preceded this call; tagged elements are gone.
	r.resolver.Purge()

	st := r.transition(index, statePending, stateRunning)
	r.sample(ctx, "start")

	for i := range steps {
		step := steps[i]
		slog.Debug("running step",
			slog.Int("run", index),
			slog.Int("step", i+1),
			slog.String("label", step.Label),
			slog.String("action", string(step.Action)),
		)

		if err := r.runStep(ctx, step); err != nil {
			if IsFatal(err) {
				return nil, ErrFatalSession{Err: err}
			}

			st = r.transition(index, st, stateFailed)
			res.Status = models.IterationFailed
			res.FailedStep = &steps[i]
			res.ErrorKind = ErrorKindLabel(err)
			res.Error = err.Error()
			r.captureFailure(res)

			slog.Error("step failed",
				slog.Int("run", index),
				slog.Int("step", i+1),
				slog.String("label", step.Label),
				slog.String("kind", res.ErrorKind),
				slog.Any("error", err),
			)
			break
		}

		if sample, ok := r.sample(ctx, fmt.Sprintf("after_step_%d", i+1)); ok {
			r.relieveHeap(ctx, index, sample)
		}
		if i < len(steps)-1 {
			sleep(ctx, r.cfg.StepDelay)
		}
	}

	r.sample(ctx, "end")
	if res.Status == models.IterationSucceeded {
		r.transition(index, st, stateSucceeded)
	}
	res.Duration = time.Since(start).Seconds()
	return res, nil
}

func (r *Runner) runStep(ctx context.Context, step models.Step) error {
	selector, err := r.resolver.Resolve(ctx, step.Selector)
	if err != nil {
		return err
	}
	return r.executor.Apply(ctx, selector, step.Action)
}

func (r *Runner) sample(ctx context.Context, phase string) (models.MemorySample, bool) {
	if r.sampler == nil {
		return models.MemorySample{}, false
	}
	return r.sampler.Sample(ctx, phase)
}

// relieveHeap asks the page to free memory when usage crosses the
// relief threshold, then lets the collector settle.
func (r *Runner) relieveHeap(ctx context.Context, index int, sample models.MemorySample) {
	if r.cfg.HeapReliefPercent <= 0 || sample.UsagePercent < r.cfg.HeapReliefPercent {
		return
	}

	var collected bool
	if err := r.page.Evaluate(ctx, heapReliefScript, &collected); err != nil {
		slog.Warn("heap relief failed", slog.Int("run", index), slog.Any("error", err))
		return
	}
	slog.Info("heap relief triggered",
		slog.Int("run", index),
		slog.Float64("usage_percent", sample.UsagePercent),
		slog.Bool("collected", collected),
	)
	sleep(ctx, r.cfg.HeapReliefSettle)
}

func (r *Runner) captureFailure(res *models.IterationResult) {
	if r.shots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), screenshotTimeout)
	defer cancel()

	png, err := r.page.Screenshot(ctx)
	if err != nil {
		slog.Warn("failure screenshot failed", slog.Int("run", res.Index), slog.Any("error", err))
		return
	}
	path, err := r.shots.Save(res.Index, "failure", png)
	if err != nil {
		slog.Warn("failure screenshot save failed", slog.Int("run", res.Index), slog.Any("error", err))
		return
	}
	res.Screenshot = path
}

func (r *Runner) transition(index int, from, to iterationState) iterationState {
	slog.Debug("iteration state",
		slog.Int("run", index),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
	return to
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
