package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"webstress/browser"
	"webstress/models"
)

func stepSequence(n int) []models.Step {
	steps := make([]models.Step, 0, n)
	for i := 1; i <= n; i++ {
		steps = append(steps, models.Step{
			Label:  fmt.Sprintf("step %d", i),
			Action: models.ActionClick,
			Selector: models.SelectorSpec{
				Kind:  models.SelectorTestID,
				Value: fmt.Sprintf("target-%d", i),
			},
		})
	}
	return steps
}

func TestRunAllStepsSucceed(t *testing.T) {
	steps := stepSequence(3)
	page := newFakePage()
	for i := 1; i <= 3; i++ {
		page.counts[fmt.Sprintf(`[data-testid="target-%d"]`, i)] = 1
	}

	sampler := &fakeSampler{percent: 20}
	runner, err := NewRunner(page, testConfig(), sampler, &fakeShots{})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	res, err := runner.Run(context.Background(), steps, 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != models.IterationSucceeded {
		t.Fatalf("status = %q", res.Status)
	}
	if res.FailedStep != nil || res.ErrorKind != "" {
		t.Fatalf("success should carry no failure record, got step=%v kind=%q", res.FailedStep, res.ErrorKind)
	}
	if page.clickCount() != 3 {
		t.Fatalf("clicks = %d, want 3", page.clickCount())
	}
	if res.Duration <= 0 {
		t.Fatalf("duration = %v, want > 0", res.Duration)
	}

	want := []string{"start", "after_step_1", "after_step_2", "after_step_3", "end"}
	if len(sampler.phases) != len(want) {
		t.Fatalf("sampled phases = %v, want %v", sampler.phases, want)
	}
	for i, phase := range want {
		if sampler.phases[i] != phase {
			t.Fatalf("phase[%d] = %q, want %q", i, sampler.phases[i], phase)
		}
	}
}

func TestRunStepFailureStopsIteration(t *testing.T) {
	steps := stepSequence(5)
	page := newFakePage()
	for i := 1; i <= 5; i++ {
		page.counts[fmt.Sprintf(`[data-testid="target-%d"]`, i)] = 1
	}
	// Step 3 resolves but never becomes interactable.
	page.notVisible[`[data-testid="target-3"]`] = true

	shots := &fakeShots{}
	runner, err := NewRunner(page, testConfig(), nil, shots)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	res, err := runner.Run(context.Background(), steps, 4)
	if err != nil {
		t.Fatalf("a step failure must not surface as a run error, got %v", err)
	}
	if res.Status != models.IterationFailed {
		t.Fatalf("status = %q, want %q", res.Status, models.IterationFailed)
	}
	if res.FailedStep == nil || res.FailedStep.Label != "step 3" {
		t.Fatalf("failed step = %+v, want step 3", res.FailedStep)
	}
	if res.ErrorKind != "action_timeout" {
		t.Fatalf("error kind = %q, want action_timeout", res.ErrorKind)
	}
	if res.Error == "" {
		t.Fatalf("error message missing")
	}
	// Steps 1 and 2 clicked; steps 4 and 5 never attempted.
	if page.clickCount() != 2 {
		t.Fatalf("clicks = %d, want 2", page.clickCount())
	}
	if res.Screenshot == "" || !strings.Contains(res.Screenshot, "run_4_failure") {
		t.Fatalf("screenshot = %q, want failure capture for run 4", res.Screenshot)
	}
	if len(shots.saved) != 1 {
		t.Fatalf("saved screenshots = %v, want one", shots.saved)
	}
}

func TestRunFatalSessionFault(t *testing.T) {
	steps := stepSequence(2)
	page := newFakePage()
	page.failAll = browser.ErrSessionClosed

	runner, err := NewRunner(page, testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}

	res, err := runner.Run(context.Background(), steps, 2)
	if res != nil {
		t.Fatalf("fatal fault must not yield a countable result, got %+v", res)
	}
	if !IsFatal(err) {
		t.Fatalf("expected fatal session fault, got %v", err)
	}
	if ErrorKindLabel(err) != "fatal_session" {
		t.Fatalf("label = %q, want fatal_session", ErrorKindLabel(err))
	}
}

func TestRunHeapReliefAtThreshold(t *testing.T) {
	steps := stepSequence(1)
	page := newFakePage()
	page.counts[`[data-testid="target-1"]`] = 1

	cfg := testConfig()
	cfg.HeapReliefPercent = 70
	sampler := &fakeSampler{percent: 75}

	runner, err := NewRunner(page, cfg, sampler, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.Run(context.Background(), steps, 1); err != nil {
		t.Fatalf("run: %v", err)
	}

	relieved := false
	for _, expr := range page.evalExprs {
		if strings.Contains(expr, "window.gc") {
			relieved = true
		}
	}
	if !relieved {
		t.Fatalf("usage above threshold should trigger heap relief, evaluated: %v", page.evalExprs)
	}
}

func TestRunHeapReliefBelowThreshold(t *testing.T) {
	steps := stepSequence(1)
	page := newFakePage()
	page.counts[`[data-testid="target-1"]`] = 1

	cfg := testConfig()
	cfg.HeapReliefPercent = 70
	sampler := &fakeSampler{percent: 30}

	runner, err := NewRunner(page, cfg, sampler, nil)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if _, err := runner.Run(context.Background(), steps, 1); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(page.evalExprs) != 0 {
		t.Fatalf("usage below threshold should not touch the page heap, evaluated: %v", page.evalExprs)
	}
}
