package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/diverge/internal/backend"
)

// CandidateTask describes one generation call: a perspective sent to one
// roster backend.
type CandidateTask struct {
	// Backend is the roster backend that will receive the prompt.
	Backend string

	// Perspective is the framing the prompt is built from.
	Perspective Perspective

	// Section identifies the task in progress events.
	Section string
}

// CandidateResult holds the outcome of a single CandidateTask after fan-out.
type CandidateResult struct {
	Section string

	// Solutions are the parsed candidates on success.
	Solutions []Solution

	// Err is non-nil if the call or its decoding failed.
	Err error
}

// FanOut dispatches generation calls for every perspective and roster backend
// pair in parallel and collects whatever succeeds. A failed call never
// cancels its siblings.
type FanOut struct {
	client         backend.Client
	onProgress     func(ProgressEvent)
	logger         *zap.Logger
	perCall        int
	maxTokens      int
	maxConcurrency int
	callTimeout    time.Duration
}

// FanOutOption configures a FanOut.
type FanOutOption func(*FanOut)

// WithProgress registers a callback invoked from each goroutine.
func WithProgress(fn func(ProgressEvent)) FanOutOption {
	return func(f *FanOut) { f.onProgress = fn }
}

// WithConcurrency caps in-flight calls. Zero or less means unlimited.
func WithConcurrency(n int) FanOutOption {
	return func(f *FanOut) { f.maxConcurrency = n }
}

// WithCallTimeout bounds each call. Zero means no per-call deadline.
func WithCallTimeout(d time.Duration) FanOutOption {
	return func(f *FanOut) { f.callTimeout = d }
}

// WithFanOutLogger sets the logger.
func WithFanOutLogger(l *zap.Logger) FanOutOption {
	return func(f *FanOut) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFanOut creates a FanOut asking each call for perCall solutions within
// maxTokens.
func NewFanOut(client backend.Client, perCall, maxTokens int, opts ...FanOutOption) *FanOut {
	f := &FanOut{
		client:    client,
		logger:    zap.NewNop(),
		perCall:   perCall,
		maxTokens: maxTokens,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Tasks builds the perspective x roster cross-product in perspective-major
// order.
func Tasks(perspectives []Perspective, roster []string) []CandidateTask {
	tasks := make([]CandidateTask, 0, len(perspectives)*len(roster))
	for _, p := range perspectives {
		for _, b := range roster {
			tasks = append(tasks, CandidateTask{
				Backend:     b,
				Perspective: p,
				Section:     fmt.Sprintf("%s/%s", p.ID, b),
			})
		}
	}
	return tasks
}

// Generate issues one call per perspective and roster backend, waits for all
// of them to settle, and returns the union of every successful call's
// solutions in task order. It never fails; with no perspectives it makes no
// calls and returns an empty slice.
func (f *FanOut) Generate(ctx context.Context, problem string, perspectives []Perspective, roster []string) []Solution {
	results := f.Run(ctx, problem, Tasks(perspectives, roster))

	out := make([]Solution, 0, len(results)*f.perCall)
	for _, r := range results {
		out = append(out, r.Solutions...)
	}
	return out
}

// Run dispatches every task in parallel, emitting progress events for each.
// Each goroutine writes only its own slot, and all slots are returned once
// every call has settled.
func (f *FanOut) Run(ctx context.Context, problem string, tasks []CandidateTask) []CandidateResult {
	results := make([]CandidateResult, len(tasks))

	// A plain Group: one call failing must not cancel the others.
	var g errgroup.Group
	if f.maxConcurrency > 0 {
		g.SetLimit(f.maxConcurrency)
	}

	for i, task := range tasks {
		f.emit(ctx, ProgressEvent{
			Stage:   StageCandidates,
			Section: task.Section,
			Status:  ProgressPending,
		})

		g.Go(func() error {
			results[i] = f.runOne(ctx, problem, task)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (f *FanOut) runOne(ctx context.Context, problem string, task CandidateTask) CandidateResult {
	res := CandidateResult{Section: task.Section}
	if err := ctx.Err(); err != nil {
		res.Err = err
		f.fail(ctx, task, err)
		return res
	}

	f.emit(ctx, ProgressEvent{
		Stage:   StageCandidates,
		Section: task.Section,
		Status:  ProgressWorking,
	})

	raw, err := invokeWithin(ctx, f.client, f.callTimeout, task.Backend, candidatePrompt(problem, task.Perspective, f.perCall), f.maxTokens)
	if err != nil {
		res.Err = err
		f.fail(ctx, task, err)
		return res
	}

	solutions, err := parseSolutions(raw, task.Backend)
	if err != nil {
		res.Err = fmt.Errorf("candidate %s: %w", task.Section, err)
		f.fail(ctx, task, res.Err)
		return res
	}
	for i := range solutions {
		solutions[i].PerspectiveID = task.Perspective.ID
	}
	res.Solutions = solutions

	f.emit(ctx, ProgressEvent{
		Stage:   StageCandidates,
		Section: task.Section,
		Status:  ProgressComplete,
		Message: fmt.Sprintf("%d solutions", len(solutions)),
	})
	return res
}

func (f *FanOut) fail(ctx context.Context, task CandidateTask, err error) {
	f.logger.Warn("candidate call failed",
		zap.String("backend", task.Backend),
		zap.String("perspective", task.Perspective.ID),
		zap.String("outcome", backend.Outcome(err)),
		zap.Error(err),
	)
	f.emit(ctx, ProgressEvent{
		Stage:   StageCandidates,
		Section: task.Section,
		Status:  ProgressFailed,
		Message: err.Error(),
	})
}

// emit sends a progress event to the registered callback and to the sink
// carried by ctx, if any.
func (f *FanOut) emit(ctx context.Context, ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
	if sink := progressSink(ctx); sink != nil {
		sink(ev)
	}
}
