package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dusk-indust/diverge/internal/backend"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline errors. Run wraps them in a *UserError.
var (
	ErrEmptyProblem    = errors.New("problem statement is empty")
	ErrExpansionFailed = errors.New("perspective expansion failed")
)

// UserError is a terminal pipeline failure. Error returns a message fit for
// end users; the cause is available through errors.Unwrap.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string { return e.Msg }

func (e *UserError) Unwrap() error { return e.Err }

// Recorder receives one observation per finished run.
type Recorder interface {
	RecordRun(path Path, candidates int, elapsed time.Duration)
	RecordFailure(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(Path, int, time.Duration) {}
func (nopRecorder) RecordFailure(string)               {}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger shared by every stage.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the run metrics sink.
func WithRecorder(r Recorder) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// Pipeline implements Orchestrator. It sequences perspective expansion,
// parallel candidate generation and judging, reporting coarse progress
// through a ProgressReporter.
type Pipeline struct {
	cfg      Config
	progress *ProgressReporter
	expander *Expander
	fanout   *FanOut
	judge    *Judge
	logger   *zap.Logger
	recorder Recorder
}

// NewPipeline validates cfg and wires every stage to client.
func NewPipeline(cfg Config, client backend.Client, opts ...PipelineOption) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		progress: NewProgressReporter(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.expander = NewExpander(client, cfg.Expander, cfg.Perspectives, cfg.Tokens.Expander, cfg.CallTimeout, p.logger.Named("expander"))
	p.fanout = NewFanOut(client, cfg.SolutionsPerCandidate, cfg.Tokens.Candidate,
		WithProgress(p.progress.Emit),
		WithConcurrency(cfg.MaxConcurrency),
		WithCallTimeout(cfg.CallTimeout),
		WithFanOutLogger(p.logger.Named("fanout")),
	)
	direct := NewDirectFallback(client, cfg.DirectFallbacks, cfg.FinalSolutions, cfg.Tokens.Direct, cfg.CallTimeout, p.logger.Named("direct"))
	p.judge = NewJudge(client, cfg, direct, p.logger.Named("judge"))
	return p, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run executes the full pipeline for one problem. Any returned error is a
// *UserError and no partial result accompanies it.
func (p *Pipeline) Run(ctx context.Context, problem string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run", runID))

	problem = strings.TrimSpace(problem)
	if problem == "" {
		p.recorder.RecordFailure("empty-problem")
		return nil, &UserError{Msg: "Please describe the problem you want solutions for.", Err: ErrEmptyProblem}
	}

	p.stage(ctx, runID, StagePerspectives, ProgressWorking, "")
	perspectives, err := p.expander.Expand(ctx, problem)
	if err != nil {
		p.stage(ctx, runID, StagePerspectives, ProgressFailed, err.Error())
		p.recorder.RecordFailure("expansion")
		log.Error("perspective expansion failed", zap.String("stage", StagePerspectives.String()), zap.Error(err))
		return nil, &UserError{
			Msg: "Could not analyse the problem right now. Please try again in a moment.",
			Err: fmt.Errorf("pipeline: %w: %w", ErrExpansionFailed, err),
		}
	}
	p.stage(ctx, runID, StagePerspectives, ProgressComplete, fmt.Sprintf("%d perspectives", len(perspectives)))

	p.stage(ctx, runID, StageCandidates, ProgressWorking, "")
	candidates := p.fanout.Generate(ctx, problem, perspectives, p.cfg.Roster)
	p.stage(ctx, runID, StageCandidates, ProgressComplete, fmt.Sprintf("%d candidates", len(candidates)))

	p.stage(ctx, runID, StageJudging, ProgressWorking, "")
	red, err := p.judge.Reduce(ctx, problem, candidates, perspectives)
	if err != nil {
		p.stage(ctx, runID, StageJudging, ProgressFailed, err.Error())
		p.recorder.RecordFailure("exhausted")
		log.Error("no backend produced solutions", zap.String("stage", StageJudging.String()), zap.Error(err))
		return nil, &UserError{
			Msg: "No backend was able to propose solutions right now. Please try again later.",
			Err: fmt.Errorf("pipeline: %w", err),
		}
	}
	p.stage(ctx, runID, StageJudging, ProgressComplete, string(red.Path))

	elapsed := time.Since(start)
	p.recorder.RecordRun(red.Path, len(candidates), elapsed)
	log.Info("run complete",
		zap.Int("perspectives", len(perspectives)),
		zap.Int("candidates", len(candidates)),
		zap.Int("solutions", len(red.Solutions)),
		zap.String("path", string(red.Path)),
		zap.String("backend", red.Backend),
		zap.Duration("duration", elapsed),
	)

	return &Result{
		RunID:          runID,
		Problem:        problem,
		Perspectives:   perspectives,
		CandidateCount: len(candidates),
		Solutions:      red.Solutions,
		Path:           red.Path,
		Backend:        red.Backend,
		Elapsed:        elapsed,
	}, nil
}

// Progress returns a channel that emits progress events.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Close shuts down the progress reporter. Callers should invoke this when the
// pipeline is no longer needed.
func (p *Pipeline) Close() {
	p.progress.Close()
}

func (p *Pipeline) stage(ctx context.Context, runID string, stage Stage, status ProgressStatus, msg string) {
	ev := ProgressEvent{
		Stage:   stage,
		Section: FormatStageHeader(runID[:8], stage),
		Status:  status,
		Message: msg,
	}
	p.progress.Emit(ev)
	if sink := progressSink(ctx); sink != nil {
		sink(ev)
	}
}
