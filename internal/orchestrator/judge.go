package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dusk-indust/diverge/internal/backend"
)

// Judge reduces a candidate set to the final solutions. It tries the primary
// judge, then each alternate judge in order, then falls back to the leading
// raw candidates. With no candidates at all it delegates to the direct
// fallback and no judge is called.
type Judge struct {
	client         backend.Client
	primary        string
	alternates     []string
	final          int
	primaryChars   int
	alternateChars int
	maxTokens      int
	timeout        time.Duration
	direct         *DirectFallback
	logger         *zap.Logger
}

// NewJudge creates a Judge from cfg. direct handles the zero-candidate case.
func NewJudge(client backend.Client, cfg Config, direct *DirectFallback, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{
		client:         client,
		primary:        cfg.PrimaryJudge,
		alternates:     cfg.AlternateJudges,
		final:          cfg.FinalSolutions,
		primaryChars:   cfg.PrimaryDescriptionChars,
		alternateChars: cfg.AlternateDescriptionChars,
		maxTokens:      cfg.Tokens.Judge,
		timeout:        cfg.CallTimeout,
		direct:         direct,
		logger:         logger,
	}
}

// Reduce returns at most the configured number of final solutions. It fails
// only when there are no candidates and the direct fallback is exhausted.
// perspectives supplies the labels shown next to each candidate.
func (j *Judge) Reduce(ctx context.Context, problem string, candidates []Solution, perspectives []Perspective) (Reduction, error) {
	if len(candidates) == 0 {
		j.logger.Info("no candidates, answering directly")
		return j.direct.Run(ctx, problem)
	}

	labels := make(map[string]string, len(perspectives))
	for _, p := range perspectives {
		labels[p.ID] = p.Label
	}

	steps := []step[[]Solution]{j.judgeStep(problem, j.primary, summarize(candidates, labels, j.primaryChars))}
	if len(j.alternates) > 0 {
		tight := summarize(candidates, labels, j.alternateChars)
		for _, id := range j.alternates {
			steps = append(steps, j.judgeStep(problem, id, tight))
		}
	}

	solutions, idx, err := cascade(ctx, steps, func(name string, err error) {
		j.logger.Warn("judge failed",
			zap.String("backend", name),
			zap.String("outcome", backend.Outcome(err)),
			zap.Error(err),
		)
	})
	if err == nil {
		path := PathAlternateJudge
		if idx == 0 {
			path = PathPrimaryJudge
		}
		return Reduction{Solutions: solutions, Path: path, Backend: steps[idx].name}, nil
	}

	n := min(j.final, len(candidates))
	j.logger.Warn("every judge failed, returning leading candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", n),
	)
	top := make([]Solution, n)
	copy(top, candidates[:n])
	return Reduction{Solutions: top, Path: PathTopCandidates}, nil
}

func (j *Judge) judgeStep(problem, backendID, summaries string) step[[]Solution] {
	prompt := judgePrompt(problem, summaries, j.final)
	return step[[]Solution]{
		name: backendID,
		run: func(ctx context.Context) ([]Solution, error) {
			return solutionCall(ctx, j.client, j.timeout, backendID, prompt, j.maxTokens, j.final)
		},
	}
}
