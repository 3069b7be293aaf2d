package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// TokenBudgets holds the per-call maximum output tokens for each call kind.
type TokenBudgets struct {
	Expander  int `mapstructure:"expander" yaml:"expander" json:"expander"`
	Candidate int `mapstructure:"candidate" yaml:"candidate" json:"candidate"`
	Judge     int `mapstructure:"judge" yaml:"judge" json:"judge"`
	Direct    int `mapstructure:"direct" yaml:"direct" json:"direct"`
}

// Config holds the backend assignment and limits for a pipeline. Order of
// AlternateJudges and DirectFallbacks is the order they are tried in.
type Config struct {
	// Roster lists the generation backends used for every perspective.
	Roster []string

	// Expander is the backend that rewrites the problem into perspectives.
	Expander string

	// PrimaryJudge reduces the candidate set.
	PrimaryJudge string

	// AlternateJudges are tried in order when the primary judge fails.
	AlternateJudges []string

	// DirectFallbacks answer the problem directly when no candidates exist.
	DirectFallbacks []string

	Tokens TokenBudgets

	// Perspectives is how many framings the expander is asked for.
	Perspectives int

	// SolutionsPerCandidate is how many solutions each generation call asks for.
	SolutionsPerCandidate int

	// FinalSolutions is the target size of the reduced list.
	FinalSolutions int

	PrimaryDescriptionChars   int
	AlternateDescriptionChars int

	// MaxConcurrency caps in-flight generation calls. Zero means unlimited.
	MaxConcurrency int

	// CallTimeout bounds each generation call. Zero means no per-call deadline.
	CallTimeout time.Duration
}

// BackendRoles lists the backends assigned to each pipeline role.
type BackendRoles struct {
	Roster          []string `json:"roster"`
	Expander        string   `json:"expander"`
	PrimaryJudge    string   `json:"primaryJudge"`
	AlternateJudges []string `json:"alternateJudges"`
	DirectFallbacks []string `json:"directFallbacks"`
}

// Roles returns the backend assignment of c.
func (c Config) Roles() BackendRoles {
	return BackendRoles{
		Roster:          c.Roster,
		Expander:        c.Expander,
		PrimaryJudge:    c.PrimaryJudge,
		AlternateJudges: c.AlternateJudges,
		DirectFallbacks: c.DirectFallbacks,
	}
}

// DefaultConfig returns the limits and budgets used when none are configured.
// Backend identifiers are left empty.
func DefaultConfig() Config {
	return Config{
		Tokens: TokenBudgets{
			Expander:  1024,
			Candidate: 1500,
			Judge:     2500,
			Direct:    2500,
		},
		Perspectives:              3,
		SolutionsPerCandidate:     2,
		FinalSolutions:            5,
		PrimaryDescriptionChars:   150,
		AlternateDescriptionChars: 80,
		CallTimeout:               60 * time.Second,
	}
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.Roster) == 0 {
		errs = append(errs, errors.New("roster: at least one backend is required"))
	}
	if c.Expander == "" {
		errs = append(errs, errors.New("expander: backend is required"))
	}
	if c.PrimaryJudge == "" {
		errs = append(errs, errors.New("primaryJudge: backend is required"))
	}
	positive := []struct {
		name string
		v    int
	}{
		{"tokens.expander", c.Tokens.Expander},
		{"tokens.candidate", c.Tokens.Candidate},
		{"tokens.judge", c.Tokens.Judge},
		{"tokens.direct", c.Tokens.Direct},
		{"perspectives", c.Perspectives},
		{"solutionsPerCandidate", c.SolutionsPerCandidate},
		{"finalSolutions", c.FinalSolutions},
		{"primaryDescriptionChars", c.PrimaryDescriptionChars},
		{"alternateDescriptionChars", c.AlternateDescriptionChars},
	}
	for _, f := range positive {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %d", f.name, f.v))
		}
	}
	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("maxConcurrency: must not be negative, got %d", c.MaxConcurrency))
	}
	if c.CallTimeout < 0 {
		errs = append(errs, fmt.Errorf("callTimeout: must not be negative, got %s", c.CallTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid pipeline config: %w", errors.Join(errs...))
	}
	return nil
}
