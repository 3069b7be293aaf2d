package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Stage identifies a coarse pipeline stage.
type Stage int

const (
	StagePerspectives Stage = iota
	StageCandidates
	StageJudging
)

var stageNames = [...]string{
	"perspective-expansion",
	"candidate-generation",
	"judging",
}

func (s Stage) String() string {
	if int(s) >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name produced by MarshalText.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// Complexity is the coarse implementation effort of a Solution. The zero
// value means unspecified.
type Complexity string

const (
	ComplexityUnspecified Complexity = ""
	ComplexityLow         Complexity = "Low"
	ComplexityMedium      Complexity = "Medium"
	ComplexityHigh        Complexity = "High"
)

// ParseComplexity maps free-form labels onto the enum. Unknown labels are
// unspecified.
func ParseComplexity(s string) Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "easy", "simple":
		return ComplexityLow
	case "medium", "moderate", "mid":
		return ComplexityMedium
	case "high", "hard", "complex":
		return ComplexityHigh
	default:
		return ComplexityUnspecified
	}
}

// Solution is one proposed approach to the problem.
type Solution struct {
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description" yaml:"description"`
	Advantages   []string   `json:"advantages,omitempty" yaml:"advantages,omitempty"`
	Complexity   Complexity `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	TimeEstimate string     `json:"timeEstimate,omitempty" yaml:"timeEstimate,omitempty"`
	Technologies []string   `json:"technologies,omitempty" yaml:"technologies,omitempty"`

	// PerspectiveID is the perspective a candidate was generated for. Empty
	// for judge and direct-fallback output.
	PerspectiveID string `json:"perspectiveId,omitempty" yaml:"perspectiveId,omitempty"`
	// Backend is the backend that produced this solution.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// Perspective is an alternative framing of the original problem.
type Perspective struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Prompt string `json:"prompt" yaml:"prompt"`
}

// Path names the reduction strategy that produced a result.
type Path string

const (
	PathPrimaryJudge   Path = "primary-judge"
	PathAlternateJudge Path = "alternate-judge"
	PathTopCandidates  Path = "top-candidates"
	PathDirectFallback Path = "direct-fallback"
)

// Reduction is the output of the judge stage.
type Reduction struct {
	Solutions []Solution
	Path      Path
	// Backend is the judge or direct backend that answered. Empty for
	// PathTopCandidates.
	Backend string
}

// Result is the final output of one pipeline run.
type Result struct {
	RunID          string        `json:"runId" yaml:"runId"`
	Problem        string        `json:"problem" yaml:"problem"`
	Perspectives   []Perspective `json:"perspectives" yaml:"perspectives"`
	CandidateCount int           `json:"candidateCount" yaml:"candidateCount"`
	Solutions      []Solution    `json:"solutions" yaml:"solutions"`
	Path           Path          `json:"path" yaml:"path"`
	Backend        string        `json:"backend,omitempty" yaml:"backend,omitempty"`
	Elapsed        time.Duration `json:"elapsed" yaml:"elapsed"`
}

// ProgressEvent is emitted to the caller during pipeline execution.
type ProgressEvent struct {
	Stage   Stage          `json:"stage"`
	Section string         `json:"section"`
	Status  ProgressStatus `json:"status"`
	Message string         `json:"message,omitempty"`
}

// ProgressStatus is the state of a stage or of one call within a stage.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// Orchestrator turns a problem statement into a ranked set of solutions.
type Orchestrator interface {
	// Run executes the full pipeline for one problem.
	Run(ctx context.Context, problem string) (*Result, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
