package mcptools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/diverge/internal/export"
	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, problem string) (*orchestrator.Result, error)
}

// Service handles MCP tool calls.
type Service struct {
	runner Runner
	roles  orchestrator.BackendRoles
}

// NewService creates a Service backed by runner.
func NewService(runner Runner, roles orchestrator.BackendRoles) *Service {
	return &Service{runner: runner, roles: roles}
}

// ProposeSolutions runs the pipeline for one problem. The structured output
// carries the result and the text content is its markdown rendering.
func (s *Service) ProposeSolutions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProposeInput,
) (*mcp.CallToolResult, ProposeOutput, error) {
	if strings.TrimSpace(input.Problem) == "" {
		return nil, ProposeOutput{}, orchestrator.ErrEmptyProblem
	}

	res, err := s.runner.Run(ctx, input.Problem)
	if err != nil {
		var ue *orchestrator.UserError
		if errors.As(err, &ue) {
			return nil, ProposeOutput{}, errors.New(ue.Msg)
		}
		return nil, ProposeOutput{}, err
	}

	var md strings.Builder
	if err := export.WriteMarkdown(&md, res); err != nil {
		return nil, ProposeOutput{}, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: md.String()}},
	}, toOutput(res), nil
}

// ListBackends reports the configured backend roles.
func (s *Service) ListBackends(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListBackendsInput,
) (*mcp.CallToolResult, ListBackendsOutput, error) {
	return nil, ListBackendsOutput{
		Roster:          nonNil(s.roles.Roster),
		Expander:        s.roles.Expander,
		PrimaryJudge:    s.roles.PrimaryJudge,
		AlternateJudges: nonNil(s.roles.AlternateJudges),
		DirectFallbacks: nonNil(s.roles.DirectFallbacks),
	}, nil
}

func toOutput(res *orchestrator.Result) ProposeOutput {
	out := ProposeOutput{
		RunID:        res.RunID,
		Perspectives: res.Perspectives,
		Candidates:   res.CandidateCount,
		Solutions:    res.Solutions,
		Path:         string(res.Path),
		Backend:      res.Backend,
		ElapsedMs:    res.Elapsed.Milliseconds(),
	}
	if out.Perspectives == nil {
		out.Perspectives = []orchestrator.Perspective{}
	}
	if out.Solutions == nil {
		out.Solutions = []orchestrator.Solution{}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
