package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

type runnerFunc func(ctx context.Context, problem string) (*orchestrator.Result, error)

func (f runnerFunc) Run(ctx context.Context, problem string) (*orchestrator.Result, error) {
	return f(ctx, problem)
}

func okRunner() runnerFunc {
	return func(_ context.Context, got string) (*orchestrator.Result, error) {
		return &orchestrator.Result{
			RunID:          "run-1",
			Problem:        got,
			Perspectives:   []orchestrator.Perspective{{ID: "p1", Label: "Cost", Prompt: "cheap"}},
			CandidateCount: 6,
			Solutions: []orchestrator.Solution{
				{Name: "Cache", Description: "Add a cache.", Complexity: orchestrator.ComplexityLow, PerspectiveID: "p1"},
			},
			Path:    orchestrator.PathPrimaryJudge,
			Backend: "judge",
			Elapsed: 1500 * time.Millisecond,
		}, nil
	}
}

var testRoles = orchestrator.BackendRoles{
	Roster:          []string{"gen-a", "gen-b"},
	Expander:        "exp",
	PrimaryJudge:    "judge",
	AlternateJudges: []string{"alt"},
}

func connect(t *testing.T, runner Runner) *mcp.ClientSession {
	t.Helper()

	server := NewServer(runner, testRoles)
	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestService_ProposeSolutions(t *testing.T) {
	svc := NewService(okRunner(), testRoles)

	res, out, err := svc.ProposeSolutions(context.Background(), nil, ProposeInput{Problem: "slow API"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, 6, out.Candidates)
	assert.Equal(t, "primary-judge", out.Path)
	assert.Equal(t, int64(1500), out.ElapsedMs)
	require.Len(t, out.Solutions, 1)
	assert.Equal(t, "p1", out.Solutions[0].PerspectiveID)

	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "## 1. Cache")
}

func TestService_ProposeSolutions_EmptyProblem(t *testing.T) {
	called := false
	svc := NewService(runnerFunc(func(context.Context, string) (*orchestrator.Result, error) {
		called = true
		return nil, nil
	}), testRoles)

	_, _, err := svc.ProposeSolutions(context.Background(), nil, ProposeInput{Problem: "  "})
	require.ErrorIs(t, err, orchestrator.ErrEmptyProblem)
	assert.False(t, called)
}

func TestService_ProposeSolutions_UserError(t *testing.T) {
	svc := NewService(runnerFunc(func(context.Context, string) (*orchestrator.Result, error) {
		return nil, &orchestrator.UserError{Msg: "try again later", Err: orchestrator.ErrAllBackendsFailed}
	}), testRoles)

	_, _, err := svc.ProposeSolutions(context.Background(), nil, ProposeInput{Problem: "x"})
	require.Error(t, err)
	assert.Equal(t, "try again later", err.Error())
}

func TestService_ListBackends(t *testing.T) {
	_, out, err := NewService(nil, testRoles).ListBackends(context.Background(), nil, ListBackendsInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gen-a", "gen-b"}, out.Roster)
	assert.Equal(t, "judge", out.PrimaryJudge)
	assert.Equal(t, []string{}, out.DirectFallbacks)
}

func TestMCPListTools(t *testing.T) {
	session := connect(t, okRunner())

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"list_backends", "propose_solutions"}, names)
}

func TestMCPProposeSolutions(t *testing.T) {
	session := connect(t, okRunner())

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "propose_solutions",
		Arguments: map[string]any{"problem": "slow API"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotNil(t, result.StructuredContent)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out ProposeOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "judge", out.Backend)
	require.Len(t, out.Solutions, 1)
	assert.Equal(t, "Cache", out.Solutions[0].Name)
}

func TestMCPProposeSolutions_Failure(t *testing.T) {
	session := connect(t, runnerFunc(func(context.Context, string) (*orchestrator.Result, error) {
		return nil, &orchestrator.UserError{Msg: "no backend answered", Err: errors.New("boom")}
	}))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "propose_solutions",
		Arguments: map[string]any{"problem": "x"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "no backend answered")
}
