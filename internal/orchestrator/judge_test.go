package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/diverge/internal/backend"
)

func newTestJudge(client backend.Client, cfg Config) *Judge {
	direct := NewDirectFallback(client, cfg.DirectFallbacks, cfg.FinalSolutions, cfg.Tokens.Direct, cfg.CallTimeout, nil)
	return NewJudge(client, cfg, direct, nil)
}

func TestJudge_ZeroCandidatesSkipsJudges(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"direct-a": reply(solutionsJSON("direct", 5)),
	})

	red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, PathDirectFallback, red.Path)
	assert.Equal(t, "direct-a", red.Backend)
	assert.Len(t, red.Solutions, 5)
	for _, id := range client.backends() {
		assert.NotContains(t, []string{"judge", "alt-1", "alt-2"}, id)
	}
}

func TestJudge_PrimarySuccess(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": reply(solutionsJSON("final", 5)),
	})

	red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", makeCandidates(12), threePerspectives())
	require.NoError(t, err)
	assert.Equal(t, PathPrimaryJudge, red.Path)
	assert.Equal(t, "judge", red.Backend)
	require.Len(t, red.Solutions, 5)
	assert.Equal(t, "final-1", red.Solutions[0].Name)
	assert.Equal(t, []string{"judge"}, client.backends())
}

func TestJudge_TrustsShortJudgeList(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": reply(solutionsJSON("final", 3)),
	})

	red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", makeCandidates(12), nil)
	require.NoError(t, err)
	assert.Len(t, red.Solutions, 3)
}

func TestJudge_CapsLongJudgeList(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": reply(solutionsJSON("final", 8)),
	})

	red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", makeCandidates(12), nil)
	require.NoError(t, err)
	assert.Len(t, red.Solutions, 5)
}

func TestJudge_QuotaMovesToAlternatesInOrder(t *testing.T) {
	cfg := testConfig()
	cfg.AlternateJudges = []string{"alt-1", "alt-2", "alt-3"}
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": fail(quota("judge")),
		"alt-1": fail(quota("alt-1")),
		"alt-2": reply(solutionsJSON("alt", 5)),
		"alt-3": reply(solutionsJSON("never", 5)),
	})

	red, err := newTestJudge(client, cfg).Reduce(context.Background(), "p", makeCandidates(6), nil)
	require.NoError(t, err)
	assert.Equal(t, PathAlternateJudge, red.Path)
	assert.Equal(t, "alt-2", red.Backend)
	assert.Equal(t, "alt-1", red.Solutions[0].Name)
	assert.Equal(t, []string{"judge", "alt-1", "alt-2"}, client.backends())
}

func TestJudge_MalformedAndEmptyCountAsFailure(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": reply("I think they are all great."),
		"alt-1": reply(`{"solutions":[]}`),
		"alt-2": reply(solutionsJSON("alt", 4)),
	})

	red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", makeCandidates(6), nil)
	require.NoError(t, err)
	assert.Equal(t, "alt-2", red.Backend)
	assert.Len(t, red.Solutions, 4)
}

func TestJudge_AllJudgesFailReturnsLeadingCandidates(t *testing.T) {
	tests := []struct {
		name       string
		candidates int
		want       int
	}{
		{"more than five", 12, 5},
		{"exactly five", 5, 5},
		{"fewer than five", 3, 3},
		{"one", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := routes(map[string]func(context.Context, string) (string, error){
				"judge": fail(quota("judge")),
				"alt-1": fail(&backend.TransportError{Backend: "alt-1", Status: 503}),
				"alt-2": reply("garbage"),
			})
			candidates := makeCandidates(tt.candidates)

			red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", candidates, nil)
			require.NoError(t, err)
			assert.Equal(t, PathTopCandidates, red.Path)
			assert.Empty(t, red.Backend)
			assert.Equal(t, candidates[:tt.want], red.Solutions)
			assert.NotContains(t, client.backends(), "direct-a")
		})
	}
}

func TestJudge_SummaryTruncation(t *testing.T) {
	long := strings.Repeat("x", 400)
	candidates := []Solution{{Name: "Long", Description: long, Complexity: ComplexityHigh, PerspectiveID: "p2"}}
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": fail(quota("judge")),
		"alt-1": reply(solutionsJSON("alt", 5)),
	})

	_, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "the problem", candidates, threePerspectives())
	require.NoError(t, err)

	primary := client.promptFor("judge")
	alternate := client.promptFor("alt-1")
	assert.Contains(t, primary, strings.Repeat("x", 150)+"...")
	assert.NotContains(t, primary, strings.Repeat("x", 151))
	assert.Contains(t, alternate, strings.Repeat("x", 80)+"...")
	assert.NotContains(t, alternate, strings.Repeat("x", 81))

	assert.Contains(t, primary, "[perspective: Platform]")
	assert.Contains(t, primary, "[complexity: High]")
	assert.Contains(t, primary, "the problem")
	assert.Contains(t, primary, "exactly 5")
}

func TestJudge_ZeroCandidatesAllDirectFail(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"direct-a": fail(quota("direct-a")),
		"direct-b": fail(errors.New("connection refused")),
	})

	red, err := newTestJudge(client, testConfig()).Reduce(context.Background(), "p", []Solution{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllBackendsFailed))
	assert.Empty(t, red.Solutions)
}

func TestJudge_HungPrimaryFallsThroughToAlternate(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": hang,
		"alt-1": reply(solutionsJSON("alt", 5)),
	})
	cfg := testConfig()
	cfg.CallTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	red, err := newTestJudge(client, cfg).Reduce(ctx, "p", makeCandidates(6), threePerspectives())
	require.NoError(t, err)
	assert.Equal(t, PathAlternateJudge, red.Path)
	assert.Equal(t, "alt-1", red.Backend)
	assert.Equal(t, []string{"judge", "alt-1"}, client.backends())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestJudge_EveryJudgeHangs(t *testing.T) {
	client := routes(map[string]func(context.Context, string) (string, error){
		"judge": hang,
		"alt-1": hang,
		"alt-2": hang,
	})
	cfg := testConfig()
	cfg.CallTimeout = 20 * time.Millisecond

	red, err := newTestJudge(client, cfg).Reduce(context.Background(), "p", makeCandidates(7), nil)
	require.NoError(t, err)
	assert.Equal(t, PathTopCandidates, red.Path)
	assert.Len(t, red.Solutions, 5)
}
