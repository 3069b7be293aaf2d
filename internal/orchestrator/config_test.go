package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Perspectives)
	assert.Equal(t, 2, cfg.SolutionsPerCandidate)
	assert.Equal(t, 5, cfg.FinalSolutions)
	assert.Equal(t, 150, cfg.PrimaryDescriptionChars)
	assert.Equal(t, 80, cfg.AlternateDescriptionChars)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.Roster = nil
	cfg.PrimaryJudge = ""
	cfg.FinalSolutions = 0
	cfg.MaxConcurrency = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"roster", "primaryJudge", "finalSolutions", "maxConcurrency"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestConfig_ValidateAllowsNoFallbacks(t *testing.T) {
	cfg := testConfig()
	cfg.AlternateJudges = nil
	cfg.DirectFallbacks = nil
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Roles(t *testing.T) {
	roles := testConfig().Roles()
	assert.Equal(t, []string{"gen-a", "gen-b", "gen-c"}, roles.Roster)
	assert.Equal(t, "judge", roles.PrimaryJudge)
	assert.Equal(t, []string{"alt-1", "alt-2"}, roles.AlternateJudges)
	assert.Equal(t, []string{"direct-a", "direct-b"}, roles.DirectFallbacks)
}
