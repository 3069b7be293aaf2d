package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Backends, cfg.Backends)
	assert.Equal(t, 5, cfg.Limits.FinalSolutions)
	assert.Equal(t, 150, cfg.Limits.PrimaryDescriptionChars)
	assert.Equal(t, 80, cfg.Limits.AlternateDescriptionChars)
	assert.Equal(t, 60*time.Second, cfg.Limits.CallTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ReadsFileFromDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "diverge.yml", `
backends:
  roster: [gen-a, gen-b]
  expander: exp
  primaryJudge: judge
  alternateJudges: [alt-2, alt-1]
  directFallbacks: [direct-b, direct-a]
limits:
  callTimeout: 45s
  maxConcurrency: 4
tokens:
  judge: 3000
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen-a", "gen-b"}, cfg.Backends.Roster)
	assert.Equal(t, []string{"alt-2", "alt-1"}, cfg.Backends.AlternateJudges)
	assert.Equal(t, []string{"direct-b", "direct-a"}, cfg.Backends.DirectFallbacks)
	assert.Equal(t, 45*time.Second, cfg.Limits.CallTimeout)
	assert.Equal(t, 4, cfg.Limits.MaxConcurrency)
	assert.Equal(t, 3000, cfg.Tokens.Judge)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Tokens.Candidate, cfg.Tokens.Candidate)

	p := cfg.Pipeline()
	assert.Equal(t, "judge", p.PrimaryJudge)
	assert.Equal(t, 45*time.Second, p.CallTimeout)
	assert.NoError(t, p.Validate())
}

func TestLoad_YAMLExtension(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "diverge.yaml", "server:\n  addr: \":9999\"\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DIVERGE_SERVER_ADDR", ":7070")
	t.Setenv("DIVERGE_LOG_LEVEL", "debug")
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("ANTHROPIC_API_KEY", "an-key")
	t.Setenv("GEMINI_API_KEY", "ge-key")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "or-key", cfg.Providers.OpenRouter.APIKey)
	assert.Equal(t, "an-key", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "ge-key", cfg.Providers.Gemini.APIKey)
}

func TestLoad_ExpandsKeyReferences(t *testing.T) {
	t.Setenv("MY_ROUTER_KEY", "expanded")
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yml", "providers:\n  openrouter:\n    apiKey: ${MY_ROUTER_KEY}\n")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded", cfg.Providers.OpenRouter.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backends.Roster = nil
	cfg.Limits.Retries = -1
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster")
	assert.Contains(t, err.Error(), "limits.retries")
	assert.Contains(t, err.Error(), "log.level")
}

func TestRedactedYAML(t *testing.T) {
	cfg := Default()
	cfg.Providers.OpenRouter.APIKey = "sk-or-secret"
	cfg.Providers.Gemini.APIKey = "gm-secret"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.Contains(t, string(out), "********")
	assert.Contains(t, string(out), "callTimeout: 1m0s")
	assert.Contains(t, string(out), "anthropic:claude-3-5-haiku-latest")

	// The original is untouched.
	assert.Equal(t, "sk-or-secret", cfg.Providers.OpenRouter.APIKey)
}

func TestBackendIDs(t *testing.T) {
	cfg := Default()
	cfg.Backends = BackendsConfig{
		Roster:          []string{"a", "b"},
		Expander:        "a",
		PrimaryJudge:    "j",
		AlternateJudges: []string{"b", "k"},
		DirectFallbacks: []string{"k", "d"},
	}
	assert.Equal(t, []string{"a", "b", "j", "k", "d"}, cfg.BackendIDs())
}
