// Package config loads diverge settings from built-in defaults, an optional
// diverge.yml file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/diverge/internal/backend"
	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// FileNames are the config file names searched by Load, in order.
var FileNames = []string{"diverge.yml", "diverge.yaml"}

// EnvPrefix prefixes every environment override, e.g. DIVERGE_SERVER_ADDR.
const EnvPrefix = "DIVERGE"

// Config holds all configuration for diverge.
type Config struct {
	Backends  BackendsConfig            `mapstructure:"backends" yaml:"backends"`
	Tokens    orchestrator.TokenBudgets `mapstructure:"tokens" yaml:"tokens"`
	Limits    LimitsConfig              `mapstructure:"limits" yaml:"limits"`
	Providers ProvidersConfig           `mapstructure:"providers" yaml:"providers"`
	Server    ServerConfig              `mapstructure:"server" yaml:"server"`
	Log       LogConfig                 `mapstructure:"log" yaml:"log"`
}

// BackendsConfig assigns backend identifiers to pipeline roles. List order is
// the order backends are tried in.
type BackendsConfig struct {
	Roster          []string `mapstructure:"roster" yaml:"roster"`
	Expander        string   `mapstructure:"expander" yaml:"expander"`
	PrimaryJudge    string   `mapstructure:"primaryJudge" yaml:"primaryJudge"`
	AlternateJudges []string `mapstructure:"alternateJudges" yaml:"alternateJudges"`
	DirectFallbacks []string `mapstructure:"directFallbacks" yaml:"directFallbacks"`
}

// LimitsConfig holds counts, truncation lengths and call limits.
type LimitsConfig struct {
	Perspectives              int           `mapstructure:"perspectives" yaml:"perspectives"`
	SolutionsPerCandidate     int           `mapstructure:"solutionsPerCandidate" yaml:"solutionsPerCandidate"`
	FinalSolutions            int           `mapstructure:"finalSolutions" yaml:"finalSolutions"`
	PrimaryDescriptionChars   int           `mapstructure:"primaryDescriptionChars" yaml:"primaryDescriptionChars"`
	AlternateDescriptionChars int           `mapstructure:"alternateDescriptionChars" yaml:"alternateDescriptionChars"`
	MaxConcurrency            int           `mapstructure:"maxConcurrency" yaml:"maxConcurrency"`
	CallTimeout               time.Duration `mapstructure:"callTimeout" yaml:"callTimeout"`
	// Retries is how many extra attempts a retryable transport failure gets
	// on the same backend.
	Retries      int           `mapstructure:"retries" yaml:"retries"`
	RetryBackoff time.Duration `mapstructure:"retryBackoff" yaml:"retryBackoff"`
}

// ProvidersConfig holds credentials and endpoints per provider.
type ProvidersConfig struct {
	OpenRouter OpenRouterConfig `mapstructure:"openrouter" yaml:"openrouter"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic" yaml:"anthropic"`
	Gemini     GeminiConfig     `mapstructure:"gemini" yaml:"gemini"`
}

// OpenRouterConfig configures the OpenAI-compatible default provider.
type OpenRouterConfig struct {
	BaseURL string `mapstructure:"baseURL" yaml:"baseURL"`
	APIKey  string `mapstructure:"apiKey" yaml:"apiKey"`
	Referer string `mapstructure:"referer" yaml:"referer,omitempty"`
	Title   string `mapstructure:"title" yaml:"title,omitempty"`
}

// AnthropicConfig configures the anthropic: provider.
type AnthropicConfig struct {
	BaseURL string `mapstructure:"baseURL" yaml:"baseURL,omitempty"`
	APIKey  string `mapstructure:"apiKey" yaml:"apiKey"`
}

// GeminiConfig configures the gemini: provider.
type GeminiConfig struct {
	APIKey string `mapstructure:"apiKey" yaml:"apiKey"`
}

// ServerConfig configures `diverge serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Load reads diverge.yml or diverge.yaml from dir when present, then applies
// environment overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	v := newViper()
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		break
	}
	return decode(v)
}

// LoadFromPath reads the config file at path, then applies environment
// overrides. The file must exist.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional provider variables, after the prefixed form.
	_ = v.BindEnv("providers.openrouter.apiKey", EnvPrefix+"_PROVIDERS_OPENROUTER_APIKEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("providers.anthropic.apiKey", EnvPrefix+"_PROVIDERS_ANTHROPIC_APIKEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("providers.gemini.apiKey", EnvPrefix+"_PROVIDERS_GEMINI_APIKEY", "GEMINI_API_KEY")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Providers.OpenRouter.APIKey = os.ExpandEnv(cfg.Providers.OpenRouter.APIKey)
	cfg.Providers.Anthropic.APIKey = os.ExpandEnv(cfg.Providers.Anthropic.APIKey)
	cfg.Providers.Gemini.APIKey = os.ExpandEnv(cfg.Providers.Gemini.APIKey)
	return cfg, nil
}

// setDefaults configures default values. Every key is registered so that
// AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("backends.roster", d.Backends.Roster)
	v.SetDefault("backends.expander", d.Backends.Expander)
	v.SetDefault("backends.primaryJudge", d.Backends.PrimaryJudge)
	v.SetDefault("backends.alternateJudges", d.Backends.AlternateJudges)
	v.SetDefault("backends.directFallbacks", d.Backends.DirectFallbacks)

	v.SetDefault("tokens.expander", d.Tokens.Expander)
	v.SetDefault("tokens.candidate", d.Tokens.Candidate)
	v.SetDefault("tokens.judge", d.Tokens.Judge)
	v.SetDefault("tokens.direct", d.Tokens.Direct)

	v.SetDefault("limits.perspectives", d.Limits.Perspectives)
	v.SetDefault("limits.solutionsPerCandidate", d.Limits.SolutionsPerCandidate)
	v.SetDefault("limits.finalSolutions", d.Limits.FinalSolutions)
	v.SetDefault("limits.primaryDescriptionChars", d.Limits.PrimaryDescriptionChars)
	v.SetDefault("limits.alternateDescriptionChars", d.Limits.AlternateDescriptionChars)
	v.SetDefault("limits.maxConcurrency", d.Limits.MaxConcurrency)
	v.SetDefault("limits.callTimeout", d.Limits.CallTimeout.String())
	v.SetDefault("limits.retries", d.Limits.Retries)
	v.SetDefault("limits.retryBackoff", d.Limits.RetryBackoff.String())

	v.SetDefault("providers.openrouter.baseURL", d.Providers.OpenRouter.BaseURL)
	v.SetDefault("providers.openrouter.apiKey", "")
	v.SetDefault("providers.openrouter.referer", "")
	v.SetDefault("providers.openrouter.title", d.Providers.OpenRouter.Title)
	v.SetDefault("providers.anthropic.baseURL", "")
	v.SetDefault("providers.anthropic.apiKey", "")
	v.SetDefault("providers.gemini.apiKey", "")

	v.SetDefault("server.addr", d.Server.Addr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}

// Default returns a Config with default values and no credentials.
func Default() *Config {
	p := orchestrator.DefaultConfig()
	return &Config{
		Backends: BackendsConfig{
			Roster: []string{
				"meta-llama/llama-3.3-70b-instruct:free",
				"mistralai/mistral-small-3.1-24b-instruct:free",
				"google/gemma-3-27b-it:free",
			},
			Expander:        "mistralai/mistral-small-3.1-24b-instruct:free",
			PrimaryJudge:    "anthropic:claude-3-5-haiku-latest",
			AlternateJudges: []string{"gemini:gemini-2.0-flash", "meta-llama/llama-3.3-70b-instruct:free"},
			DirectFallbacks: []string{"gemini:gemini-2.0-flash", "meta-llama/llama-3.3-70b-instruct:free"},
		},
		Tokens: p.Tokens,
		Limits: LimitsConfig{
			Perspectives:              p.Perspectives,
			SolutionsPerCandidate:     p.SolutionsPerCandidate,
			FinalSolutions:            p.FinalSolutions,
			PrimaryDescriptionChars:   p.PrimaryDescriptionChars,
			AlternateDescriptionChars: p.AlternateDescriptionChars,
			MaxConcurrency:            p.MaxConcurrency,
			CallTimeout:               p.CallTimeout,
			Retries:                   1,
			RetryBackoff:              500 * time.Millisecond,
		},
		Providers: ProvidersConfig{
			OpenRouter: OpenRouterConfig{
				BaseURL: backend.DefaultOpenRouterURL,
				Title:   "diverge",
			},
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Pipeline converts the loaded settings into an orchestrator configuration.
func (c *Config) Pipeline() orchestrator.Config {
	return orchestrator.Config{
		Roster:                    c.Backends.Roster,
		Expander:                  c.Backends.Expander,
		PrimaryJudge:              c.Backends.PrimaryJudge,
		AlternateJudges:           c.Backends.AlternateJudges,
		DirectFallbacks:           c.Backends.DirectFallbacks,
		Tokens:                    c.Tokens,
		Perspectives:              c.Limits.Perspectives,
		SolutionsPerCandidate:     c.Limits.SolutionsPerCandidate,
		FinalSolutions:            c.Limits.FinalSolutions,
		PrimaryDescriptionChars:   c.Limits.PrimaryDescriptionChars,
		AlternateDescriptionChars: c.Limits.AlternateDescriptionChars,
		MaxConcurrency:            c.Limits.MaxConcurrency,
		CallTimeout:               c.Limits.CallTimeout,
	}
}

// Validate checks the pipeline settings and the ambient ones.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Pipeline().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Limits.Retries < 0 {
		errs = append(errs, fmt.Errorf("limits.retries: must not be negative, got %d", c.Limits.Retries))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

// BackendIDs returns every configured backend identifier once, in role order.
func (c *Config) BackendIDs() []string {
	var ids []string
	seen := map[string]bool{}
	add := func(list ...string) {
		for _, id := range list {
			if id != "" && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	add(c.Backends.Expander)
	add(c.Backends.Roster...)
	add(c.Backends.PrimaryJudge)
	add(c.Backends.AlternateJudges...)
	add(c.Backends.DirectFallbacks...)
	return ids
}

// Redacted returns a copy with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Providers.OpenRouter.APIKey = mask(c.Providers.OpenRouter.APIKey)
	out.Providers.Anthropic.APIKey = mask(c.Providers.Anthropic.APIKey)
	out.Providers.Gemini.APIKey = mask(c.Providers.Gemini.APIKey)
	return &out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
