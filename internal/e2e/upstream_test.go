//go:build e2e

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/diverge/internal/backend"
	"github.com/dusk-indust/diverge/internal/metrics"
	"github.com/dusk-indust/diverge/internal/orchestrator"
)

// reply is one canned upstream answer.
type reply struct {
	status int
	body   string
}

func ok(body string) func(string) reply {
	return func(string) reply { return reply{status: http.StatusOK, body: body} }
}

func status(code int) func(string) reply {
	return func(string) reply { return reply{status: code, body: `{"error":{"message":"unavailable"}}`} }
}

// upstream is a fake OpenAI-compatible chat completions endpoint that answers
// per model.
type upstream struct {
	mu       sync.Mutex
	handlers map[string]func(prompt string) reply
	prompts  map[string][]string
}

func newUpstream(t *testing.T, handlers map[string]func(string) reply) (*upstream, *httptest.Server) {
	u := &upstream{handlers: handlers, prompts: map[string][]string{}}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)
	return u, srv
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-key" {
		http.Error(w, `{"error":{"message":"no auth"}}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		http.Error(w, `{"error":{"message":"bad request"}}`, http.StatusBadRequest)
		return
	}
	prompt := req.Messages[0].Content

	u.mu.Lock()
	u.prompts[req.Model] = append(u.prompts[req.Model], prompt)
	h, found := u.handlers[req.Model]
	u.mu.Unlock()

	if !found {
		http.Error(w, `{"error":{"message":"unknown model"}}`, http.StatusNotFound)
		return
	}

	rep := h(prompt)
	w.Header().Set("Content-Type", "application/json")
	if rep.status != http.StatusOK {
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{"role": "assistant", "content": rep.body},
		}},
	})
}

func (u *upstream) calls(model string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.prompts[model]...)
}

func pipelineConfig() orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	cfg.Roster = []string{"gen-a", "gen-b"}
	cfg.Expander = "expander"
	cfg.PrimaryJudge = "judge"
	cfg.AlternateJudges = []string{"alt"}
	cfg.DirectFallbacks = []string{"direct"}
	cfg.Perspectives = 2
	cfg.SolutionsPerCandidate = 2
	cfg.FinalSolutions = 3
	cfg.MaxConcurrency = 4
	cfg.CallTimeout = 5 * time.Second
	return cfg
}

// newPipeline wires the production client stack against srv.
func newPipeline(t *testing.T, srv *httptest.Server, m *metrics.Metrics) *orchestrator.Pipeline {
	t.Helper()

	router := backend.NewRouter(backend.ProviderOpenRouter)
	router.Register(backend.ProviderOpenRouter, backend.NewOpenRouter("test-key", backend.WithBaseURL(srv.URL)))
	client := backend.Instrument(router,
		backend.WithObserver(m),
		backend.WithRetries(1, time.Millisecond),
	)

	p, err := orchestrator.NewPipeline(pipelineConfig(), client, orchestrator.WithRecorder(m))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range p.Progress() {
		}
	}()
	t.Cleanup(func() {
		p.Close()
		<-done
	})
	return p
}

const (
	problem = "Our nightly batch job takes six hours."

	perspectivesReply = "Here you go:\n```json\n" + `{"perspectives":[
  {"label":"Cost","prompt":"keep infrastructure spend flat"},
  {"label":"Speed","prompt":"finish before business hours"}
]}` + "\n```"

	candidatesReply = `{"solutions":[
  {"name":"Shard it","description":"Run shards in parallel.","complexity":"medium"},
  {"name":"Cache lookups","description":"Memoize reference data.","complexity":"low"}
]}`

	judgeReply = `{"solutions":[
  {"name":"Partition the job","description":"Split the batch by customer and run shards in parallel.","advantages":["linear speed-up","isolated failures"],"complexity":"medium","timeEstimate":"2 weeks","technologies":["Go","Kubernetes"]},
  {"name":"Incremental processing","description":"Only reprocess rows changed since the last run.","complexity":"high","advantages":"far less work"},
  {"name":"Bigger machine","description":"Move the job to a larger instance."}
]}`
)

func happyHandlers() map[string]func(string) reply {
	return map[string]func(string) reply{
		"expander": ok(perspectivesReply),
		"gen-a":    ok(candidatesReply),
		"gen-b":    ok(candidatesReply),
		"judge":    ok(judgeReply),
		"alt":      ok(judgeReply),
		"direct":   ok(judgeReply),
	}
}
