package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/diverge/internal/orchestrator"
)

func TestObserveCall(t *testing.T) {
	m := New()
	m.ObserveCall("gen-a", "ok", 2*time.Second)
	m.ObserveCall("gen-a", "ok", time.Second)
	m.ObserveCall("gen-a", "quota", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("gen-a", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("gen-a", "quota")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.callDuration))
}

func TestRecordRunAndFailure(t *testing.T) {
	m := New()
	m.RecordRun(orchestrator.PathPrimaryJudge, 12, 8*time.Second)
	m.RecordRun(orchestrator.PathTopCandidates, 3, 4*time.Second)
	m.RecordRun(orchestrator.PathPrimaryJudge, 10, 6*time.Second)
	m.RecordFailure("exhausted")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("primary-judge")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("top-candidates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("exhausted")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCall("judge", "ok", time.Second)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `diverge_backend_calls_total{backend="judge",outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
