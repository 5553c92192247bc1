package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

func newTestServer(t *testing.T, methods ...Method) (*Server, *httptest.Server) {
	t.Helper()
	runner := NewRunner(HTTPLabels, time.Second, testLogger(), nil, methods...)
	s := &Server{service: "http-worker", runner: runner, log: testLogger()}
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func postExecute(t *testing.T, ts *httptest.Server, params domain.TestParameters) *http.Response {
	t.Helper()
	body, err := json.Marshal(params)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/execute", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServerExecuteAndStatus(t *testing.T) {
	m := &fakeMethod{name: "FAKE_FLOOD", unit: func(ctx context.Context, run *TestRun) {
		run.Metrics.RecordSent()
		run.Metrics.RecordSuccess()
	}}
	_, ts := newTestServer(t, m)

	resp := postExecute(t, ts, params("FAKE_FLOOD", 5, 2))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "started", body["status"])
	id, _ := body["test_id"].(string)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/status/" + id)
		require.NoError(t, err)
		view := decodeBody(t, resp)
		return view["status"] == string(domain.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(ts.URL + "/status/" + id)
	require.NoError(t, err)
	view := decodeBody(t, resp)
	results, ok := view["results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, id, results["test_id"])
	assert.NotContains(t, view, "current_metrics")
}

func TestServerExecuteRejectsUnknownMethod(t *testing.T) {
	_, ts := newTestServer(t, &fakeMethod{name: "FAKE_FLOOD"})

	resp := postExecute(t, ts, params("NOPE_FLOOD", 5, 2))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Contains(t, body["detail"], "NOPE_FLOOD")
}

func TestServerExecuteRejectsBadBody(t *testing.T) {
	_, ts := newTestServer(t, &fakeMethod{name: "FAKE_FLOOD"})

	resp, err := http.Post(ts.URL+"/execute", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServerStopUnknownAndNotRunning(t *testing.T) {
	m := &fakeMethod{name: "FAKE_FLOOD"}
	_, ts := newTestServer(t, m)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/execute/nope", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = postExecute(t, ts, params("FAKE_FLOOD", 1, 1))
	id := decodeBody(t, resp)["test_id"].(string)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/status/" + id)
		require.NoError(t, err)
		view := decodeBody(t, resp)
		return view["status"] == string(domain.StatusCompleted)
	}, 5*time.Second, 20*time.Millisecond)

	req, err = http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/execute/%s", ts.URL, id), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestServerStopRunningTest(t *testing.T) {
	m := &fakeMethod{name: "FAKE_FLOOD", unit: func(ctx context.Context, run *TestRun) {
		<-ctx.Done()
	}}
	_, ts := newTestServer(t, m)

	resp := postExecute(t, ts, params("FAKE_FLOOD", 30, 2))
	id := decodeBody(t, resp)["test_id"].(string)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/execute/%s", ts.URL, id), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decodeBody(t, resp)
	assert.Equal(t, string(domain.StatusStopped), view["status"])
}

func TestServerHealthDuringShutdown(t *testing.T) {
	s, ts := newTestServer(t, &fakeMethod{name: "FAKE_FLOOD"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["methods"], "FAKE_FLOOD")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.runner.Shutdown(ctx)

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, "shutting_down", body["status"])

	resp = postExecute(t, ts, params("FAKE_FLOOD", 1, 1))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()
}
