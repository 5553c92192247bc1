package orchestrator

import (
	"bytes"
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

func newAPI(t *testing.T, fleet *fakeFleet) *httptest.Server {
	t.Helper()
	fleetSrv := httptest.NewServer(fleet.handler())
	t.Cleanup(fleetSrv.Close)

	cfg := testConfig(fleetSrv.URL)
	store := NewStore()
	exec := NewExecutor(cfg, store, NewFleetClient(), NewProxyClient("http://127.0.0.1:1", testLogger()), nil, testLogger())
	s := &Server{cfg: cfg, store: store, executor: exec, log: testLogger()}

	api := httptest.NewServer(s.routes())
	t.Cleanup(api.Close)
	return api
}

func doJSON(t *testing.T, method, url, user string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func validRequest() domain.TestRequest {
	return domain.TestRequest{
		Target:   "http://example.test/",
		Method:   "HTTP_FLOOD",
		Duration: 30,
		Threads:  5,
	}
}

func TestAPICreateAndGetRoundTrip(t *testing.T) {
	fleet := &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning, domain.StatusCompleted}}
	api := newAPI(t, fleet)

	resp := doJSON(t, http.MethodPost, api.URL+"/test", "alice", validRequest())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decode(t, resp)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "alice", created["user"])
	assert.Equal(t, "HTTP_FLOOD", created["method"])

	resp = doJSON(t, http.MethodGet, api.URL+"/test/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, id, got["id"])

	resp = doJSON(t, http.MethodGet, api.URL+"/tests", "alice", nil)
	defer resp.Body.Close()
	var listing []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing, 1)
	assert.Equal(t, id, listing[0]["id"])
}

func TestAPIRequiresUserHeader(t *testing.T) {
	api := newAPI(t, &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}})

	resp := doJSON(t, http.MethodPost, api.URL+"/test", "", validRequest())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "X-User header is required", body["detail"])

	resp = doJSON(t, http.MethodGet, api.URL+"/tests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIRejectsUnknownMethod(t *testing.T) {
	api := newAPI(t, &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}})

	req := validRequest()
	req.Method = "QUANTUM_FLOOD"
	resp := doJSON(t, http.MethodPost, api.URL+"/test", "alice", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Contains(t, body["detail"], "Unknown method: QUANTUM_FLOOD")
	assert.Contains(t, body["detail"], "HTTP_FLOOD")

	// the rejected test must not leak into the listing
	resp = doJSON(t, http.MethodGet, api.URL+"/tests", "alice", nil)
	defer resp.Body.Close()
	var listing []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Empty(t, listing)
}

func TestAPIRejectsInvalidBounds(t *testing.T) {
	api := newAPI(t, &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}})

	for name, mutate := range map[string]func(*domain.TestRequest){
		"duration too long": func(r *domain.TestRequest) { r.Duration = 301 },
		"duration zero":     func(r *domain.TestRequest) { r.Duration = 0 },
		"threads too many":  func(r *domain.TestRequest) { r.Threads = 1001 },
		"empty target":      func(r *domain.TestRequest) { r.Target = "" },
	} {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(&req)
			resp := doJSON(t, http.MethodPost, api.URL+"/test", "alice", req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestAPIOwnership(t *testing.T) {
	fleet := &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}}
	api := newAPI(t, fleet)

	resp := doJSON(t, http.MethodPost, api.URL+"/test", "alice", validRequest())
	id := decode(t, resp)["id"].(string)

	resp = doJSON(t, http.MethodGet, api.URL+"/test/"+id, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// unknown ids 404 for everyone, before any ownership check
	resp = doJSON(t, http.MethodGet, api.URL+"/test/does-not-exist", "bob", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, api.URL+"/test/"+id, "bob", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAPIResultsLifecycle(t *testing.T) {
	fleet := &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}}
	api := newAPI(t, fleet)

	resp := doJSON(t, http.MethodPost, api.URL+"/test", "alice", validRequest())
	id := decode(t, resp)["id"].(string)

	require.Eventually(t, func() bool {
		resp := doJSON(t, http.MethodGet, api.URL+"/test/"+id, "alice", nil)
		return decode(t, resp)["status"] == string(domain.StatusRunning)
	}, 5*time.Second, 10*time.Millisecond)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/test/%s/results", api.URL, id), "alice", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, domain.ErrResultsNotReady.Error(), body["detail"])

	resp = doJSON(t, http.MethodDelete, api.URL+"/test/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stopped := decode(t, resp)
	assert.Equal(t, string(domain.StatusStopped), stopped["status"])

	// stopping again is a no-op that returns the record unchanged
	resp = doJSON(t, http.MethodDelete, api.URL+"/test/"+id, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode(t, resp)
	assert.Equal(t, string(domain.StatusStopped), again["status"])

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/test/%s/results", api.URL, id), "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode(t, resp)
	assert.Equal(t, "test stopped by user", result["message"])
}

func TestAPIMethodsIsPublic(t *testing.T) {
	api := newAPI(t, &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}})

	resp, err := http.Get(api.URL + "/methods")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	catalog := decode(t, resp)
	assert.Contains(t, catalog, "HTTP_FLOOD")
	assert.Contains(t, catalog, "DNS_FLOOD")
}

func TestAPIHealth(t *testing.T) {
	api := newAPI(t, &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}})

	resp, err := http.Get(api.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "orchestrator", body["service"])
}
