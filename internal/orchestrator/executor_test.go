package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

func testLogger() *logger.StyledLogger {
	return logger.NewStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeFleet scripts a worker fleet: Start hands out one module id, Status
// walks the status sequence and sticks at the last entry.
type fakeFleet struct {
	mu       sync.Mutex
	refuse   bool
	statuses []domain.TestStatus
	idx      int
	starts   int
	stops    int
}

func (f *fakeFleet) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.starts++
		if f.refuse {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"detail": "no capacity"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"test_id": "mod-1", "status": "started"})
	})
	mux.HandleFunc("GET /status/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.statuses[f.idx]
		if f.idx < len(f.statuses)-1 {
			f.idx++
		}
		f.mu.Unlock()
		view := map[string]any{"test_id": "mod-1", "status": status}
		if status.IsTerminal() {
			view["results"] = map[string]any{"test_id": "mod-1", "metrics": map[string]any{"requests_sent": 42}}
		}
		json.NewEncoder(w).Encode(view)
	})
	mux.HandleFunc("DELETE /execute/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.stops++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
	})
	return mux
}

func (f *fakeFleet) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func testConfig(fleetURL string) config.OrchestratorConfig {
	return config.OrchestratorConfig{
		HTTPModuleURL: fleetURL,
		TCPModuleURL:  fleetURL,
		DNSModuleURL:  fleetURL,
		PollInterval:  20 * time.Millisecond,
		StartTimeout:  time.Second,
		PollTimeout:   time.Second,
		StopTimeout:   time.Second,
		DeadlineSlack: 30 * time.Second,
	}
}

func newHarness(t *testing.T, fleet *fakeFleet, cfg config.OrchestratorConfig) (*Store, *Executor) {
	t.Helper()
	store := NewStore()
	exec := NewExecutor(cfg, store, NewFleetClient(), NewProxyClient("http://127.0.0.1:1", testLogger()), nil, testLogger())
	return store, exec
}

func addTest(store *Store, duration int) string {
	test := &domain.Test{
		ID:        "t-1",
		User:      "alice",
		Target:    "http://example.test/",
		Method:    "HTTP_FLOOD",
		Duration:  duration,
		Threads:   2,
		CreatedAt: time.Now(),
		Status:    domain.StatusQueued,
	}
	store.Add(test)
	return test.ID
}

func waitStatus(t *testing.T, store *Store, id string, want domain.TestStatus) domain.Test {
	t.Helper()
	require.Eventually(t, func() bool {
		status, ok := store.Status(id)
		return ok && status == want
	}, 5*time.Second, 10*time.Millisecond)
	test, ok := store.Snapshot(id)
	require.True(t, ok)
	return test
}

func TestExecutorCompletesTest(t *testing.T) {
	fleet := &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning, domain.StatusCompleted}}
	ts := httptest.NewServer(fleet.handler())
	defer ts.Close()

	store, exec := newHarness(t, fleet, testConfig(ts.URL))
	id := addTest(store, 60)
	exec.Launch(id)

	test := waitStatus(t, store, id, domain.StatusCompleted)
	assert.Equal(t, "mod-1", test.ModuleTestID)
	assert.False(t, test.StartTime.IsZero())
	assert.False(t, test.EndTime.IsZero())

	result, ok := store.Result(id)
	require.True(t, ok)
	assert.Equal(t, "mod-1", result["test_id"])
}

func TestExecutorFailsWhenFleetRefuses(t *testing.T) {
	fleet := &fakeFleet{refuse: true, statuses: []domain.TestStatus{domain.StatusRunning}}
	ts := httptest.NewServer(fleet.handler())
	defer ts.Close()

	store, exec := newHarness(t, fleet, testConfig(ts.URL))
	id := addTest(store, 60)
	exec.Launch(id)

	waitStatus(t, store, id, domain.StatusFailed)
	result, ok := store.Result(id)
	require.True(t, ok)
	assert.Contains(t, result["error"], "no capacity")
}

func TestExecutorFailsWhenFleetUnreachable(t *testing.T) {
	store, exec := newHarness(t, nil, testConfig("http://127.0.0.1:1"))
	id := addTest(store, 60)
	exec.Launch(id)

	waitStatus(t, store, id, domain.StatusFailed)
}

func TestExecutorDeadlineMarksCompleted(t *testing.T) {
	fleet := &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}}
	ts := httptest.NewServer(fleet.handler())
	defer ts.Close()

	cfg := testConfig(ts.URL)
	cfg.DeadlineSlack = 200 * time.Millisecond
	store, exec := newHarness(t, fleet, cfg)
	id := addTest(store, 0)
	exec.Launch(id)

	waitStatus(t, store, id, domain.StatusCompleted)
	result, ok := store.Result(id)
	require.True(t, ok)
	assert.Equal(t, "test timed out waiting for module completion", result["message"])

	require.Eventually(t, func() bool { return fleet.stopCount() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestExecutorRespectsLocalStop(t *testing.T) {
	fleet := &fakeFleet{statuses: []domain.TestStatus{domain.StatusRunning}}
	ts := httptest.NewServer(fleet.handler())
	defer ts.Close()

	store, exec := newHarness(t, fleet, testConfig(ts.URL))
	id := addTest(store, 60)
	exec.Launch(id)

	waitStatus(t, store, id, domain.StatusRunning)
	store.MarkStopped(id)
	store.StoreResult(id, map[string]any{"message": "test stopped by user"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	exec.Wait(ctx)

	status, _ := store.Status(id)
	assert.Equal(t, domain.StatusStopped, status)
	result, _ := store.Result(id)
	assert.Equal(t, "test stopped by user", result["message"])
}

func TestFleetURLRouting(t *testing.T) {
	cfg := config.OrchestratorConfig{
		HTTPModuleURL: "http://http-fleet",
		TCPModuleURL:  "http://tcp-fleet",
		DNSModuleURL:  "http://dns-fleet",
	}
	exec := NewExecutor(cfg, NewStore(), NewFleetClient(), nil, nil, testLogger())

	for method, want := range map[string]string{
		"HTTP_FLOOD": "http://http-fleet",
		"SSL_FLOOD":  "http://http-fleet",
		"TCP_FLOOD":  "http://tcp-fleet",
		"UDP_FLOOD":  "http://tcp-fleet",
		"SYN_FLOOD":  "http://tcp-fleet",
		"DNS_FLOOD":  "http://dns-fleet",
	} {
		got, err := exec.FleetURL(method)
		require.NoError(t, err, method)
		assert.Equal(t, want, got, method)
	}

	_, err := exec.FleetURL("BOGUS_FLOOD")
	assert.ErrorIs(t, err, domain.ErrUnknownMethod)

	_, err = exec.FleetURL("ICMP_FLOOD")
	assert.Error(t, err)
}

func TestStoreStopWinsOverFinish(t *testing.T) {
	store := NewStore()
	id := addTest(store, 10)
	require.True(t, store.MarkRunning(id))

	stopped, ok := store.MarkStopped(id)
	require.True(t, ok)
	assert.Equal(t, domain.StatusStopped, stopped.Status)

	store.Finish(id, domain.StatusCompleted)
	status, _ := store.Status(id)
	assert.Equal(t, domain.StatusStopped, status)
}

func TestStoreResultImmutable(t *testing.T) {
	store := NewStore()
	store.StoreResult("t-1", map[string]any{"message": "first"})
	store.StoreResult("t-1", map[string]any{"message": "second"})

	result, ok := store.Result("t-1")
	require.True(t, ok)
	assert.Equal(t, "first", result["message"])
}
