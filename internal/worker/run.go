package worker

import (
	"sync"
	"time"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
)

// TestRun is a fleet's record of one executing test.
type TestRun struct {
	ID      string
	Params  domain.TestParameters
	Metrics *Metrics

	stop    *Signal
	tracker *Tracker

	mu        sync.RWMutex
	status    domain.TestStatus
	startTime time.Time
	endTime   time.Time
	errMsg    string
}

func newTestRun(id string, params domain.TestParameters, labels Labels, tracker *Tracker) *TestRun {
	return &TestRun{
		ID:        id,
		Params:    params,
		Metrics:   NewMetrics(labels),
		stop:      NewSignal(),
		tracker:   tracker,
		status:    domain.StatusRunning,
		startTime: time.Now(),
	}
}

// Stopping returns a channel closed when a stop has been requested for this
// run. Worker units select on it alongside their context.
func (r *TestRun) Stopping() <-chan struct{} {
	return r.stop.Done()
}

// Track registers a socket or session for forced cleanup on shutdown. The
// second return is false when shutdown already started; the caller must close
// the resource and return.
func (r *TestRun) Track(c interface{ Close() error }) (func(), bool) {
	return r.tracker.Register(c)
}

func (r *TestRun) Status() domain.TestStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// markStopped records the stop locally. It wins over any later natural
// completion of the run goroutine.
func (r *TestRun) markStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.IsTerminal() {
		return
	}
	r.status = domain.StatusStopped
	r.endTime = time.Now()
}

// finish records the natural outcome of the run goroutine unless a stop
// already claimed the terminal state.
func (r *TestRun) finish(status domain.TestStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.endTime.IsZero() {
		r.endTime = time.Now()
	}
	if r.status.IsTerminal() {
		return
	}
	r.status = status
	r.errMsg = errMsg
}

// StatusView is the wire form of a run for GET /status responses.
type StatusView struct {
	TestID         string         `json:"test_id"`
	Status         domain.TestStatus `json:"status"`
	Target         string         `json:"target"`
	Method         string         `json:"method"`
	StartTime      float64        `json:"start_time"`
	EndTime        *float64       `json:"end_time,omitempty"`
	Error          string         `json:"error,omitempty"`
	CurrentMetrics map[string]any `json:"current_metrics,omitempty"`
	Results        map[string]any `json:"results,omitempty"`
}

func (r *TestRun) view(results map[string]any) StatusView {
	r.mu.RLock()
	status := r.status
	start := r.startTime
	end := r.endTime
	errMsg := r.errMsg
	r.mu.RUnlock()

	v := StatusView{
		TestID:    r.ID,
		Status:    status,
		Target:    r.Params.Target,
		Method:    r.Params.Method,
		StartTime: float64(start.UnixNano()) / float64(time.Second),
		Error:     errMsg,
	}
	if !end.IsZero() {
		e := float64(end.UnixNano()) / float64(time.Second)
		v.EndTime = &e
	}
	if status == domain.StatusRunning {
		v.CurrentMetrics = r.Metrics.Snapshot()
	} else {
		v.Results = results
	}
	return v
}
