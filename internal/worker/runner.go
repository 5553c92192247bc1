package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

// Method is one load-generation strategy hosted by a fleet. Prepare validates
// and normalizes the parameters before the run is accepted; RunUnit is the
// body of a single worker unit and returns when ctx is cancelled.
type Method interface {
	Name() string
	Prepare(params *domain.TestParameters) error
	RunUnit(ctx context.Context, run *TestRun)
}

// Preflight is implemented by methods that must verify a capability once
// before any unit launches, such as opening a raw socket. A Preflight error
// fails the whole run.
type Preflight interface {
	Preflight(run *TestRun) error
}

// Runner owns the run registry and the test lifecycle for one fleet.
type Runner struct {
	labels    Labels
	methods   map[string]Method
	runs      *xsync.Map[string, *TestRun]
	results   *xsync.Map[string, map[string]any]
	tracker   *Tracker
	waitSlack time.Duration
	log       *logger.StyledLogger

	shuttingDown atomic.Bool
	shutdownSig  *Signal

	activeTests prometheus.Gauge
	testsTotal  *prometheus.CounterVec
}

func NewRunner(labels Labels, waitSlack time.Duration, log *logger.StyledLogger, reg prometheus.Registerer, methods ...Method) *Runner {
	r := &Runner{
		labels:      labels,
		methods:     make(map[string]Method, len(methods)),
		runs:        xsync.NewMap[string, *TestRun](),
		results:     xsync.NewMap[string, map[string]any](),
		tracker:     NewTracker(),
		waitSlack:   waitSlack,
		log:         log,
		shutdownSig: NewSignal(),
		activeTests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nrtf_worker_active_tests",
			Help: "Tests currently running on this worker.",
		}),
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nrtf_worker_tests_total",
			Help: "Tests finished on this worker, by terminal status.",
		}, []string{"status"}),
	}
	for _, m := range methods {
		r.methods[m.Name()] = m
	}
	if reg != nil {
		reg.MustRegister(r.activeTests, r.testsTotal)
	}
	return r
}

// Methods lists the method names this fleet serves.
func (r *Runner) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}

func (r *Runner) ShuttingDown() bool {
	return r.shuttingDown.Load()
}

// ActiveCount reports how many runs are currently RUNNING.
func (r *Runner) ActiveCount() int {
	n := 0
	r.runs.Range(func(_ string, run *TestRun) bool {
		if run.Status() == domain.StatusRunning {
			n++
		}
		return true
	})
	return n
}

// Execute validates the request, assigns a test id and launches the run
// goroutine. It returns immediately.
func (r *Runner) Execute(params domain.TestParameters) (string, error) {
	if r.shuttingDown.Load() {
		return "", domain.ErrShuttingDown
	}
	m, ok := r.methods[params.Method]
	if !ok {
		return "", &domain.MethodError{Method: params.Method}
	}
	if err := m.Prepare(&params); err != nil {
		return "", err
	}

	id := uuid.NewString()
	run := newTestRun(id, params, r.labels, r.tracker)
	r.runs.Store(id, run)
	r.activeTests.Inc()
	go r.run(run, m)

	r.log.InfoWithTestID("test accepted", id,
		"method", params.Method,
		"target", params.Target,
		"duration", params.Duration,
		"threads", params.Threads,
		"proxies", len(params.Proxies))
	return id, nil
}

func (r *Runner) run(run *TestRun, m Method) {
	defer r.activeTests.Dec()

	duration := time.Duration(run.Params.Duration) * time.Second
	ctx, cancel := context.WithDeadline(context.Background(), run.startTime.Add(duration))
	defer cancel()
	go func() {
		select {
		case <-run.Stopping():
			cancel()
		case <-r.shutdownSig.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if pf, ok := m.(Preflight); ok {
		if err := pf.Preflight(run); err != nil {
			run.Metrics.MarkEnd()
			r.results.Store(run.ID, r.buildResults(run))
			run.finish(domain.StatusFailed, err.Error())
			r.testsTotal.WithLabelValues(string(run.Status())).Inc()
			r.log.ErrorWithTestID("test failed before launch", run.ID, "error", err)
			return
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < run.Params.Threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					run.Metrics.RecordFail()
					r.log.ErrorWithTestID("worker unit panicked", run.ID, "panic", fmt.Sprint(rec))
				}
			}()
			m.RunUnit(ctx, run)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Until(run.startTime.Add(duration + r.waitSlack))):
		r.log.WarnWithTestID("worker units did not drain in time", run.ID)
	}

	run.Metrics.MarkEnd()
	r.results.Store(run.ID, r.buildResults(run))
	run.finish(domain.StatusCompleted, "")
	final := run.Status()
	r.testsTotal.WithLabelValues(string(final)).Inc()
	r.log.InfoWithTestID("test finished", run.ID,
		"status", final,
		"sent", run.Metrics.Sent())
}

func (r *Runner) buildResults(run *TestRun) map[string]any {
	return map[string]any{
		"test_id": run.ID,
		"target":  run.Params.Target,
		"method":  run.Params.Method,
		"metrics": run.Metrics.Snapshot(),
	}
}

// Stop requests a running test to stop and records STOPPED immediately. The
// run goroutine keeps draining in the background; its completion path will
// not overwrite the status.
func (r *Runner) Stop(id string) (StatusView, error) {
	run, ok := r.runs.Load(id)
	if !ok {
		return StatusView{}, domain.ErrTestNotFound
	}
	if run.Status() != domain.StatusRunning {
		return StatusView{}, domain.ErrNotRunning
	}
	run.stop.Set()
	run.markStopped()
	r.log.InfoWithTestID("test stopped on request", run.ID)
	results, _ := r.results.Load(id)
	return run.view(results), nil
}

// Status reports the current state of a run, with live counters while it is
// running and results once it is terminal.
func (r *Runner) Status(id string) (StatusView, error) {
	run, ok := r.runs.Load(id)
	if !ok {
		return StatusView{}, domain.ErrTestNotFound
	}
	results, _ := r.results.Load(id)
	return run.view(results), nil
}

// Shutdown stops accepting work, signals every running test, force-closes
// tracked resources and gives the run goroutines a short grace period.
func (r *Runner) Shutdown(ctx context.Context) {
	if !r.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	r.shutdownSig.Set()

	active := 0
	r.runs.Range(func(_ string, run *TestRun) bool {
		if run.Status() == domain.StatusRunning {
			run.stop.Set()
			run.markStopped()
			active++
		}
		return true
	})
	if active > 0 {
		r.log.InfoWithCount("signalled running tests to stop", active)
	}

	r.tracker.CloseAll()

	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
	}
}
