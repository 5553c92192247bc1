package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

// Executor drives one goroutine per test: start the test on its fleet, poll
// until it finishes, fails, is stopped, or overruns the hard deadline.
type Executor struct {
	cfg     config.OrchestratorConfig
	store   *Store
	fleet   *FleetClient
	proxies *ProxyClient
	log     *logger.StyledLogger
	wg      sync.WaitGroup

	testsTotal *prometheus.CounterVec
}

func NewExecutor(cfg config.OrchestratorConfig, store *Store, fleet *FleetClient, proxies *ProxyClient, reg prometheus.Registerer, log *logger.StyledLogger) *Executor {
	e := &Executor{
		cfg:     cfg,
		store:   store,
		fleet:   fleet,
		proxies: proxies,
		log:     log,
		testsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nrtf_orchestrator_tests_total",
			Help: "Tests finished, by terminal status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(e.testsTotal)
	}
	return e
}

// FleetURL resolves the base URL of the fleet serving a method's protocol.
func (e *Executor) FleetURL(method string) (string, error) {
	info, ok := domain.Methods[method]
	if !ok {
		return "", &domain.MethodError{Method: method}
	}
	switch info.Protocol {
	case domain.ProtocolHTTP:
		return e.cfg.HTTPModuleURL, nil
	case domain.ProtocolTCP, domain.ProtocolUDP:
		return e.cfg.TCPModuleURL, nil
	case domain.ProtocolDNS:
		return e.cfg.DNSModuleURL, nil
	default:
		return "", fmt.Errorf("no fleet serves protocol %q", info.Protocol)
	}
}

// Launch spawns the executor goroutine for a queued test.
func (e *Executor) Launch(id string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				e.fail(id, fmt.Sprintf("executor panic: %v", rec))
			}
		}()
		e.execute(id)
	}()
}

// Wait blocks until every executor goroutine finished or ctx expires.
func (e *Executor) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (e *Executor) execute(id string) {
	if !e.store.MarkRunning(id) {
		return
	}
	test, ok := e.store.Snapshot(id)
	if !ok {
		return
	}

	fleetURL, err := e.FleetURL(test.Method)
	if err != nil {
		e.fail(id, err.Error())
		return
	}

	params := domain.TestParameters{
		Target:     test.Target,
		Method:     test.Method,
		Duration:   test.Duration,
		Threads:    test.Threads,
		Parameters: test.Parameters,
	}
	if test.ProxyType != nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.PollTimeout)
		params.Proxies = e.proxies.Fetch(ctx, *test.ProxyType, test.Threads)
		cancel()
		e.log.InfoWithTestID("fetched proxies for test", id, "count", len(params.Proxies))
	}

	startCtx, cancel := context.WithTimeout(context.Background(), e.cfg.StartTimeout)
	moduleID, err := e.fleet.Start(startCtx, fleetURL, params)
	cancel()
	if err != nil {
		e.fail(id, err.Error())
		return
	}
	e.store.SetModuleTestID(id, moduleID)
	e.log.InfoWithTestID("test started on fleet", id, "module_test_id", moduleID)

	deadline := test.StartTime.Add(time.Duration(test.Duration)*time.Second + e.cfg.DeadlineSlack)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		<-ticker.C

		if status, _ := e.store.Status(id); status == domain.StatusStopped {
			// the stop handler already recorded the outcome
			e.testsTotal.WithLabelValues(string(domain.StatusStopped)).Inc()
			return
		}

		pollCtx, cancel := context.WithTimeout(context.Background(), e.cfg.PollTimeout)
		remote, err := e.fleet.Status(pollCtx, fleetURL, moduleID)
		cancel()
		if err != nil {
			e.log.WarnWithTestID("poll failed, will retry", id, "error", err)
			continue
		}
		if remote.Status.IsTerminal() {
			e.store.StoreResult(id, remote.Results)
			e.store.Finish(id, remote.Status)
			e.testsTotal.WithLabelValues(string(remote.Status)).Inc()
			e.log.InfoWithTestID("test finished", id, "status", remote.Status)
			return
		}
	}

	// deadline exit: tell the fleet to stop, but the test still counts as
	// completed locally
	if status, _ := e.store.Status(id); status == domain.StatusRunning {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.StopTimeout)
			defer cancel()
			if err := e.fleet.Stop(ctx, fleetURL, moduleID); err != nil {
				e.log.WarnWithTestID("deadline stop failed", id, "error", err)
			}
		}()
		e.store.StoreResult(id, map[string]any{"message": "test timed out waiting for module completion"})
		e.store.Finish(id, domain.StatusCompleted)
		e.testsTotal.WithLabelValues(string(domain.StatusCompleted)).Inc()
		e.log.WarnWithTestID("test hit hard deadline, marked completed", id)
	}
}

func (e *Executor) fail(id, msg string) {
	e.store.StoreResult(id, map[string]any{"error": msg})
	e.store.Finish(id, domain.StatusFailed)
	e.testsTotal.WithLabelValues(string(domain.StatusFailed)).Inc()
	e.log.ErrorWithTestID("test failed", id, "error", msg)
}
