package proxypool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

// Service owns the pool's background work: source refresh and bounded
// concurrent validation. Both run at most once at a time; read requests are
// never blocked behind them.
type Service struct {
	cfg       config.ProxyPoolConfig
	store     *Store
	fetcher   *Fetcher
	validator *Validator
	log       *logger.StyledLogger

	refreshing atomic.Bool
	validating atomic.Bool

	// JSON /stats counters; the prometheus collectors below mirror them
	fetchedN   atomic.Int64
	validatedN atomic.Int64
	validN     atomic.Int64
	invalidN   atomic.Int64

	fetched   prometheus.Counter
	validated prometheus.Counter
	valid     prometheus.Counter
	invalid   prometheus.Counter
	poolSize  *prometheus.GaugeVec
}

func NewService(cfg config.ProxyPoolConfig, store *Store, reg prometheus.Registerer, log *logger.StyledLogger) *Service {
	s := &Service{
		cfg:       cfg,
		store:     store,
		fetcher:   NewFetcher(cfg.FetchTimeout),
		validator: NewValidator(cfg.ValidateTimeout, cfg.EchoEndpoint),
		log:       log,
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrtf_proxypool_fetched_total",
			Help: "Proxies extracted from sources.",
		}),
		validated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrtf_proxypool_validated_total",
			Help: "Validation probes performed.",
		}),
		valid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrtf_proxypool_valid_total",
			Help: "Probes that passed.",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrtf_proxypool_invalid_total",
			Help: "Probes that failed.",
		}),
		poolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nrtf_proxypool_size",
			Help: "Proxies held, by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(s.fetched, s.validated, s.valid, s.invalid, s.poolSize)
	}
	return s
}

// Refresh downloads every configured source in parallel and merges the
// results into the pool.
func (s *Service) Refresh(ctx context.Context) {
	s.log.InfoWithCount("refreshing proxies from sources", len(s.cfg.Sources))

	g, ctx := errgroup.WithContext(ctx)
	for _, src := range s.cfg.Sources {
		g.Go(func() error {
			proxies, err := s.fetcher.Fetch(ctx, src)
			if err != nil {
				s.log.Warn("proxy source failed", "url", src.URL, "error", err)
				return nil
			}
			for _, p := range proxies {
				s.store.Upsert(p)
			}
			s.fetched.Add(float64(len(proxies)))
			s.fetchedN.Add(int64(len(proxies)))
			s.log.InfoWithCount("downloaded proxies from "+src.URL, len(proxies))
			return nil
		})
	}
	_ = g.Wait()

	s.store.MarkRefreshed()
	s.updateGauges()
	counts := s.store.Counts()
	s.log.Info("proxy refresh complete",
		"http", counts["http"], "socks4", counts["socks4"], "socks5", counts["socks5"])
}

// ValidateBatch probes up to count proxies of a type (0 = all) with bounded
// fan-out. Failures are dropped from the served set.
func (s *Service) ValidateBatch(ctx context.Context, ptype, count int) {
	candidates := s.store.Candidates(ptype, count)
	if len(candidates) == 0 {
		return
	}
	s.log.InfoWithCount("validating proxies", len(candidates))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ValidateLimit)
	var passed, failed atomic.Int64
	for _, p := range candidates {
		g.Go(func() error {
			updated, ok := s.validator.Validate(ctx, p)
			if ok {
				s.store.Put(updated)
				passed.Add(1)
			} else {
				s.store.Remove(p.Key())
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.validated.Add(float64(len(candidates)))
	s.valid.Add(float64(passed.Load()))
	s.invalid.Add(float64(failed.Load()))
	s.validatedN.Add(int64(len(candidates)))
	s.validN.Add(passed.Load())
	s.invalidN.Add(failed.Load())
	s.updateGauges()
	s.log.Info("proxy validation complete", "valid", passed.Load(), "invalid", failed.Load())
}

// TriggerRefresh schedules a background refresh unless one is running.
func (s *Service) TriggerRefresh() bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.refreshing.Store(false)
		s.Refresh(context.Background())
	}()
	return true
}

// TriggerValidate schedules a background validation batch unless one is
// running.
func (s *Service) TriggerValidate(ptype, count int) bool {
	if !s.validating.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.validating.Store(false)
		s.ValidateBatch(context.Background(), ptype, count)
	}()
	return true
}

// Startup runs the initial refresh-then-validate kick.
func (s *Service) Startup(ctx context.Context) {
	s.Refresh(ctx)
	s.ValidateBatch(ctx, 0, s.cfg.ValidateLimit*2)
}

// Select serves a (type, count) query and schedules the staleness and
// low-water background work the read uncovered.
func (s *Service) Select(ptype, count int, validOnly bool) []domain.Proxy {
	if s.store.Stale(s.cfg.RefreshInterval) {
		s.TriggerRefresh()
	}
	out := s.store.Select(ptype, count, validOnly)
	if len(out) < count/2 {
		s.TriggerValidate(ptype, count)
	}
	return out
}

// Stats reports set sizes, probe counters and the last refresh time.
func (s *Service) Stats() map[string]any {
	stats := map[string]any{
		"proxies": s.store.Counts(),
		"stats": map[string]int64{
			"proxies_fetched":   s.fetchedN.Load(),
			"proxies_validated": s.validatedN.Load(),
			"valid_proxies":     s.validN.Load(),
			"invalid_proxies":   s.invalidN.Load(),
		},
	}
	if last := s.store.LastRefresh(); !last.IsZero() {
		stats["last_refresh"] = last.Format(time.RFC3339)
	} else {
		stats["last_refresh"] = nil
	}
	return stats
}

func (s *Service) updateGauges() {
	for t, n := range s.store.Counts() {
		s.poolSize.WithLabelValues(t).Set(float64(n))
	}
}
