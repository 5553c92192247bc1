package proxypool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

const defaultCount = 100

// Server is the pool's HTTP API.
type Server struct {
	service *Service
	log     *logger.StyledLogger
	srv     *http.Server
	reg     *prometheus.Registry
}

func NewServer(cfg config.ServerConfig, service *Service, reg *prometheus.Registry, log *logger.StyledLogger) *Server {
	s := &Server{service: service, log: log, reg: reg}
	s.srv = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/proxies", s.handleProxies)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/validate", s.handleValidate)
	r.Get("/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.log.Info("listening", "service", "proxypool", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()

	// initial refresh-then-validate kick
	go s.service.Startup(context.Background())
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// parseType reads the type query parameter: absent or 0 means all types,
// anything other than 1/4/5 is an error.
func parseType(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return 0, nil
	}
	t, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ErrInvalidProxyType
	}
	if t != 0 && !domain.ValidProxyType(t) {
		return 0, domain.ErrInvalidProxyType
	}
	return t, nil
}

func parseCount(r *http.Request) int {
	raw := r.URL.Query().Get("count")
	if raw == "" {
		return defaultCount
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultCount
	}
	return n
}

func (s *Server) handleProxies(w http.ResponseWriter, r *http.Request) {
	ptype, err := parseType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	count := parseCount(r)
	validOnly := true
	if raw := r.URL.Query().Get("valid_only"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			validOnly = b
		}
	}

	proxies := s.service.Select(ptype, count, validOnly)
	if proxies == nil {
		proxies = []domain.Proxy{}
	}
	writeJSON(w, http.StatusOK, proxies)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.service.TriggerRefresh()
	writeJSON(w, http.StatusOK, map[string]string{"status": "Refreshing proxies in background"})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ptype, err := parseType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.service.TriggerValidate(ptype, parseCount(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "Validating proxies in background"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "proxypool",
		"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
