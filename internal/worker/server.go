package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

// Server exposes a fleet's run lifecycle over HTTP.
type Server struct {
	service string
	runner  *Runner
	log     *logger.StyledLogger
	srv     *http.Server
	reg     *prometheus.Registry
}

func NewServer(service string, cfg config.ServerConfig, runner *Runner, reg *prometheus.Registry, log *logger.StyledLogger) *Server {
	s := &Server{
		service: service,
		runner:  runner,
		log:     log,
		reg:     reg,
	}
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

	r.Post("/execute", s.handleExecute)
	r.Delete("/execute/{testID}", s.handleStop)
	r.Get("/status/{testID}", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	return r
}

// Start begins serving and returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.log.Info("listening", "service", s.service, "addr", s.srv.Addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
	return nil
}

// Stop drains the runner and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.runner.Shutdown(ctx)
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var params domain.TestParameters
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.runner.Execute(params)
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrShuttingDown):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, domain.ErrUnknownMethod), errors.As(err, &ve):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"test_id": id,
		"status":  "started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "testID")
	view, err := s.runner.Stop(id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTestNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrNotRunning):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "testID")
	view, err := s.runner.Status(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if s.runner.ShuttingDown() {
		status = "shutting_down"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":            status,
		"service":           s.service,
		"timestamp":         float64(time.Now().UnixNano()) / float64(time.Second),
		"active_tests":      s.runner.ActiveCount(),
		"tracked_resources": s.runner.tracker.Len(),
		"methods":           s.runner.Methods(),
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
