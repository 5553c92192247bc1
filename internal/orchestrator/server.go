package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

type userKey struct{}

// Server is the orchestrator's HTTP API. Every test route requires the
// X-User identity header set by the gateway.
type Server struct {
	cfg      config.OrchestratorConfig
	store    *Store
	executor *Executor
	log      *logger.StyledLogger
	srv      *http.Server
	reg      *prometheus.Registry
}

func NewServer(cfg config.OrchestratorConfig, store *Store, executor *Executor, reg *prometheus.Registry, log *logger.StyledLogger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		executor: executor,
		log:      log,
		reg:      reg,
	}
	s.srv = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/test", s.handleCreate)
		r.Get("/tests", s.handleList)
		r.Get("/test/{testID}", s.handleGet)
		r.Delete("/test/{testID}", s.handleStop)
		r.Get("/test/{testID}/results", s.handleResults)
	})

	r.Get("/methods", s.handleMethods)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.log.Info("listening", "service", "orchestrator", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.executor.Wait(ctx)
	return err
}

// requireUser rejects requests missing the gateway's X-User identity header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-User")
		if user == "" {
			writeError(w, http.StatusUnauthorized, "X-User header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(r *http.Request) string {
	user, _ := r.Context().Value(userKey{}).(string)
	return user
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !domain.MethodExists(req.Method) {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown method: %s. Available methods: %s", req.Method, strings.Join(methodNames(), ", ")))
		return
	}

	test := &domain.Test{
		ID:         uuid.NewString(),
		User:       userFrom(r),
		Target:     req.Target,
		Method:     req.Method,
		Duration:   req.Duration,
		Threads:    req.Threads,
		ProxyType:  req.ProxyType,
		Parameters: req.Parameters,
		CreatedAt:  time.Now(),
		Status:     domain.StatusQueued,
	}
	s.store.Add(test)
	s.executor.Launch(test.ID)

	s.log.InfoWithTestID("test created", test.ID,
		"user", test.User, "method", test.Method, "target", test.Target)
	writeJSON(w, http.StatusOK, test.Response())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	tests := s.store.List(userFrom(r))
	out := make([]domain.TestResponse, len(tests))
	for i := range tests {
		out[i] = tests[i].Response()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

// loadOwned fetches a test and enforces ownership: 404 before 403.
func (s *Server) loadOwned(w http.ResponseWriter, r *http.Request) (domain.Test, bool) {
	id := chi.URLParam(r, "testID")
	test, ok := s.store.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrTestNotFound.Error())
		return domain.Test{}, false
	}
	if test.User != userFrom(r) {
		writeError(w, http.StatusForbidden, domain.ErrNotOwner.Error())
		return domain.Test{}, false
	}
	return test, true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	test, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, test.Response())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	test, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	if test.Status != domain.StatusRunning {
		// best-effort at this level: non-running tests come back unchanged
		writeJSON(w, http.StatusOK, test.Response())
		return
	}

	if test.ModuleTestID != "" {
		if fleetURL, err := s.executor.FleetURL(test.Method); err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StopTimeout)
			defer cancel()
			if err := s.executor.fleet.Stop(ctx, fleetURL, test.ModuleTestID); err != nil {
				s.log.WarnWithTestID("fleet stop failed, recording stop locally", test.ID, "error", err)
			}
		}
	}

	stopped, _ := s.store.MarkStopped(test.ID)
	s.store.StoreResult(test.ID, map[string]any{"message": "test stopped by user"})
	s.log.InfoWithTestID("test stopped", test.ID, "user", stopped.User)
	writeJSON(w, http.StatusOK, stopped.Response())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	test, ok := s.loadOwned(w, r)
	if !ok {
		return
	}
	if !test.Status.IsTerminal() {
		writeError(w, http.StatusBadRequest, domain.ErrResultsNotReady.Error())
		return
	}
	result, found := s.store.Result(test.ID)
	if !found {
		result = map[string]any{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Methods)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"service":      "orchestrator",
		"timestamp":    float64(time.Now().UnixNano()) / float64(time.Second),
		"active_tests": s.store.ActiveCount(),
	})
}

func methodNames() []string {
	names := make([]string, 0, len(domain.Methods))
	for name := range domain.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
