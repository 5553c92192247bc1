package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Gh05t666nero/nrtf/internal/config"
	"github.com/Gh05t666nero/nrtf/internal/core/domain"
	"github.com/Gh05t666nero/nrtf/internal/logger"
)

const forwardAttempts = 3

type userCtxKey struct{}

// Server is the gateway's HTTP API.
type Server struct {
	cfg   config.GatewayConfig
	users *UserDB
	http  *http.Client
	log   *logger.StyledLogger
	srv   *http.Server
	reg   *prometheus.Registry

	requestsTotal *prometheus.CounterVec
}

func NewServer(cfg config.GatewayConfig, users *UserDB, reg *prometheus.Registry, log *logger.StyledLogger) *Server {
	s := &Server{
		cfg:   cfg,
		users: users,
		http:  &http.Client{Timeout: cfg.HTTPTimeout},
		log:   log,
		reg:   reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nrtf_gateway_requests_total",
			Help: "Forwarded API requests, by route and status code.",
		}, []string{"route", "code"}),
	}
	if reg != nil {
		reg.MustRegister(s.requestsTotal)
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
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))

	r.Post("/token", s.handleToken)

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/users/me", s.handleMe)
		r.Post("/api/test", s.handleCreateTest)
		r.Get("/api/tests", s.forwardTo("/tests"))
		r.Get("/api/test/{testID}", s.forwardParam("/test/%s"))
		r.Delete("/api/test/{testID}", s.forwardParam("/test/%s"))
		r.Get("/api/test/{testID}/results", s.forwardParam("/test/%s/results"))
		r.Get("/api/methods", s.forwardTo("/methods"))
	})

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.log.Info("listening", "service", "gateway", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, ok := s.users.Authenticate(username, password)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := IssueToken(s.cfg.SecretKey, user.Username, s.cfg.TokenExpiry)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.log.Info("token issued", "user", user.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// requireToken authenticates the bearer token and stashes the account.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			unauthorized(w)
			return
		}
		username, err := ParseToken(s.cfg.SecretKey, auth[len(prefix):])
		if err != nil {
			unauthorized(w)
			return
		}
		user, ok := s.users.Get(username)
		if !ok {
			unauthorized(w)
			return
		}
		if user.Disabled {
			writeError(w, http.StatusBadRequest, "Inactive user")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userCtxKey{}, user)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
}

func currentUser(r *http.Request) User {
	user, _ := r.Context().Value(userCtxKey{}).(User)
	return user
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var req domain.TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user := currentUser(r)
	s.log.InfoWithTarget("user "+user.Username+" initiated test against", req.Target, "method", req.Method)

	body, _ := json.Marshal(req)
	s.forward(w, r, http.MethodPost, "/test", body)
}

// forwardTo proxies the request body-less to a fixed orchestrator path.
func (s *Server) forwardTo(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.forward(w, r, r.Method, path, nil)
	}
}

// forwardParam proxies to a path templated with the testID route parameter.
func (s *Server) forwardParam(pathFmt string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := fmt.Sprintf(pathFmt, chi.URLParam(r, "testID"))
		s.forward(w, r, r.Method, path, nil)
	}
}

// forward relays a call to the orchestrator with the user identity header,
// retrying transport failures with linear backoff. Upstream status codes and
// bodies pass through untouched; only transport failure becomes a 503.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, method, path string, body []byte) {
	user := currentUser(r)

	var status int
	var respBody []byte
	err := retry.Do(
		func() error {
			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(r.Context(), method, s.cfg.OrchestratorURL+path, reader)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("X-User", user.Username)
			if body != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := s.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			respBody, err = io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			status = resp.StatusCode
			return nil
		},
		retry.Attempts(forwardAttempts),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * time.Second
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		s.log.Error("orchestrator unreachable", "path", path, "error", err)
		s.requestsTotal.WithLabelValues(path, "503").Inc()
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		return
	}

	s.requestsTotal.WithLabelValues(path, fmt.Sprint(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(respBody)
}

// handleHealth fans in to the orchestrator: unreachable upstream degrades
// the gateway instead of failing it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.OrchestratorURL+"/health", nil)
	if err == nil {
		resp, err := s.http.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			status = "degraded"
		}
		if err == nil {
			resp.Body.Close()
		}
	} else {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"service":   "gateway",
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
