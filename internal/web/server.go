// Package web is the HTTP surface of the service: login and logoff, the RPC
// endpoint, static files, health and metrics.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/model_layer/internal/auth/pwd"
	"github.com/R3E-Network/model_layer/internal/auth/token"
	"github.com/R3E-Network/model_layer/internal/logging"
	"github.com/R3E-Network/model_layer/internal/metrics"
	"github.com/R3E-Network/model_layer/internal/middleware"
	"github.com/R3E-Network/model_layer/internal/model"
	"github.com/R3E-Network/model_layer/internal/rpc"
	"github.com/R3E-Network/model_layer/internal/session"
)

// Options wires the server to its collaborators.
type Options struct {
	Manager    *model.Manager
	Dispatcher *rpc.Dispatcher
	Hasher     *pwd.Hasher
	Issuer     *token.Issuer
	Sessions   session.Store
	Metrics    *metrics.Metrics
	Logger     *logging.Logger

	WebFolder      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server holds the request handlers.
type Server struct {
	mm         *model.Manager
	dispatcher *rpc.Dispatcher
	hasher     *pwd.Hasher
	issuer     *token.Issuer
	sessions   session.Store
	metrics    *metrics.Metrics
	logger     *logging.Logger

	auth    *middleware.AuthMiddleware
	limiter *middleware.RateLimiter
	opts    Options
}

// NewServer builds a server. Nil Metrics and Logger get working defaults.
func NewServer(opts Options) *Server {
	if opts.Metrics == nil {
		opts.Metrics = metrics.New("model_layer")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDefault("web-server")
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = rpc.New(opts.Manager)
	}

	return &Server{
		mm:         opts.Manager,
		dispatcher: opts.Dispatcher,
		hasher:     opts.Hasher,
		issuer:     opts.Issuer,
		sessions:   opts.Sessions,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		auth:       middleware.NewAuthMiddleware(opts.Issuer, opts.Sessions, opts.Manager, opts.Logger),
		limiter:    middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, opts.Logger, WriteError),
		opts:       opts,
	}
}

// Router assembles routes and the middleware chain:
// tracing, request log, metrics, CORS, ctx resolve, rate limit.
// The RPC route additionally requires a resolved ctx.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.NewTracingMiddleware().Handler)
	r.Use(RequestLog(s.logger))
	r.Use(middleware.MetricsMiddleware(s.metrics))
	r.Use(middleware.NewCORSMiddleware(s.opts.AllowedOrigins).Handler)
	r.Use(s.auth.Resolve)
	r.Use(trackUser)
	r.Use(s.limiter.Handler)

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.loginHandler()).Methods(http.MethodPost)
	api.HandleFunc("/logoff", s.logoffHandler()).Methods(http.MethodPost)
	api.Handle("/rpc", middleware.RequireCtx(WriteError)(s.rpcHandler())).Methods(http.MethodPost)

	r.PathPrefix("/").Handler(StaticHandler(s.opts.WebFolder))
	return r
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := s.mm.DB().PingContext(ctx); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Health check ping failed")
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status":    status,
			"service":   s.logger.Service(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.limiter.StartCleanup(ctx, time.Minute)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("web-server listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
