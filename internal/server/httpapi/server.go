// Package httpapi exposes the Mini App JSON API over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrijs2005/tgotp/internal/logging"
	"github.com/dmitrijs2005/tgotp/internal/server/ratelimit"
	"github.com/dmitrijs2005/tgotp/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type HTTPServer struct {
	address   string
	users     *services.UserService
	accounts  *services.AccountService
	transfers *services.TransferService
	limiter   *ratelimit.Limiter
	pins      *ratelimit.Limiter
	origins   []string
	logger    logging.Logger
}

// Option configures an HTTPServer.
type Option func(*HTTPServer)

// WithPINLimiter throttles PIN attempts on /api/auth per user.
func WithPINLimiter(l *ratelimit.Limiter) Option {
	return func(s *HTTPServer) {
		if l != nil {
			s.pins = l
		}
	}
}

func NewHTTPServer(
	a string,
	l logging.Logger,
	us *services.UserService,
	as *services.AccountService,
	ts *services.TransferService,
	limiter *ratelimit.Limiter,
	origins []string,
	opts ...Option,
) *HTTPServer {
	if limiter == nil {
		limiter = ratelimit.Disabled()
	}
	s := &HTTPServer{
		address:   a,
		logger:    l.With("module", "http_server"),
		users:     us,
		accounts:  as,
		transfers: ts,
		limiter:   limiter,
		pins:      ratelimit.Disabled(),
		origins:   origins,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route tree with its middleware stack.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth", s.handleAuth)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/accounts", s.handleListAccounts)
			r.Post("/accounts", s.handleCreateAccount)
			r.Delete("/accounts", s.handleDeleteAllAccounts)
			r.Put("/accounts/{id}", s.handleUpdateAccount)
			r.Patch("/accounts/{id}", s.handleMoveAccount)
			r.Delete("/accounts/{id}", s.handleDeleteAccount)

			r.Put("/user", s.handleUpdateUser)

			r.Post("/export", s.handleExport)
			r.Get("/export/{token}/qr", s.handleExportQR)

			r.With(s.limitImports).Post("/import", s.handleImport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusRecorder exposes the status written by downstream handlers.
func statusRecorder(w http.ResponseWriter, r *http.Request) middleware.WrapResponseWriter {
	return middleware.NewWrapResponseWriter(w, r.ProtoMajor)
}
