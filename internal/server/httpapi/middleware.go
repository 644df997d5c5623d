package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/tgotp/internal/common"
	"github.com/dmitrijs2005/tgotp/internal/server/auth"
	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/ratelimit"
)

type ctxKey string

const (
	userKey      ctxKey = "user"
	requestIDKey ctxKey = "requestID"

	requestIDHeader = "X-Request-ID"
)

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestID keeps a well-formed incoming X-Request-ID or assigns a new one.
func (s *HTTPServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// logRequests never logs headers or bodies: both carry init data.
func (s *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := statusRecorder(w, r)
		defer func() {
			s.logger.Info(r.Context(), "HTTP request",
				"request_id", requestIDFrom(r.Context()),
				"method", r.Method,
				"route", routePattern(r),
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *HTTPServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error(r.Context(), "panic in handler",
					"request_id", requestIDFrom(r.Context()), "panic", rec)
				writeError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer init data to a user for the rest of the
// chain.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		user, err := s.users.Authenticate(r.Context(), raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// limitImports counts import attempts per user. Counter outages are logged
// and the request goes through.
func (s *HTTPServer) limitImports(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow(r.Context(), s.limiter, userFrom(r.Context()).ID) {
			s.fail(w, r, common.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) allow(ctx context.Context, l *ratelimit.Limiter, userID int64) bool {
	ok, err := l.Allow(ctx, strconv.FormatInt(userID, 10))
	if err != nil {
		s.logger.Warn(ctx, "rate limiter unavailable", "error", err)
	}
	return ok
}
