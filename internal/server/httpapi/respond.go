package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/tgotp/internal/common"
)

const (
	maxBodyBytes = 64 << 10

	msgInternal     = "Internal server error"
	msgInvalidToken = "Invalid or expired token"
	msgInvalidBody  = "Invalid request body"
)

var errBadBody = errors.New("bad request body")

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type okResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// errorStatus maps a service error to a status and a message safe to show.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, msgInvalidBody
	case errors.Is(err, common.ErrMissingAuthorization):
		return http.StatusUnauthorized, "Missing authorization"
	case errors.Is(err, common.ErrInitDataExpired):
		return http.StatusUnauthorized, "Init data expired"
	case errors.Is(err, common.ErrMissingHash),
		errors.Is(err, common.ErrSignatureMismatch),
		errors.Is(err, common.ErrMissingUser):
		return http.StatusUnauthorized, "Invalid init data"
	case errors.Is(err, common.ErrIncorrectPIN):
		return http.StatusUnauthorized, "Incorrect PIN"
	case errors.Is(err, common.ErrNoPinSet):
		return http.StatusBadRequest, "No PIN set"
	case errors.Is(err, common.ErrInvalidSecret):
		return http.StatusBadRequest, "Invalid secret"
	case errors.Is(err, common.ErrInvalidURI):
		return http.StatusBadRequest, "Invalid otpauth URI"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrTokenNotFound):
		return http.StatusNotFound, msgInvalidToken
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrSelfImportRejected):
		return http.StatusConflict, "Cannot import your own export"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "request_id", requestIDFrom(r.Context()), "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "request_id", requestIDFrom(r.Context()), "status", status, "error", err)
	}
	writeError(w, status, msg)
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
