package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"authcore/internal/domain"
	"authcore/internal/observability/middleware"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized, domain.KindReuseDetected:
		return http.StatusUnauthorized
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindLocked:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to its status. Untyped errors become a
// generic 500 and are logged, never echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if kind == domain.KindInternal {
		slog.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"trace_id", middleware.TraceIDFromContext(r.Context()),
		)
		writeJSON(w, status, errorBody{Error: "internal_error", Message: "internal error"})
		return
	}

	var locked *domain.LockedError
	if errors.As(err, &locked) && locked.MinutesRemaining > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(locked.MinutesRemaining*60))
	}
	var de *domain.Error
	msg := err.Error()
	if errors.As(err, &de) {
		msg = de.Message
	}
	writeJSON(w, status, errorBody{Error: domain.CodeOf(err), Message: msg})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
