package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

type ctxKey string

const (
	CtxKeyRequestID ctxKey = "request_id"
	CtxKeyTraceID   ctxKey = "trace_id"

	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

func generateID() string {
	buf := make([]byte, 8) // 16 hex chars
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// WithRequestAndTrace accepts caller supplied ids or mints new ones, stores
// them on the context and echoes them on the response.
func WithRequestAndTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRequestID)
		if reqID == "" || len(reqID) > 128 {
			reqID = generateID()
		}
		traceID := r.Header.Get(HeaderTraceID)
		if traceID == "" || len(traceID) > 128 {
			traceID = generateID()
		}

		w.Header().Set(HeaderRequestID, reqID)
		w.Header().Set(HeaderTraceID, traceID)

		next.ServeHTTP(w, r.WithContext(WithIDs(r.Context(), reqID, traceID)))
	})
}

// WithIDs attaches ids to ctx; background jobs use it to tag their logs.
func WithIDs(ctx context.Context, reqID, traceID string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyRequestID, reqID)
	return context.WithValue(ctx, CtxKeyTraceID, traceID)
}

// NewJobContext tags a background run with a fresh trace id.
func NewJobContext(ctx context.Context, job string) context.Context {
	return WithIDs(ctx, job+"-"+generateID(), generateID())
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyTraceID).(string); ok {
		return v
	}
	return ""
}
