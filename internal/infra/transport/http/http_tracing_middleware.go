package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/homecase-accounts/internal/infra/context"
)

// TraceIDHeader carries the request id in both directions.
const TraceIDHeader = "X-Request-ID"

// maxTraceIDLen caps client supplied ids before they reach the logs.
const maxTraceIDLen = 128

// TracingMiddleware stores a request id in the context and echoes it back.
// A client supplied id is kept, otherwise a UUIDv7 is generated.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceIDHeader)
		if traceID == "" || len(traceID) > maxTraceIDLen {
			traceID = newTraceID()
		}

		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
			r = r.WithContext(context_.WithTraceID(r.Context(), traceID))
		}

		next.ServeHTTP(w, r)
	})
}

func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}

	return id.String()
}
