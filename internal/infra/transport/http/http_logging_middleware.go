package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// statusRecorder remembers the status and size of a response.
type statusRecorder struct {
	http.ResponseWriter

	status  int
	written int
}

func (w *statusRecorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.written += n

	//nolint:wrapcheck
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Status is the status sent so far, 200 if the handler wrote nothing.
func (w *statusRecorder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

func statusLevel(status int) logging.Level {
	if status >= http.StatusInternalServerError {
		return logging.LevelError
	}

	if status >= http.StatusBadRequest {
		return logging.LevelWarn
	}

	return logging.LevelInfo
}

// LoggingMiddleware logs one line per request once the response is done.
// Server errors log at error level and client errors at warn.
func LoggingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		status := rec.Status()

		log.Log(r.Context(), statusLevel(status), r.Method+" "+r.URL.Path, slog.Group("http",
			"remote", r.RemoteAddr,
			"status", status,
			"bytes", rec.written,
			"took", time.Since(began).String(),
		))
	})
}
