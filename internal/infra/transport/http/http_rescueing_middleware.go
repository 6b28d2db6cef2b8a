package http

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
)

// RescueingMiddleware turns a handler panic into a logged 500 response.
// http.ErrAbortHandler is passed on so the server can drop the connection.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			log.ErrorContext(r.Context(), "handler panicked",
				"path", r.URL.Path,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)

			WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}()

		next.ServeHTTP(w, r)
	})
}
