package middleware

import (
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/cashledger/internal/infrastructure/logger"
)

// Recovery turns a handler panic into a 500 and logs it with the request
// logger. A panic inside a write transaction leaves it rolled back by the
// use case's deferred Rollback, so no partial entry is committed.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.FromContext(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("panic recovered")

			writeError(w, http.StatusInternalServerError, "internal server error",
				"request "+chimiddleware.GetReqID(r.Context()))
		}()

		next.ServeHTTP(w, r)
	})
}
