package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/iho/cashledger/internal/domain"
)

// RequestMeta stores the request ID, client address and user agent for the
// audit logs written by use cases. It must run after chi's RequestID.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := domain.ContextWithRequestMeta(r.Context(), domain.RequestMeta{
			RequestID: chimiddleware.GetReqID(r.Context()),
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
