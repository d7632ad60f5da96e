// Package requesttime pins a single "now" per request so custody timestamps,
// acknowledgement times and production transitions agree within one call.
package requesttime

import (
	"net/http"
	"time"

	"evidex/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
