// Package actor resolves who is performing a request. Authentication happens
// upstream; this service trusts the gateway-supplied X-Actor header and
// records it on every custody entry.
package actor

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "evidex/pkg/domain-errors"
	"evidex/pkg/platform/httputil"
	"evidex/pkg/requestcontext"
)

// Header carries the performer identity.
const Header = "X-Actor"

const maxActorLen = 256

// RequireActor rejects mutating requests without an actor. Safe methods pass
// through, picking up the actor when present.
func RequireActor(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			performer := strings.TrimSpace(r.Header.Get(Header))
			if len(performer) > maxActorLen {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "actor header too long"))
				return
			}
			if performer == "" && mutates(r.Method) {
				logger.WarnContext(ctx, "mutation without actor",
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "X-Actor header is required"))
				return
			}
			if performer != "" {
				ctx = requestcontext.WithActor(ctx, performer)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func mutates(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
