package testutil

import (
	"net/http"

	"evidex/pkg/requestcontext"
)

// ActorHeader is the header the actor middleware reads the performer from.
const ActorHeader = "X-Actor"

// WithActor sets the actor header on a request, as a calling client would.
func WithActor(req *http.Request, actor string) *http.Request {
	req.Header.Set(ActorHeader, actor)
	return req
}

// WithActorContext injects the actor straight into the request context,
// for handler tests that skip the middleware chain.
func WithActorContext(req *http.Request, actor string) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), actor))
}
