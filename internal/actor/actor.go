// Package actor propagates the identity of the acting user through a request's
// call chain. The identity is bound to a context.Context at the request
// boundary (by the auth middleware) and can be read from any code that receives
// that context (repositories, the audit recorder, background continuations)
// without being threaded as a function parameter.
//
// context.Context is Go's native execution-scope propagation primitive: each
// request owns its own context chain, so concurrent requests can never observe
// each other's actor, including across goroutine suspension points. Code
// running outside a request (migrations, seed scripts, background jobs) simply
// has no actor bound and FromContext reports none; attribution and audit
// records then carry no actor id, which is the intended behaviour for
// system-initiated writes.
package actor

import "context"

type actorKey struct{}

type requestInfoKey struct{}

// RequestInfo holds per-request metadata recorded alongside audit entries.
type RequestInfo struct {
	IPAddress string
	UserAgent string
}

// WithActor returns a context carrying id as the current actor. The binding
// lives exactly as long as the derived context is in use; callers higher up
// the chain, and sibling requests, are unaffected.
func WithActor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// FromContext returns the actor id bound to ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IDPtr returns the bound actor id as a nullable pointer, matching how
// attribution columns and audit rows store it.
func IDPtr(ctx context.Context) *string {
	if id, ok := FromContext(ctx); ok {
		return &id
	}
	return nil
}

// WithRequestInfo returns a context carrying the request metadata.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the request metadata bound to ctx, if any.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}
