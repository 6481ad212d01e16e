// Package middleware implements the request interceptor chain and the error
// boundary.
//
// A Chain wraps the router. For every request it mints a fresh execution
// context, runs the pre-hooks in registration order (RequestLogHook,
// IdentityHook), calls the handler, hands any returned error or panic to the
// ErrorBoundary, runs the post-hook (ResponseLogHook) and finally releases
// the request's database session.
package middleware
