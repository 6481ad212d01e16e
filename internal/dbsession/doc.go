// Package dbsession hands out database sessions keyed by execution context.
//
// Every HTTP request and every background task invocation runs in its own
// ExecutionContext. The Registry lazily binds one pooled connection to each
// context, returns that same Session for every later lookup in the context,
// and closes it when the context is released. Sessions of different contexts
// never share a connection, so uncommitted work in one is invisible to another.
package dbsession
