// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic. Implementations accept a DBTX so they can run
// on a pooled connection, a request or task session, or a transaction.
package store
