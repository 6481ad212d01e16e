// Package task runs background work outside the request path.
//
// A Schedule holds the periodic table built at startup; Beat publishes one
// Message per entry on every interval; a Worker consumes messages from the
// Broker and invokes the named task from the Registry. Tasks that touch the
// database are SessionTasks: each invocation gets a fresh execution context
// whose session is released once the work finishes, whatever the outcome.
package task
