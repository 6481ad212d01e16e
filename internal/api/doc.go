// Package api holds the HTTP handlers of the todos service: greeting and
// health, authentication, users, todos with their assignees and pictures,
// and on-demand task submission.
//
// Handlers have the middleware.HandlerFunc shape. Client errors (bad input,
// missing login, conflicts) are answered here with the JSON error envelope.
// Missing entities and unexpected failures are returned so the error
// boundary renders them.
package api
