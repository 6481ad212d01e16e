// Package shared holds the request decoding, JSON response and trace ID
// helpers used by both the api handlers and the middleware chain.
package shared
