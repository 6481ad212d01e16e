// Package config handles configuration loading, parsing, and validation
// from various sources (a .env file, an optional config file, environment
// variables). It provides type-safe access to the settings needed by the
// web server, the task worker and the beat scheduler.
package config
