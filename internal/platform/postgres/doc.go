// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in internal/store, plus helpers that map driver errors
// onto the store's sentinel errors.
//
// The schema lives in the migrations subpackage as embedded goose files.
package postgres
