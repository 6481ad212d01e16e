// Package testdb provides helpers for tests that need a real PostgreSQL
// database: connecting from DATABASE_URL, applying the embedded goose
// migrations once per process and isolating each test in a rolled-back
// transaction.
//
// Tests using it are built with the integration tag and skip themselves
// when no database URL is configured:
//
//	//go:build integration
//
//	func TestSomething(t *testing.T) {
//		db := testdb.GetTestDB(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			store := postgres.NewPostgresTodoStore(tx, nil)
//			...
//		})
//	}
package testdb
