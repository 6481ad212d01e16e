// Package mocks provides in-memory implementations of the store and auth
// interfaces for tests.
//
// The stores keep their data in exported maps so tests can seed and inspect
// them directly. Each mock also exposes optional function fields that
// override a single method, typically to inject a failure:
//
//	todos := mocks.NewMockTodoStore()
//	todos.CountFn = func(ctx context.Context, f store.TodoFilter) (int, error) {
//		return 0, errors.New("connection reset")
//	}
//
// MockUserStore stores plaintext passwords as their hash and
// MockPasswordVerifier compares them verbatim, so login flows work without
// bcrypt. MockSessionCodec issues readable "user-<id>" tokens.
package mocks
