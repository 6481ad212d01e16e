package mocks

import (
	"errors"
	"sync"
)

// ErrPasswordMismatch is returned by MockPasswordVerifier when a comparison fails.
var ErrPasswordMismatch = errors.New("password mismatch")

// MockPasswordVerifier implements auth.PasswordVerifier for testing.
// Without CompareFn it accepts a password equal to the stored hash, which
// matches how MockUserStore stores passwords.
type MockPasswordVerifier struct {
	CompareFn func(hashedPassword, password string) error

	mu    sync.Mutex
	calls int
}

// Compare implements the auth.PasswordVerifier interface
func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if hashedPassword != password {
		return ErrPasswordMismatch
	}
	return nil
}

// Calls reports how many comparisons were made.
func (m *MockPasswordVerifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
