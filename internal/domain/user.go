package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Column limits for users.
const (
	MaxUsernameLength = 64
	// MaxPasswordLength is bcrypt's input limit.
	MaxPasswordLength = 72
	MinPasswordLength = 8
)

// Common validation errors
var (
	ErrEmptyUsername       = fmt.Errorf("%w: username cannot be empty", ErrValidation)
	ErrUsernameTooLong     = fmt.Errorf("%w: username must be at most %d characters", ErrValidation, MaxUsernameLength)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	ErrPasswordTooLong     = fmt.Errorf("%w: password must be at most %d characters long", ErrValidation, MaxPasswordLength)
	ErrEmptyHashedPassword = fmt.Errorf("%w: hashed password cannot be empty", ErrValidation)
)

// User is an account that can sign in, own a session cookie and be assigned
// to todos. IDs are assigned by the database.
type User struct {
	ID             int64  `json:"id"`
	Username       string `json:"username"`
	Password       string `json:"-"` // Plaintext, only set during registration
	HashedPassword string `json:"-"`
}

// NewUser creates a User with the given username and plaintext password.
// The caller hashes the password before the user is stored.
func NewUser(username, password string) (*User, error) {
	user := &User{
		Username: strings.TrimSpace(username),
		Password: password,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks the username and whichever password form is present.
func (u *User) Validate() error {
	if u.Username == "" {
		return ErrEmptyUsername
	}
	if utf8.RuneCountInString(u.Username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}

	if u.Password != "" {
		switch {
		case len(u.Password) < MinPasswordLength:
			return ErrPasswordTooShort
		case len(u.Password) > MaxPasswordLength:
			return ErrPasswordTooLong
		}
		return nil
	}

	if u.HashedPassword == "" {
		return ErrEmptyHashedPassword
	}
	return nil
}
