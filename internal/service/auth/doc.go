// Package auth signs and verifies the session cookie, and checks user
// credentials with bcrypt.
package auth
