package mocks

import (
	"errors"
	"strings"
)

// ErrPasswordMismatch is returned by MockPasswordHasher.Compare on a mismatch.
var ErrPasswordMismatch = errors.New("password mismatch")

const mockHashPrefix = "hashed:"

// MockPasswordHasher implements auth.PasswordHasher without bcrypt's cost.
// Hash prefixes the password, and Compare accepts exactly that form.
type MockPasswordHasher struct {
	// HashFn and CompareFn override the default behavior when set
	HashFn    func(password string) (string, error)
	CompareFn func(hashedPassword, password string) error

	// HashCallCount tracks how many times Hash was called
	HashCallCount int
}

// Hash implements the auth.PasswordHasher interface
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	m.HashCallCount++
	if m.HashFn != nil {
		return m.HashFn(password)
	}
	return mockHashPrefix + password, nil
}

// Compare implements the auth.PasswordHasher interface
func (m *MockPasswordHasher) Compare(hashedPassword, password string) error {
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if !strings.HasPrefix(hashedPassword, mockHashPrefix) ||
		strings.TrimPrefix(hashedPassword, mockHashPrefix) != password {
		return ErrPasswordMismatch
	}
	return nil
}
