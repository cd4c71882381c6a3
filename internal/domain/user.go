package domain

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MinPasswordLength is the shortest plaintext password accepted after trimming.
const MinPasswordLength = 6

var validate = validator.New()

// User represents a registered account. Plaintext passwords only live on a
// User transiently between request decoding and hashing.
type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Age            int       `json:"age"`
	Password       string    `json:"-"`
	HashedPassword string    `json:"-"`
	Tokens         []string  `json:"-"`
	Avatar         []byte    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewUser builds a normalized, validated User. The plaintext password is
// kept in Password; the caller must hash it before the user is persisted.
func NewUser(name, email, password string, age int) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Password:  password,
		Age:       age,
		CreatedAt: now,
		UpdatedAt: now,
	}

	user.Normalize()
	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Normalize trims name, email and password and lower-cases the email.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
	u.Password = strings.TrimSpace(u.Password)
}

// NormalizeEmail returns the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the user's fields. When Password is empty the user must
// already carry a hash, which is the case for persisted users.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "is required", ErrInvalidID)
	}

	if u.Name == "" {
		return NewValidationError("name", "is required", nil)
	}

	if u.Email == "" {
		return NewValidationError("email", "is required", nil)
	}
	if err := validate.Var(u.Email, "email"); err != nil {
		return NewValidationError("email", "is invalid", nil)
	}

	if u.Age < 0 {
		return NewValidationError("age", "must be a positive number", nil)
	}

	if u.Password != "" {
		return validatePassword(u.Password)
	}
	if u.HashedPassword == "" {
		return NewValidationError("password", "is required", nil)
	}

	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "must be at least 6 characters", nil)
	}
	if strings.Contains(strings.ToLower(password), "password") {
		return NewValidationError("password", "cannot contain \"password\"", nil)
	}
	return nil
}

// HasToken reports whether token is one of the user's live session tokens.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}
