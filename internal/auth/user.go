package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	MinPasswordLength = 6
	// bcrypt refuses longer passwords
	MaxPasswordLength = 72
)

var (
	ErrUserExists       = errors.New("user exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidUser      = errors.New("invalid user")
)

type User struct {
	ID           int
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NormalizeEmail lower-cases the address so logins are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail checks for a single @ with some text on both sides of it.
func ValidEmail(email string) bool {
	local, domain, found := strings.Cut(email, "@")
	return found && local != "" && domain != "" && !strings.Contains(domain, "@")
}

func ValidateRegistration(email, password, name string) error {
	var err error
	if !ValidEmail(email) {
		err = multierr.Append(err, errors.New("email must contain @ with text before and after it"))
	}
	if len(password) < MinPasswordLength {
		err = multierr.Append(err, fmt.Errorf("password must have at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		err = multierr.Append(err, fmt.Errorf("password must not be longer than %d bytes", MaxPasswordLength))
	}
	if strings.TrimSpace(name) == "" {
		err = multierr.Append(err, errors.New("name is required"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	return nil
}
