// internal/membership/domain.go
package membership

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrPatronNotFound     = errors.New("patron not found")
	ErrDuplicateEmail     = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrRateLimited        = errors.New("too many requests")
	ErrValidation         = errors.New("validation failed")
	ErrSelfUpdate         = errors.New("cannot change own role or status")
	ErrHasActiveBorrows   = errors.New("patron has active borrows")
	ErrConflict           = errors.New("patron was modified concurrently")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Patron represents a library account. The password hash and salt never
// leave the service.
type Patron struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	Version      int       `json:"version" db:"version"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks name and email.
func (p *Patron) Validate() error {
	switch {
	case p.Name == "" || len(p.Name) > 50:
		return fmt.Errorf("%w: name is required and must not exceed 50 characters", ErrValidation)
	case !emailPattern.MatchString(p.Email):
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

// ValidatePassword checks password strength on registration.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}

// TokenPair is returned on register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ListOptions filters and paginates the admin patron listing.
type ListOptions struct {
	Query string
	Role  string
	Page  int
	Limit int
}

// PatronUpdate carries the admin-editable fields. Nil pointers leave the
// field untouched.
type PatronUpdate struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}
