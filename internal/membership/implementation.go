// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"libraflow/internal/token"
)

// service implements the Service interface.
type service struct {
	store       Store
	secret      []byte
	rateLimiter *rate.Limiter
}

// NewService creates a new membership service instance.
func NewService(store Store, secret []byte) Service {
	return &service{
		store:       store,
		secret:      secret,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 5), // 5 auth attempts per minute
	}
}

// Register creates a new patron account.
func (s *service) Register(ctx context.Context, name, email, password string) (*Patron, *TokenPair, error) {
	if !s.rateLimiter.Allow() {
		return nil, nil, ErrRateLimited
	}
	if err := ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	passwordHash, salt, err := hashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	patron := &Patron{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Salt:         salt,
		Role:         RoleUser,
		IsActive:     true,
		Version:      1,
	}
	if err := patron.Validate(); err != nil {
		return nil, nil, err
	}

	if err := s.store.CreatePatron(ctx, patron); err != nil {
		return nil, nil, err
	}

	pair, err := s.issueTokens(patron)
	if err != nil {
		return nil, nil, err
	}
	return patron, pair, nil
}

// Login verifies credentials and issues a token pair.
func (s *service) Login(ctx context.Context, email, password string) (*Patron, *TokenPair, error) {
	if !s.rateLimiter.Allow() {
		return nil, nil, ErrRateLimited
	}

	patron, err := s.store.FindPatronByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, nil, fmt.Errorf("authentication failed: %w", err)
	}
	if patron == nil {
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := verifyPassword(password, patron.Salt, patron.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}
	if !patron.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	pair, err := s.issueTokens(patron)
	if err != nil {
		return nil, nil, err
	}
	return patron, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The patron record is
// re-read so a deactivation or role change takes effect immediately.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := token.Parse(s.secret, refreshToken)
	if err != nil || claims.TokenType != token.TypeRefresh {
		return nil, token.ErrInvalidToken
	}

	patron, err := s.store.FindPatronByID(ctx, claims.PatronID)
	if err != nil {
		return nil, fmt.Errorf("refresh failed: %w", err)
	}
	if !patron.IsActive {
		return nil, ErrAccountDisabled
	}

	return s.issueTokens(patron)
}

// Profile returns the patron's own account.
func (s *service) Profile(ctx context.Context, patronID uuid.UUID) (*Patron, error) {
	return s.store.FindPatronByID(ctx, patronID)
}

// UpdateProfile changes name and email.
func (s *service) UpdateProfile(ctx context.Context, patronID uuid.UUID, name, email string) (*Patron, error) {
	patron, err := s.store.FindPatronByID(ctx, patronID)
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email != patron.Email {
		existing, err := s.store.FindPatronByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if existing != nil {
			return nil, ErrDuplicateEmail
		}
	}

	patron.Name = strings.TrimSpace(name)
	patron.Email = email
	if err := patron.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePatron(ctx, patron); err != nil {
		return nil, err
	}
	return patron, nil
}

// AdminListPatrons lists accounts for the admin console.
func (s *service) AdminListPatrons(ctx context.Context, opts ListOptions) ([]Patron, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > 50 {
		opts.Limit = 20
	}
	return s.store.ListPatrons(ctx, opts)
}

// AdminUpdatePatron changes role or active status.
func (s *service) AdminUpdatePatron(ctx context.Context, actorID, patronID uuid.UUID, update PatronUpdate) (*Patron, error) {
	if actorID == patronID {
		return nil, ErrSelfUpdate
	}

	patron, err := s.store.FindPatronByID(ctx, patronID)
	if err != nil {
		return nil, err
	}

	if update.Role != nil {
		if *update.Role != RoleUser && *update.Role != RoleAdmin {
			return nil, fmt.Errorf("%w: role must be user or admin", ErrValidation)
		}
		patron.Role = *update.Role
	}
	if update.IsActive != nil {
		if patron.IsActive && !*update.IsActive {
			count, err := s.store.CountActiveBorrows(ctx, patronID)
			if err != nil {
				return nil, fmt.Errorf("count active borrows: %w", err)
			}
			if count > 0 {
				return nil, ErrHasActiveBorrows
			}
		}
		patron.IsActive = *update.IsActive
	}

	if err := s.store.UpdatePatron(ctx, patron); err != nil {
		return nil, err
	}
	return patron, nil
}

func (s *service) issueTokens(patron *Patron) (*TokenPair, error) {
	access, err := token.Generate(s.secret, patron.ID, patron.Role, token.TypeAccess, token.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := token.Generate(s.secret, patron.ID, patron.Role, token.TypeRefresh, token.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
