// internal/membership/service.go
package membership

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the membership service.
type Service interface {
	// Register creates a patron account with the user role and returns it
	// together with a fresh token pair.
	Register(ctx context.Context, name, email, password string) (*Patron, *TokenPair, error)

	// Login verifies credentials and returns the patron with a fresh token
	// pair. Deactivated accounts cannot log in.
	Login(ctx context.Context, email, password string) (*Patron, *TokenPair, error)

	// Refresh exchanges a valid refresh token for a new token pair. The
	// patron must still exist and be active.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// Profile returns the patron's own account.
	Profile(ctx context.Context, patronID uuid.UUID) (*Patron, error)

	// UpdateProfile changes the patron's name and email. A new email must
	// not belong to another account.
	UpdateProfile(ctx context.Context, patronID uuid.UUID, name, email string) (*Patron, error)

	// AdminListPatrons lists accounts for the admin console.
	AdminListPatrons(ctx context.Context, opts ListOptions) ([]Patron, int, error)

	// AdminUpdatePatron changes a patron's role or active flag. Admins
	// cannot change their own account, and an account with active borrows
	// cannot be deactivated.
	AdminUpdatePatron(ctx context.Context, actorID, patronID uuid.UUID, update PatronUpdate) (*Patron, error)
}

// Store is the persistence collaborator for patrons.
type Store interface {
	FindPatronByID(ctx context.Context, id uuid.UUID) (*Patron, error)

	// FindPatronByEmail returns nil, nil when no account has the email.
	FindPatronByEmail(ctx context.Context, email string) (*Patron, error)

	CreatePatron(ctx context.Context, patron *Patron) error

	// UpdatePatron writes with an optimistic version check.
	UpdatePatron(ctx context.Context, patron *Patron) error

	ListPatrons(ctx context.Context, opts ListOptions) ([]Patron, int, error)

	// CountActiveBorrows counts the patron's non-returned loans.
	CountActiveBorrows(ctx context.Context, patronID uuid.UUID) (int, error)
}
