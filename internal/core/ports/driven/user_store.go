package driven

import (
	"context"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// UserStore persists dashboard users.
type UserStore interface {
	// Save creates or updates a user
	Save(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID, domain.ErrNotFound if missing
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email, domain.ErrNotFound if missing
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List retrieves all users
	List(ctx context.Context) ([]*domain.User, error)

	// Delete removes a user, domain.ErrNotFound if missing
	Delete(ctx context.Context, id string) error

	// UpdateLastLogin updates the last login timestamp
	UpdateLastLogin(ctx context.Context, id string) error
}
