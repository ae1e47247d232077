package driven

import (
	"context"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// SessionStore persists dashboard sessions. Backed by Redis with TTL
// when available, PostgreSQL otherwise.
type SessionStore interface {
	// Save stores a session until its ExpiresAt
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID, domain.ErrNotFound if missing
	Get(ctx context.Context, id string) (*domain.Session, error)

	// GetByRefreshToken retrieves a session by its refresh token,
	// domain.ErrNotFound if missing
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)

	// Delete removes a session
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes all sessions for a user
	DeleteByUser(ctx context.Context, userID string) error
}
