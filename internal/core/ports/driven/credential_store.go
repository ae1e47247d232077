package driven

import (
	"context"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// CredentialStore is the single source of truth for platform
// credentials. Implementations must be safe for concurrent
// readers/writers across independent request-handling processes.
type CredentialStore interface {
	// Put upserts a credential keyed by ID. If a different active
	// credential exists for the same (UserID, Platform), it is
	// deactivated atomically with the insert so there is never a
	// window with two active credentials for one connection.
	Put(ctx context.Context, cred *domain.Credential) error

	// Get retrieves a credential by ID with decrypted secrets.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Credential, error)

	// FindActive returns the active credential for (userID, platform).
	// Returns domain.ErrNotFound if none exists.
	FindActive(ctx context.Context, userID string, platform domain.Platform) (*domain.Credential, error)

	// ListByUser returns all credentials owned by a user with secrets
	// loaded (callers mask before exposing), most recently refreshed
	// first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Credential, error)

	// Update applies a field-level patch and returns the updated
	// credential. nil patch fields leave stored values untouched; in
	// particular a nil RefreshToken never drops the stored one.
	// Returns domain.ErrNotFound if the credential does not exist.
	Update(ctx context.Context, id string, patch *domain.CredentialPatch) (*domain.Credential, error)

	// ListExpiring returns active credentials that carry a refresh
	// token and expire before the given time, across all users. Used
	// by the janitor's proactive refresh sweep.
	ListExpiring(ctx context.Context, before time.Time) ([]*domain.Credential, error)

	// Delete removes a credential by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error
}
