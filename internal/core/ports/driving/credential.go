package driving

import (
	"context"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// ValidationOutcome is the result of a credential liveness check.
type ValidationOutcome string

const (
	// ValidationValid means the platform accepted the token.
	ValidationValid ValidationOutcome = "valid"

	// ValidationInvalid means the platform rejected the token.
	ValidationInvalid ValidationOutcome = "invalid"

	// ValidationError means the check itself failed and the token's
	// standing is unknown.
	ValidationError ValidationOutcome = "error"
)

// ValidationResult reports a liveness probe against the platform.
type ValidationResult struct {
	CredentialID string            `json:"credential_id"`
	Platform     domain.Platform   `json:"platform"`
	Outcome      ValidationOutcome `json:"outcome"`
	Detail       string            `json:"detail,omitempty"`
}

// RefreshResult reports the outcome of a single credential refresh.
type RefreshResult struct {
	Credential *domain.CredentialSummary `json:"credential"`

	// Refreshed is false when the credential was already fresh and no
	// platform call was made.
	Refreshed bool `json:"refreshed"`

	// Error is set when this credential's refresh failed. A failure
	// never aborts a sweep over other credentials.
	Error string `json:"error,omitempty"`
}

// CredentialService manages stored platform credentials and their
// refresh lifecycle.
type CredentialService interface {
	// List returns summaries of the user's credentials, most recently
	// refreshed first. Secrets are never included.
	List(ctx context.Context, userID string) ([]*domain.CredentialSummary, error)

	// Get retrieves a credential summary by ID.
	Get(ctx context.Context, userID, id string) (*domain.CredentialSummary, error)

	// Delete removes a credential permanently.
	Delete(ctx context.Context, userID, id string) error

	// Refresh refreshes a single credential's access token. Concurrent
	// calls for the same credential are coalesced into one platform
	// request. Returns domain.ErrNoRefreshToken when the platform
	// issued no refresh token.
	Refresh(ctx context.Context, userID, id string) (*RefreshResult, error)

	// RefreshExpiring refreshes every credential of the user that is
	// within its refresh margin and carries a refresh token. Failures
	// are reported per credential, a single failure does not stop the
	// sweep.
	RefreshExpiring(ctx context.Context, userID string) ([]*RefreshResult, error)

	// EnsureFresh returns the decrypted access token for an active
	// credential, refreshing it first when it is expired or within a
	// short window of expiry (domain.RefreshAhead). This is the path
	// the dispatcher uses before every platform call, so the trigger
	// window is deliberately narrow; proactive wide-margin refresh is
	// Refresh and RefreshExpiring territory.
	EnsureFresh(ctx context.Context, id string) (*domain.Credential, string, error)

	// Validate probes the platform with the credential's token.
	Validate(ctx context.Context, userID, id string) (*ValidationResult, error)
}
