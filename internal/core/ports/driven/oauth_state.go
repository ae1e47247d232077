package driven

import (
	"context"
	"time"
)

// OAuthState represents a pending OAuth authorization flow.
// Used for CSRF protection and PKCE code verifier storage. The state
// is issued server-side and never trusted from the client beyond the
// round-trip through the platform's redirect.
type OAuthState struct {
	// State is a cryptographically random string used for CSRF protection.
	State string

	// Platform is the platform the flow was started for.
	Platform string

	// UserID is the dashboard user who initiated the connection.
	UserID string

	// DisplayName is an optional label chosen when starting the flow.
	DisplayName string

	// CodeVerifier is the PKCE code verifier (plain text, not hashed).
	// Empty for platforms whose exchange style does not require PKCE.
	CodeVerifier string

	// RedirectURI is the callback URL registered with the platform.
	RedirectURI string

	// CreatedAt is when the state was created.
	CreatedAt time.Time

	// ExpiresAt is when the state expires (typically 10 minutes).
	ExpiresAt time.Time
}

// OAuthStateStore manages OAuth flow state for CSRF protection.
// States are single-use and expire after a short period.
type OAuthStateStore interface {
	// Save stores a new OAuth state.
	Save(ctx context.Context, state *OAuthState) error

	// GetAndDelete atomically retrieves and deletes the state,
	// ensuring single-use semantics.
	// Returns nil, nil if the state doesn't exist or has expired.
	GetAndDelete(ctx context.Context, state string) (*OAuthState, error)

	// Cleanup removes expired states. Called periodically by the
	// janitor to drop states from abandoned flows.
	Cleanup(ctx context.Context) error
}
