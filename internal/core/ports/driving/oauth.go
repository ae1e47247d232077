package driving

import (
	"context"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// OAuthService handles the authorization flow that connects a social
// platform account. It issues authorization URLs with CSRF state and
// turns provider callbacks into stored credentials.
type OAuthService interface {
	// Authorize starts an authorization flow for a platform.
	// Returns an authorization URL to redirect the user to.
	// The state parameter is stored for CSRF validation during callback.
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)

	// Callback handles the OAuth callback from the platform.
	// It exchanges the authorization code for tokens and stores the
	// resulting credential, deactivating any prior credential for the
	// same platform and user.
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)
}

// AuthorizeRequest represents a request to start an OAuth flow.
// @Description Request to start OAuth authorization flow
type AuthorizeRequest struct {
	// Platform is the social platform to connect (facebook, twitter, ...).
	Platform domain.Platform `json:"platform" example:"twitter"`

	// UserID is the dashboard user initiating the connection.
	UserID string `json:"-"`

	// DisplayName is an optional label for the connection.
	// If not provided, defaults to the platform account name.
	DisplayName string `json:"display_name,omitempty" example:"Brand account"`
}

// AuthorizeResponse contains the authorization URL and state.
// @Description Response containing the OAuth authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is the URL to redirect the user to for authorization.
	AuthorizationURL string `json:"authorization_url" example:"https://twitter.com/i/oauth2/authorize?client_id=..."`

	// State is the CSRF token that will be returned in the callback.
	// Provided for reference only, the frontend does not track it.
	State string `json:"state" example:"abc123xyz"`

	// ExpiresAt is when the authorization state expires (typically 10 minutes).
	ExpiresAt string `json:"expires_at" example:"2024-01-15T10:10:00Z"`
}

// CallbackRequest represents the OAuth callback from the platform.
// @Description OAuth callback parameters from platform redirect
type CallbackRequest struct {
	// Code is the authorization code from the platform.
	Code string `json:"code" example:"abc123"`

	// State is the CSRF token returned by the platform.
	State string `json:"state" example:"abc123xyz"`

	// Error is set if the platform returned an error.
	Error string `json:"error,omitempty" example:"access_denied"`

	// ErrorDescription provides details about the error.
	ErrorDescription string `json:"error_description,omitempty" example:"The user denied access"`
}

// CallbackResponse contains the result of the OAuth callback.
// @Description Response after successful OAuth authorization
type CallbackResponse struct {
	// Credential is the stored credential summary.
	Credential *domain.CredentialSummary `json:"credential"`

	// Message provides a human-readable status message.
	Message string `json:"message" example:"Connected to Twitter as @pulsehub"`
}

// OAuthError represents an OAuth-specific error.
type OAuthError struct {
	Code        string `json:"error" example:"invalid_state"`
	Description string `json:"error_description" example:"The state parameter is invalid or expired"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Common OAuth errors
var (
	ErrOAuthInvalidState       = &OAuthError{Code: "invalid_state", Description: "The state parameter is invalid or expired"}
	ErrOAuthPlatformNotFound   = &OAuthError{Code: "platform_not_found", Description: "The platform is not configured"}
	ErrOAuthAccessDenied       = &OAuthError{Code: "access_denied", Description: "The user denied access"}
	ErrOAuthExchangeFailed     = &OAuthError{Code: "exchange_failed", Description: "Failed to exchange authorization code for tokens"}
	ErrOAuthProfileFetchFailed = &OAuthError{Code: "profile_failed", Description: "Failed to fetch account information"}
)
