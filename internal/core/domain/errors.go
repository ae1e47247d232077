package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrUnknownPlatform indicates a platform outside the supported set.
	// Terminal and non-retryable everywhere it surfaces.
	ErrUnknownPlatform = errors.New("unknown platform")

	// ErrPlatformNotConfigured indicates the platform is known but its
	// client id/secret/redirect URI are missing from the environment
	ErrPlatformNotConfigured = errors.New("platform not configured")

	// ErrNoRefreshToken indicates the credential cannot be refreshed
	// and the user must re-authorize
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshInProgress indicates another process holds the refresh
	// lock for this credential
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrCredentialUnusable indicates the credential is deactivated or
	// expired; the call was blocked before any network I/O
	ErrCredentialUnusable = errors.New("credential unusable")

	// ErrUnsupportedOperation indicates the logical operation has no
	// endpoint on this platform - a programming error, not user-facing
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrTokenExpired indicates the API auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the API auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ExchangeError is returned when a platform rejects the authorization
// code exchange. The platform's message is carried verbatim.
type ExchangeError struct {
	Platform    Platform
	Code        string
	Description string
}

func (e *ExchangeError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s token exchange failed: %s - %s", e.Platform, e.Code, e.Description)
	}
	return fmt.Sprintf("%s token exchange failed: %s", e.Platform, e.Code)
}

// RefreshError is returned when a platform rejects a token refresh.
// The previously stored credential stays valid until its own expiry.
type RefreshError struct {
	Platform    Platform
	Code        string
	Description string
}

func (e *RefreshError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s token refresh failed: %s - %s", e.Platform, e.Code, e.Description)
	}
	return fmt.Sprintf("%s token refresh failed: %s", e.Platform, e.Code)
}

// DispatchError carries the platform's error payload verbatim so
// callers can surface it for support diagnostics.
type DispatchError struct {
	Platform   Platform
	Operation  Operation
	StatusCode int
	Body       string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Platform, e.Operation, e.StatusCode, e.Body)
}

// RateLimitedError is returned when the last known rate-limit window
// is exhausted. No network call was made.
type RateLimitedError struct {
	Platform   Platform
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s rate limit exhausted, retry after %s", e.Platform, e.RetryAfter.Round(time.Second))
}
