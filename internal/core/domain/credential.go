package domain

import "time"

// TokenStatus describes where a credential sits in its lifetime.
// It is recomputed from (now, ExpiresAt) on every read and never persisted.
type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusExpiring TokenStatus = "expiring"
	TokenStatusExpired  TokenStatus = "expired"
)

// DefaultRefreshMargin is how long before expiry a credential is
// reported as expiring and becomes a refresh candidate.
const DefaultRefreshMargin = 24 * time.Hour

// RefreshAhead is how close to expiry a token must be before the
// dispatch path refreshes it inline. Kept far shorter than
// DefaultRefreshMargin so short-lived tokens (some platforms issue
// 1-2 hour lifetimes) are not refreshed on every call.
const RefreshAhead = 5 * time.Minute

// Credential is one user's connection to one platform.
// At most one active credential exists per (UserID, Platform);
// reconnecting supersedes the previous one.
type Credential struct {
	ID          string   `json:"id"`
	Platform    Platform `json:"platform"`
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`

	// Secrets holds the decrypted token material. Populated when
	// fetching a single record from the store, nil when listing.
	Secrets *CredentialSecrets `json:"-"`

	Scopes        []string  `json:"scopes,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
	Active        bool      `json:"active"`
	LastRefreshed time.Time `json:"last_refreshed"`

	// Best-effort rate-limit bookkeeping from the platform's response
	// headers. nil means unknown, which is never an error.
	RateLimitRemaining *int       `json:"rate_limit_remaining,omitempty"`
	RateLimitReset     *time.Time `json:"rate_limit_reset,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CredentialSecrets contains decrypted token values.
// These are encrypted as a single blob before storage.
type CredentialSecrets struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// CredentialSummary is a safe view for listing: the access token is
// reduced to a masked prefix and the refresh token is omitted entirely.
type CredentialSummary struct {
	ID            string      `json:"id"`
	Platform      Platform    `json:"platform"`
	UserID        string      `json:"user_id"`
	DisplayName   string      `json:"display_name"`
	TokenPreview  string      `json:"token_preview"`
	Scopes        []string    `json:"scopes,omitempty"`
	Status        TokenStatus `json:"status"`
	ExpiresAt     time.Time   `json:"expires_at"`
	Active        bool        `json:"active"`
	LastRefreshed time.Time   `json:"last_refreshed"`
	CreatedAt     time.Time   `json:"created_at"`
}

// maskPrefixLen is how many leading characters of an access token are
// exposed in summaries.
const maskPrefixLen = 6

// MaskToken reduces a secret to a short recognisable prefix.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= maskPrefixLen {
		return token[:1] + "***"
	}
	return token[:maskPrefixLen] + "***"
}

// ToSummary converts a Credential to its safe listing view.
func (c *Credential) ToSummary(now time.Time, margin time.Duration) *CredentialSummary {
	preview := ""
	if c.Secrets != nil {
		preview = MaskToken(c.Secrets.AccessToken)
	}
	return &CredentialSummary{
		ID:            c.ID,
		Platform:      c.Platform,
		UserID:        c.UserID,
		DisplayName:   c.DisplayName,
		TokenPreview:  preview,
		Scopes:        c.Scopes,
		Status:        c.Status(now, margin),
		ExpiresAt:     c.ExpiresAt,
		Active:        c.Active,
		LastRefreshed: c.LastRefreshed,
		CreatedAt:     c.CreatedAt,
	}
}

// Status computes the lifecycle state as a pure function of now and
// the expiry. margin <= 0 falls back to DefaultRefreshMargin.
func (c *Credential) Status(now time.Time, margin time.Duration) TokenStatus {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	if !now.Before(c.ExpiresAt) {
		return TokenStatusExpired
	}
	if !now.Before(c.ExpiresAt.Add(-margin)) {
		return TokenStatusExpiring
	}
	return TokenStatusActive
}

// IsExpired returns true once the access token is past its expiry.
func (c *Credential) IsExpired() bool {
	return !time.Now().Before(c.ExpiresAt)
}

// NeedsRefresh reports whether the token should be refreshed before
// use: already expired or within RefreshAhead of expiry.
func (c *Credential) NeedsRefresh(now time.Time) bool {
	return !now.Add(RefreshAhead).Before(c.ExpiresAt)
}

// Usable reports whether the credential may be used for API calls:
// the operator kill switch is on and the token has not expired.
func (c *Credential) Usable(now time.Time) bool {
	return c.Active && now.Before(c.ExpiresAt)
}

// RateLimited reports whether the last known rate-limit window is
// exhausted, and if so how long until it resets. Unknown bookkeeping
// (nil fields) never blocks a call.
func (c *Credential) RateLimited(now time.Time) (bool, time.Duration) {
	if c.RateLimitRemaining == nil || c.RateLimitReset == nil {
		return false, 0
	}
	if *c.RateLimitRemaining > 0 {
		return false, 0
	}
	if !now.Before(*c.RateLimitReset) {
		return false, 0
	}
	return true, c.RateLimitReset.Sub(now)
}

// HasRefreshToken reports whether a refresh is possible at all.
func (c *Credential) HasRefreshToken() bool {
	return c.Secrets != nil && c.Secrets.RefreshToken != ""
}

// CredentialPatch is a field-level update applied by the lifecycle
// manager and the dispatcher. nil pointers leave the stored value
// untouched; in particular a nil RefreshToken keeps the previously
// stored refresh token (some platforms rotate it, some omit it).
type CredentialPatch struct {
	DisplayName   *string
	AccessToken   *string
	RefreshToken  *string
	Scopes        []string
	ExpiresAt     *time.Time
	Active        *bool
	LastRefreshed *time.Time

	// Rate-limit bookkeeping. Set* distinguishes "write these values
	// (possibly nil, meaning unknown)" from "leave untouched".
	SetRateLimit       bool
	RateLimitRemaining *int
	RateLimitReset     *time.Time
}
