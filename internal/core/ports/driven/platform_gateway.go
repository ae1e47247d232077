package driven

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// OAuthToken is a platform token endpoint reply, normalized.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int
}

// ProfileInfo identifies the connected account on the platform.
type ProfileInfo struct {
	ID   string
	Name string
}

// RateLimitInfo is parsed from a platform's rate-limit response
// headers. Platforms that expose no such headers yield nil.
type RateLimitInfo struct {
	Remaining int
	Reset     time.Time
}

// PlatformResponse is a successful dispatch result. Body is the
// platform's response payload, unmodified.
type PlatformResponse struct {
	StatusCode int
	Body       json.RawMessage
	RateLimit  *RateLimitInfo
}

// OAuthGateway performs the outbound OAuth legs against a platform's
// endpoints, interpreting each platform's exchange style from the
// registry. Exchange is never retried: authorization codes are
// single-use and expire quickly. Refresh retries once on 5xx/network
// failure.
type OAuthGateway interface {
	// BuildAuthURL constructs the authorization URL the user is sent to.
	BuildAuthURL(platform domain.Platform, state, codeChallenge string) (string, error)

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, platform domain.Platform, code, codeVerifier string) (*OAuthToken, error)

	// Refresh trades a refresh token for a new access token. The
	// reply's RefreshToken is empty when the platform did not rotate it.
	Refresh(ctx context.Context, platform domain.Platform, refreshToken string) (*OAuthToken, error)

	// FetchProfile fetches the connected account's identity.
	// Best-effort: exchange callers tolerate failure.
	FetchProfile(ctx context.Context, platform domain.Platform, accessToken string) (*ProfileInfo, error)
}

// PlatformAPI issues authenticated calls against a platform's API.
type PlatformAPI interface {
	// Call resolves the logical operation to the platform's endpoint
	// and performs the request with bearer auth plus any platform
	// specific headers from the registry. Retries once on 5xx/network
	// failure. Non-2xx after retries yields *domain.DispatchError.
	Call(ctx context.Context, platform domain.Platform, op domain.Operation, accessToken string, payload json.RawMessage) (*PlatformResponse, error)

	// Probe issues the cheap authenticated identity request used for
	// liveness validation. valid=false with nil err means the
	// platform rejected the token (401/403); a non-nil err means the
	// check itself failed and says nothing about the token.
	Probe(ctx context.Context, platform domain.Platform, accessToken string) (valid bool, err error)
}
