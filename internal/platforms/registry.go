package platforms

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
)

// ExchangeStyle encodes how a platform's token endpoint wants to be
// called. Exchange, refresh and dispatch interpret it generically so
// platform quirks live here as data instead of per-call-site branches.
type ExchangeStyle struct {
	// Method is the HTTP method for the token request (GET or POST).
	Method string

	// CredsInBasicHeader sends client_id/client_secret as an HTTP
	// Basic Authorization header instead of request parameters.
	CredsInBasicHeader bool

	// CredsInQuery puts all token-request parameters in the query
	// string (Facebook's GET-style exchange). Otherwise parameters go
	// in a form-encoded body.
	CredsInQuery bool

	// RequiresPKCE adds code_challenge/code_verifier to the flow.
	RequiresPKCE bool
}

// Config is one platform's static endpoint and quirk table.
type Config struct {
	Platform domain.Platform

	AuthorizationURL string
	TokenURL         string
	RefreshURL       string
	APIBaseURL       string

	DefaultScopes []string
	Exchange      ExchangeStyle

	// DefaultTokenLifetime is assigned when the platform's token reply
	// omits expires_in. Taken from each platform's documentation.
	DefaultTokenLifetime time.Duration

	// Operations maps logical operations to API paths under APIBaseURL.
	Operations map[domain.Operation]string

	// ProbePath is the cheap authenticated identity endpoint used for
	// liveness validation.
	ProbePath string

	// ExtraAPIHeaders are added to every API request (LinkedIn's
	// protocol version header and the like).
	ExtraAPIHeaders map[string]string

	// Rate-limit response header names, empty when the platform does
	// not expose them.
	RateLimitRemainingHeader string
	RateLimitResetHeader     string
}

// Credentials holds a platform's OAuth app settings from the
// environment.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// configs is the static quirk table. URLs and lifetimes follow each
// platform's published OAuth documentation.
var configs = map[domain.Platform]*Config{
	domain.PlatformFacebook: {
		Platform:         domain.PlatformFacebook,
		AuthorizationURL: "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:         "https://graph.facebook.com/v19.0/oauth/access_token",
		RefreshURL:       "https://graph.facebook.com/v19.0/oauth/access_token",
		APIBaseURL:       "https://graph.facebook.com/v19.0",
		DefaultScopes:    []string{"public_profile", "pages_manage_posts", "pages_read_engagement", "read_insights"},
		Exchange: ExchangeStyle{
			Method:       "GET",
			CredsInQuery: true,
		},
		// Long-lived user tokens last about 60 days and the exchange
		// reply frequently omits expires_in.
		DefaultTokenLifetime: 60 * 24 * time.Hour,
		Operations: map[domain.Operation]string{
			domain.OperationProfile:   "/me?fields=id,name",
			domain.OperationPost:      "/me/feed",
			domain.OperationAnalytics: "/me/insights",
		},
		ProbePath: "/me?fields=id",
		// Graph API reports usage via X-App-Usage JSON, not remaining
		// counts, so no generic headers to parse.
	},
	domain.PlatformTwitter: {
		Platform:         domain.PlatformTwitter,
		AuthorizationURL: "https://twitter.com/i/oauth2/authorize",
		TokenURL:         "https://api.twitter.com/2/oauth2/token",
		RefreshURL:       "https://api.twitter.com/2/oauth2/token",
		APIBaseURL:       "https://api.twitter.com/2",
		DefaultScopes:    []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		Exchange: ExchangeStyle{
			Method:             "POST",
			CredsInBasicHeader: true,
			RequiresPKCE:       true,
		},
		DefaultTokenLifetime: 2 * time.Hour,
		Operations: map[domain.Operation]string{
			domain.OperationProfile: "/users/me",
			domain.OperationPost:    "/tweets",
		},
		ProbePath:                "/users/me",
		RateLimitRemainingHeader: "x-rate-limit-remaining",
		RateLimitResetHeader:     "x-rate-limit-reset",
	},
	domain.PlatformInstagram: {
		Platform:         domain.PlatformInstagram,
		AuthorizationURL: "https://api.instagram.com/oauth/authorize",
		TokenURL:         "https://api.instagram.com/oauth/access_token",
		RefreshURL:       "https://graph.instagram.com/refresh_access_token",
		APIBaseURL:       "https://graph.instagram.com",
		DefaultScopes:    []string{"user_profile", "user_media"},
		Exchange: ExchangeStyle{
			Method: "POST",
		},
		DefaultTokenLifetime: 60 * 24 * time.Hour,
		Operations: map[domain.Operation]string{
			domain.OperationProfile: "/me?fields=id,username",
			domain.OperationPost:    "/me/media",
		},
		ProbePath: "/me?fields=id",
	},
	domain.PlatformLinkedIn: {
		Platform:         domain.PlatformLinkedIn,
		AuthorizationURL: "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:         "https://www.linkedin.com/oauth/v2/accessToken",
		RefreshURL:       "https://www.linkedin.com/oauth/v2/accessToken",
		APIBaseURL:       "https://api.linkedin.com/v2",
		DefaultScopes:    []string{"openid", "profile", "w_member_social"},
		Exchange: ExchangeStyle{
			Method: "POST",
		},
		DefaultTokenLifetime: 60 * 24 * time.Hour,
		Operations: map[domain.Operation]string{
			domain.OperationProfile: "/userinfo",
			domain.OperationPost:    "/ugcPosts",
		},
		ProbePath: "/userinfo",
		ExtraAPIHeaders: map[string]string{
			"X-Restli-Protocol-Version": "2.0.0",
		},
	},
	domain.PlatformYouTube: {
		Platform:         domain.PlatformYouTube,
		AuthorizationURL: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:         "https://oauth2.googleapis.com/token",
		RefreshURL:       "https://oauth2.googleapis.com/token",
		APIBaseURL:       "https://www.googleapis.com/youtube/v3",
		DefaultScopes:    []string{"https://www.googleapis.com/auth/youtube.readonly", "https://www.googleapis.com/auth/youtube.upload"},
		Exchange: ExchangeStyle{
			Method: "POST",
		},
		DefaultTokenLifetime: time.Hour,
		Operations: map[domain.Operation]string{
			domain.OperationProfile:   "/channels?part=snippet&mine=true",
			domain.OperationAnalytics: "/channels?part=statistics&mine=true",
		},
		ProbePath: "/channels?part=id&mine=true",
	},
}

// Registry resolves platform configuration and OAuth app credentials.
// Lookup is read-only after construction and safe for concurrent use.
type Registry struct {
	configs map[domain.Platform]*Config
	creds   map[domain.Platform]Credentials
}

// NewRegistry builds a registry, reading each platform's OAuth app
// credentials from {PLATFORM}_CLIENT_ID, {PLATFORM}_CLIENT_SECRET and
// {PLATFORM}_REDIRECT_URI. Platforms with incomplete settings stay
// registered but fail with ErrPlatformNotConfigured when a flow is
// started for them.
func NewRegistry() *Registry {
	r := &Registry{configs: configs, creds: make(map[domain.Platform]Credentials)}
	for platform := range configs {
		prefix := strings.ToUpper(string(platform))
		r.creds[platform] = Credentials{
			ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
			ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
			RedirectURI:  os.Getenv(prefix + "_REDIRECT_URI"),
		}
	}
	return r
}

// NewRegistryWithCredentials builds a registry over the standard
// platform table with explicit credentials, used in tests.
func NewRegistryWithCredentials(creds map[domain.Platform]Credentials) *Registry {
	return &Registry{configs: configs, creds: creds}
}

// NewRegistryWithConfigs builds a registry over a custom platform
// table, used in tests that point endpoints at local stub servers.
func NewRegistryWithConfigs(custom map[domain.Platform]*Config, creds map[domain.Platform]Credentials) *Registry {
	return &Registry{configs: custom, creds: creds}
}

// Get returns the platform's static configuration.
func (r *Registry) Get(platform domain.Platform) (*Config, error) {
	cfg, ok := r.configs[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, platform)
	}
	return cfg, nil
}

// GetCredentials returns the platform's OAuth app credentials.
// Returns ErrPlatformNotConfigured when any required setting is
// missing, so a misconfigured platform fails clearly instead of as an
// opaque downstream HTTP error.
func (r *Registry) GetCredentials(platform domain.Platform) (*Credentials, error) {
	if _, ok := r.configs[platform]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, platform)
	}
	creds, ok := r.creds[platform]
	if !ok || creds.ClientID == "" || creds.ClientSecret == "" || creds.RedirectURI == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlatformNotConfigured, platform)
	}
	return &creds, nil
}

// Configured reports whether a platform has complete OAuth app
// credentials.
func (r *Registry) Configured(platform domain.Platform) bool {
	_, err := r.GetCredentials(platform)
	return err == nil
}

// List returns the configurations of all known platforms, in
// domain.AllPlatforms order.
func (r *Registry) List() []*Config {
	result := make([]*Config, 0, len(r.configs))
	for _, platform := range domain.AllPlatforms() {
		if cfg, ok := r.configs[platform]; ok {
			result = append(result, cfg)
		}
	}
	return result
}

// ResolveOperation maps a logical operation to the platform's API
// path. Returns ErrUnsupportedOperation when the platform has no
// endpoint for it.
func (r *Registry) ResolveOperation(platform domain.Platform, op domain.Operation) (string, error) {
	cfg, err := r.Get(platform)
	if err != nil {
		return "", err
	}
	path, ok := cfg.Operations[op]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", domain.ErrUnsupportedOperation, op, platform)
	}
	return path, nil
}
