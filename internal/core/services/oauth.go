package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
	"github.com/pulsehub-labs/pulsehub-core/internal/platforms"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// Registry resolves platform endpoints and app credentials.
	Registry *platforms.Registry

	// StateStore manages OAuth flow state.
	StateStore driven.OAuthStateStore

	// CredentialStore persists exchanged credentials.
	CredentialStore driven.CredentialStore

	// Gateway performs the authorization URL and token exchange calls.
	Gateway driven.OAuthGateway

	// StateTTL bounds how long an issued state is accepted.
	// Defaults to 10 minutes.
	StateTTL time.Duration
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	registry        *platforms.Registry
	stateStore      driven.OAuthStateStore
	credentialStore driven.CredentialStore
	gateway         driven.OAuthGateway
	stateTTL        time.Duration
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &oauthService{
		registry:        cfg.Registry,
		stateStore:      cfg.StateStore,
		credentialStore: cfg.CredentialStore,
		gateway:         cfg.Gateway,
		stateTTL:        ttl,
	}
}

// Authorize starts an OAuth authorization flow.
// It generates state (and PKCE credentials where the platform requires
// them), stores the pending flow, and returns the authorization URL.
func (s *oauthService) Authorize(ctx context.Context, req driving.AuthorizeRequest) (*driving.AuthorizeResponse, error) {
	cfg, err := s.registry.Get(req.Platform)
	if err != nil {
		return nil, driving.ErrOAuthPlatformNotFound
	}
	creds, err := s.registry.GetCredentials(req.Platform)
	if err != nil {
		return nil, driving.ErrOAuthPlatformNotFound
	}

	// State doubles as the CSRF token for the whole flow
	state, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	var codeVerifier, codeChallenge string
	if cfg.Exchange.RequiresPKCE {
		codeVerifier, err = generateRandomString(64)
		if err != nil {
			return nil, fmt.Errorf("generate code verifier: %w", err)
		}
		codeChallenge = generateCodeChallenge(codeVerifier)
	}

	expiresAt := time.Now().Add(s.stateTTL)
	oauthState := &driven.OAuthState{
		State:        state,
		Platform:     string(req.Platform),
		UserID:       req.UserID,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CodeVerifier: codeVerifier,
		RedirectURI:  creds.RedirectURI,
		CreatedAt:    time.Now(),
		ExpiresAt:    expiresAt,
	}

	if err := s.stateStore.Save(ctx, oauthState); err != nil {
		return nil, fmt.Errorf("save oauth state: %w", err)
	}

	authURL, err := s.gateway.BuildAuthURL(req.Platform, state, codeChallenge)
	if err != nil {
		return nil, fmt.Errorf("build auth url: %w", err)
	}

	return &driving.AuthorizeResponse{
		AuthorizationURL: authURL,
		State:            state,
		ExpiresAt:        expiresAt.Format(time.RFC3339),
	}, nil
}

// Callback handles the OAuth callback from the platform.
// It validates state, exchanges the code for tokens, and stores the
// credential. An unknown or expired state writes nothing.
func (s *oauthService) Callback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	if req.Error != "" {
		if req.Error == "access_denied" {
			return nil, driving.ErrOAuthAccessDenied
		}
		return nil, &driving.OAuthError{
			Code:        req.Error,
			Description: req.ErrorDescription,
		}
	}

	// Validate and consume state (single-use)
	oauthState, err := s.stateStore.GetAndDelete(ctx, req.State)
	if err != nil {
		return nil, fmt.Errorf("get oauth state: %w", err)
	}
	if oauthState == nil {
		return nil, driving.ErrOAuthInvalidState
	}

	platform, err := domain.ParsePlatform(oauthState.Platform)
	if err != nil {
		return nil, driving.ErrOAuthPlatformNotFound
	}
	cfg, err := s.registry.Get(platform)
	if err != nil {
		return nil, driving.ErrOAuthPlatformNotFound
	}

	token, err := s.gateway.Exchange(ctx, platform, req.Code, oauthState.CodeVerifier)
	if err != nil {
		return nil, &driving.OAuthError{
			Code:        "exchange_failed",
			Description: err.Error(),
		}
	}

	// Profile fetch is best-effort, it only improves the default label
	var accountName string
	if profile, err := s.gateway.FetchProfile(ctx, platform, token.AccessToken); err == nil {
		accountName = profile.Name
		if accountName == "" {
			accountName = profile.ID
		}
	}

	displayName := oauthState.DisplayName
	if displayName == "" {
		displayName = platform.DisplayName()
		if accountName != "" {
			displayName = fmt.Sprintf("%s (%s)", platform.DisplayName(), accountName)
		}
	}

	now := time.Now()
	expiresAt := now.Add(cfg.DefaultTokenLifetime)
	if token.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	scopes := splitScopes(token.Scope)
	if len(scopes) == 0 {
		scopes = cfg.DefaultScopes
	}

	credential := &domain.Credential{
		ID:          generateCredentialID(),
		Platform:    platform,
		UserID:      oauthState.UserID,
		DisplayName: displayName,
		Secrets: &domain.CredentialSecrets{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
		},
		Scopes:        scopes,
		ExpiresAt:     expiresAt,
		Active:        true,
		LastRefreshed: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.credentialStore.Put(ctx, credential); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	message := fmt.Sprintf("Connected to %s", platform.DisplayName())
	if accountName != "" {
		message = fmt.Sprintf("Connected to %s as %s", platform.DisplayName(), accountName)
	}

	return &driving.CallbackResponse{
		Credential: credential.ToSummary(now, domain.DefaultRefreshMargin),
		Message:    message,
	}, nil
}

// generateRandomString generates a cryptographically secure random string.
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}

// generateCodeChallenge creates a PKCE code challenge from a verifier (S256 method).
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// generateCredentialID generates a unique credential ID.
func generateCredentialID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return "cred_" + hex.EncodeToString(bytes)
}

// splitScopes splits a space or comma separated scope string.
func splitScopes(scope string) []string {
	if scope == "" {
		return nil
	}
	fields := strings.FieldsFunc(scope, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
