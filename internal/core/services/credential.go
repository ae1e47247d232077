package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
	"github.com/pulsehub-labs/pulsehub-core/internal/platforms"
)

// Ensure credentialService implements CredentialService
var _ driving.CredentialService = (*credentialService)(nil)

// refreshLockPrefix namespaces refresh locks per credential.
const refreshLockPrefix = "refresh:"

// CredentialServiceConfig holds configuration for the credential service.
type CredentialServiceConfig struct {
	// Store is the source of truth for credentials.
	Store driven.CredentialStore

	// Gateway performs token refresh calls against the platforms.
	Gateway driven.OAuthGateway

	// API performs liveness probes.
	API driven.PlatformAPI

	// Registry resolves platform defaults such as token lifetime.
	Registry *platforms.Registry

	// Lock is optional. When configured, at most one refresh per
	// credential runs across all instances.
	Lock driven.DistributedLock

	Logger *slog.Logger

	// RefreshMargin is how long before expiry a credential becomes a
	// refresh candidate. Defaults to domain.DefaultRefreshMargin.
	RefreshMargin time.Duration

	// LockTTL bounds how long a crashed instance can block refreshes.
	// Defaults to 30 seconds.
	LockTTL time.Duration
}

// credentialService implements the CredentialService interface.
// Concurrent refreshes of the same credential are coalesced in-process
// through singleflight; the distributed lock covers other instances.
type credentialService struct {
	store    driven.CredentialStore
	gateway  driven.OAuthGateway
	api      driven.PlatformAPI
	registry *platforms.Registry
	lock     driven.DistributedLock
	logger   *slog.Logger
	margin   time.Duration
	lockTTL  time.Duration

	refreshGroup singleflight.Group
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(cfg CredentialServiceConfig) driving.CredentialService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = domain.DefaultRefreshMargin
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &credentialService{
		store:    cfg.Store,
		gateway:  cfg.Gateway,
		api:      cfg.API,
		registry: cfg.Registry,
		lock:     cfg.Lock,
		logger:   logger,
		margin:   margin,
		lockTTL:  lockTTL,
	}
}

// List returns summaries of the user's credentials, most recently
// refreshed first.
func (s *credentialService) List(ctx context.Context, userID string) ([]*domain.CredentialSummary, error) {
	creds, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]*domain.CredentialSummary, 0, len(creds))
	for _, cred := range creds {
		summaries = append(summaries, cred.ToSummary(now, s.margin))
	}
	return summaries, nil
}

// Get retrieves a credential summary by ID.
func (s *credentialService) Get(ctx context.Context, userID, id string) (*domain.CredentialSummary, error) {
	cred, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return cred.ToSummary(time.Now(), s.margin), nil
}

// Delete removes a credential permanently.
func (s *credentialService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.getOwned(ctx, userID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Refresh refreshes a single credential's access token. A credential
// that is not yet within its refresh margin is returned untouched.
func (s *credentialService) Refresh(ctx context.Context, userID, id string) (*driving.RefreshResult, error) {
	cred, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if cred.Status(now, s.margin) == domain.TokenStatusActive {
		return &driving.RefreshResult{
			Credential: cred.ToSummary(now, s.margin),
			Refreshed:  false,
		}, nil
	}

	refreshed, err := s.refreshCoalesced(ctx, cred.ID)
	if err != nil {
		return nil, err
	}

	return &driving.RefreshResult{
		Credential: refreshed.ToSummary(time.Now(), s.margin),
		Refreshed:  true,
	}, nil
}

// RefreshExpiring refreshes every credential of the user that is
// within its refresh margin and carries a refresh token.
func (s *credentialService) RefreshExpiring(ctx context.Context, userID string) ([]*driving.RefreshResult, error) {
	creds, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var results []*driving.RefreshResult
	for _, cred := range creds {
		if !cred.Active || cred.Status(now, s.margin) == domain.TokenStatusActive {
			continue
		}
		if !cred.HasRefreshToken() {
			continue
		}

		refreshed, err := s.refreshCoalesced(ctx, cred.ID)
		if err != nil {
			s.logger.Warn("credential refresh failed",
				"credential_id", cred.ID,
				"platform", cred.Platform,
				"error", err)
			results = append(results, &driving.RefreshResult{
				Credential: cred.ToSummary(now, s.margin),
				Refreshed:  false,
				Error:      err.Error(),
			})
			continue
		}

		results = append(results, &driving.RefreshResult{
			Credential: refreshed.ToSummary(time.Now(), s.margin),
			Refreshed:  true,
		})
	}
	return results, nil
}

// EnsureFresh returns the decrypted access token for an active
// credential, refreshing it first when it is within RefreshAhead of
// expiry. The wide status margin is deliberately not used here: a
// platform with a 2h token lifetime would otherwise pay an outbound
// refresh on every single dispatch.
func (s *credentialService) EnsureFresh(ctx context.Context, id string) (*domain.Credential, string, error) {
	cred, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !cred.Active {
		return nil, "", domain.ErrCredentialUnusable
	}

	now := time.Now()
	if !cred.NeedsRefresh(now) {
		return cred, cred.Secrets.AccessToken, nil
	}

	expired := !now.Before(cred.ExpiresAt)
	if !cred.HasRefreshToken() {
		// A token inside the refresh window but not yet expired is
		// usable as-is
		if !expired {
			return cred, cred.Secrets.AccessToken, nil
		}
		return nil, "", domain.ErrNoRefreshToken
	}

	refreshed, err := s.refreshCoalesced(ctx, id)
	if err != nil {
		// A still-valid token survives a failed early refresh
		if !expired {
			s.logger.Warn("early refresh failed, using current token",
				"credential_id", id, "error", err)
			return cred, cred.Secrets.AccessToken, nil
		}
		return nil, "", err
	}
	return refreshed, refreshed.Secrets.AccessToken, nil
}

// Validate probes the platform with the credential's token.
func (s *credentialService) Validate(ctx context.Context, userID, id string) (*driving.ValidationResult, error) {
	cred, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	result := &driving.ValidationResult{
		CredentialID: cred.ID,
		Platform:     cred.Platform,
	}

	valid, err := s.api.Probe(ctx, cred.Platform, cred.Secrets.AccessToken)
	switch {
	case err != nil:
		// The check itself failed, this says nothing about the token
		result.Outcome = driving.ValidationError
		result.Detail = err.Error()
	case valid:
		result.Outcome = driving.ValidationValid
	default:
		result.Outcome = driving.ValidationInvalid
		result.Detail = "the platform rejected the token"
	}
	return result, nil
}

// getOwned loads a credential and verifies ownership. Foreign
// credentials are indistinguishable from missing ones.
func (s *credentialService) getOwned(ctx context.Context, userID, id string) (*domain.Credential, error) {
	cred, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cred.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return cred, nil
}

// refreshCoalesced funnels concurrent refreshes of one credential into
// a single platform request.
func (s *credentialService) refreshCoalesced(ctx context.Context, id string) (*domain.Credential, error) {
	v, err, _ := s.refreshGroup.Do(id, func() (interface{}, error) {
		return s.doRefresh(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Credential), nil
}

// doRefresh performs one refresh under the distributed lock.
func (s *credentialService) doRefresh(ctx context.Context, id string) (*domain.Credential, error) {
	if s.lock != nil {
		lockName := refreshLockPrefix + id
		acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !acquired {
			// Another instance holds the lock. If it already finished,
			// the stored credential is fresh and we can use it.
			cred, err := s.store.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if cred.Status(time.Now(), s.margin) == domain.TokenStatusActive {
				return cred, nil
			}
			return nil, domain.ErrRefreshInProgress
		}
		defer func() {
			if err := s.lock.Release(ctx, lockName); err != nil {
				s.logger.Warn("failed to release refresh lock", "name", lockName, "error", err)
			}
		}()
	}

	// Re-read inside the lock, another flight may have refreshed
	cred, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cred.Status(time.Now(), s.margin) == domain.TokenStatusActive {
		return cred, nil
	}
	if !cred.HasRefreshToken() {
		return nil, domain.ErrNoRefreshToken
	}

	cfg, err := s.registry.Get(cred.Platform)
	if err != nil {
		return nil, err
	}

	token, err := s.gateway.Refresh(ctx, cred.Platform, cred.Secrets.RefreshToken)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(cfg.DefaultTokenLifetime)
	if token.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	patch := &domain.CredentialPatch{
		AccessToken:   &token.AccessToken,
		ExpiresAt:     &expiresAt,
		LastRefreshed: &now,

		// Rate-limit bookkeeping is stale after a token change
		SetRateLimit: true,
	}
	// Some platforms rotate the refresh token, some omit it. Omission
	// keeps the stored one.
	if token.RefreshToken != "" {
		patch.RefreshToken = &token.RefreshToken
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("store refreshed credential: %w", err)
	}

	s.logger.Info("credential refreshed",
		"credential_id", id,
		"platform", updated.Platform,
		"expires_at", updated.ExpiresAt)

	return updated, nil
}
