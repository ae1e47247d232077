package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
	"github.com/pulsehub-labs/pulsehub-core/internal/platforms"
)

// Ensure dispatchService implements DispatchService
var _ driving.DispatchService = (*dispatchService)(nil)

// DispatchServiceConfig holds configuration for the dispatch service.
type DispatchServiceConfig struct {
	// Store resolves the user's active credential per platform.
	Store driven.CredentialStore

	// Credentials ensures tokens are fresh before a call.
	Credentials driving.CredentialService

	// API performs the platform calls.
	API driven.PlatformAPI

	// Registry validates that the operation exists on the platform.
	Registry *platforms.Registry

	Logger *slog.Logger
}

// dispatchService routes logical operations to platform APIs.
// Every check that can fail the call runs before any network I/O.
type dispatchService struct {
	store       driven.CredentialStore
	credentials driving.CredentialService
	api         driven.PlatformAPI
	registry    *platforms.Registry
	logger      *slog.Logger
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(cfg DispatchServiceConfig) driving.DispatchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatchService{
		store:       cfg.Store,
		credentials: cfg.Credentials,
		api:         cfg.API,
		registry:    cfg.Registry,
		logger:      logger,
	}
}

// Dispatch resolves the active credential, ensures its token is fresh,
// and performs the platform call.
func (s *dispatchService) Dispatch(ctx context.Context, req driving.DispatchRequest) (*driven.PlatformResponse, error) {
	if _, err := s.registry.ResolveOperation(req.Platform, req.Operation); err != nil {
		return nil, err
	}

	cred, err := s.resolveCredential(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if limited, retryAfter := cred.RateLimited(now); limited {
		return nil, &domain.RateLimitedError{
			Platform:   req.Platform,
			RetryAfter: retryAfter,
		}
	}
	if cred.IsExpired() && !cred.HasRefreshToken() {
		return nil, domain.ErrCredentialUnusable
	}

	fresh, accessToken, err := s.credentials.EnsureFresh(ctx, cred.ID)
	if err != nil {
		return nil, err
	}

	resp, err := s.api.Call(ctx, req.Platform, req.Operation, accessToken, req.Payload)
	if err != nil {
		return nil, err
	}

	// Best-effort bookkeeping, absence of headers never clobbers the
	// last known window
	if resp.RateLimit != nil {
		remaining := resp.RateLimit.Remaining
		reset := resp.RateLimit.Reset
		patch := &domain.CredentialPatch{
			SetRateLimit:       true,
			RateLimitRemaining: &remaining,
			RateLimitReset:     &reset,
		}
		if _, err := s.store.Update(ctx, fresh.ID, patch); err != nil {
			s.logger.Warn("failed to record rate-limit state",
				"credential_id", fresh.ID,
				"platform", req.Platform,
				"error", err)
		}
	}

	return resp, nil
}

// resolveCredential loads the credential the call runs on: the one
// named by CredentialID, or the caller's active credential for the
// platform when no id is given. Foreign and cross-platform
// credentials are indistinguishable from missing ones.
func (s *dispatchService) resolveCredential(ctx context.Context, req driving.DispatchRequest) (*domain.Credential, error) {
	if req.CredentialID == "" {
		cred, err := s.store.FindActive(ctx, req.UserID, req.Platform)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("no active %s credential: %w", req.Platform, domain.ErrCredentialUnusable)
			}
			return nil, err
		}
		return cred, nil
	}

	cred, err := s.store.Get(ctx, req.CredentialID)
	if err != nil {
		return nil, err
	}
	if cred.UserID != req.UserID || cred.Platform != req.Platform {
		return nil, domain.ErrNotFound
	}
	if !cred.Active {
		return nil, domain.ErrCredentialUnusable
	}
	return cred, nil
}
