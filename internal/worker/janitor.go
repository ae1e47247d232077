package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
)

const janitorLockName = "janitor"

// SessionCleaner removes expired sessions. Redis-backed session
// stores expire entries via TTL and do not need one.
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) error
}

// Janitor runs periodic maintenance: it drops expired OAuth states
// from abandoned flows, deletes expired sessions, and proactively
// refreshes credentials that are inside their refresh margin so
// dispatch rarely pays the refresh latency.
//
// For multi-instance deployments, configure a DistributedLock so only
// one instance sweeps per cycle.
type Janitor struct {
	states      driven.OAuthStateStore
	sessions    SessionCleaner // optional
	store       driven.CredentialStore
	credentials driving.CredentialService
	lock        driven.DistributedLock // optional
	logger      *slog.Logger

	interval time.Duration
	margin   time.Duration
	lockTTL  time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// JanitorConfig holds configuration for the janitor.
type JanitorConfig struct {
	States      driven.OAuthStateStore
	Sessions    SessionCleaner // Optional: nil when sessions expire via TTL
	Store       driven.CredentialStore
	Credentials driving.CredentialService
	Lock        driven.DistributedLock // Optional: multi-instance coordination
	Logger      *slog.Logger

	// SweepInterval is how often maintenance runs (default: 15m).
	SweepInterval time.Duration

	// RefreshMargin is how close to expiry a credential must be to
	// get refreshed proactively (default: domain.DefaultRefreshMargin).
	RefreshMargin time.Duration

	// LockTTL bounds how long a crashed instance can hold the sweep
	// lock (default: 2x SweepInterval).
	LockTTL time.Duration
}

// NewJanitor creates a new janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.SweepInterval
	if interval == 0 {
		interval = 15 * time.Minute
	}

	margin := cfg.RefreshMargin
	if margin == 0 {
		margin = domain.DefaultRefreshMargin
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	return &Janitor{
		states:      cfg.States,
		sessions:    cfg.Sessions,
		store:       cfg.Store,
		credentials: cfg.Credentials,
		lock:        cfg.Lock,
		logger:      logger,
		interval:    interval,
		margin:      margin,
		lockTTL:     lockTTL,
	}
}

// Start begins the janitor loop.
// It runs until Stop is called or context is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	j.logger.Info("janitor starting", "sweep_interval", j.interval)

	go j.run(ctx)

	return nil
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	close(j.stopCh)
	j.mu.Unlock()

	<-j.doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()

	j.logger.Info("janitor stopped")
}

// run is the main janitor loop.
func (j *Janitor) run(ctx context.Context) {
	defer close(j.doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run immediately on start
	j.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one maintenance pass. If a distributed lock is
// configured and held by another instance, the pass is skipped.
func (j *Janitor) Sweep(ctx context.Context) {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, janitorLockName, j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping sweep")
			return
		}
		defer func() {
			if err := j.lock.Release(ctx, janitorLockName); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	if err := j.states.Cleanup(ctx); err != nil {
		j.logger.Warn("failed to clean up oauth states", "error", err)
	}

	if j.sessions != nil {
		if err := j.sessions.DeleteExpired(ctx); err != nil {
			j.logger.Warn("failed to delete expired sessions", "error", err)
		}
	}

	j.refreshExpiring(ctx)
}

// refreshExpiring refreshes every active credential inside its
// refresh margin. A single failure never stops the sweep.
func (j *Janitor) refreshExpiring(ctx context.Context) {
	creds, err := j.store.ListExpiring(ctx, time.Now().Add(j.margin))
	if err != nil {
		j.logger.Error("failed to list expiring credentials", "error", err)
		return
	}
	if len(creds) == 0 {
		return
	}

	var refreshed, failed int
	for _, cred := range creds {
		if _, err := j.credentials.Refresh(ctx, cred.UserID, cred.ID); err != nil {
			// A peer instance refreshing the same credential is not
			// a failure worth alerting on
			if errors.Is(err, domain.ErrRefreshInProgress) {
				continue
			}
			failed++
			j.logger.Warn("proactive refresh failed",
				"credential_id", cred.ID,
				"platform", cred.Platform,
				"error", err)
			continue
		}
		refreshed++
	}

	j.logger.Info("proactive refresh sweep complete",
		"candidates", len(creds),
		"refreshed", refreshed,
		"failed", failed)
}
