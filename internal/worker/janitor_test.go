package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven/mocks"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
)

type stubCredentialService struct {
	mu        sync.Mutex
	refreshed []string
	refreshFn func(userID, id string) (*driving.RefreshResult, error)
}

func (s *stubCredentialService) Refresh(ctx context.Context, userID, id string) (*driving.RefreshResult, error) {
	s.mu.Lock()
	s.refreshed = append(s.refreshed, id)
	s.mu.Unlock()
	if s.refreshFn != nil {
		return s.refreshFn(userID, id)
	}
	return &driving.RefreshResult{
		Credential: &domain.CredentialSummary{ID: id},
		Refreshed:  true,
	}, nil
}

func (s *stubCredentialService) Refreshed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refreshed...)
}

func (s *stubCredentialService) List(ctx context.Context, userID string) ([]*domain.CredentialSummary, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCredentialService) Get(ctx context.Context, userID, id string) (*domain.CredentialSummary, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCredentialService) Delete(ctx context.Context, userID, id string) error {
	return errors.New("not implemented")
}

func (s *stubCredentialService) EnsureFresh(ctx context.Context, id string) (*domain.Credential, string, error) {
	return nil, "", errors.New("not implemented")
}

func (s *stubCredentialService) RefreshExpiring(ctx context.Context, userID string) ([]*driving.RefreshResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCredentialService) Validate(ctx context.Context, userID, id string) (*driving.ValidationResult, error) {
	return nil, errors.New("not implemented")
}

type stubSessionCleaner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubSessionCleaner) DeleteExpired(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func (s *stubSessionCleaner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func seedExpiring(t *testing.T, store *mocks.MockCredentialStore, id string, expiresAt time.Time, refreshToken string) {
	t.Helper()
	cred := &domain.Credential{
		ID:       id,
		Platform: domain.PlatformTwitter,
		UserID:   "user-1",
		Secrets: &domain.CredentialSecrets{
			AccessToken:  "access-" + id,
			RefreshToken: refreshToken,
		},
		ExpiresAt: expiresAt,
		Active:    true,
	}
	if err := store.Put(context.Background(), cred); err != nil {
		t.Fatalf("failed to seed credential: %v", err)
	}
}

func TestJanitorSweep_CleansStatesAndSessions(t *testing.T) {
	states := mocks.NewMockOAuthStateStore()
	states.Save(context.Background(), &driven.OAuthState{
		State:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	sessions := &stubSessionCleaner{}

	j := NewJanitor(JanitorConfig{
		States:      states,
		Sessions:    sessions,
		Store:       mocks.NewMockCredentialStore(),
		Credentials: &stubCredentialService{},
	})

	j.Sweep(context.Background())

	if states.Count() != 0 {
		t.Errorf("expected expired states removed, %d remain", states.Count())
	}
	if sessions.Calls() != 1 {
		t.Errorf("expected one session cleanup call, got %d", sessions.Calls())
	}
}

func TestJanitorSweep_NilSessionCleaner(t *testing.T) {
	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Store:       mocks.NewMockCredentialStore(),
		Credentials: &stubCredentialService{},
	})

	// Must not panic without a session cleaner
	j.Sweep(context.Background())
}

func TestJanitorSweep_RefreshesExpiringCredentials(t *testing.T) {
	store := mocks.NewMockCredentialStore()
	seedExpiring(t, store, "cred-expiring", time.Now().Add(time.Hour), "refresh-1")
	seedExpiring(t, store, "cred-fresh", time.Now().Add(30*24*time.Hour), "refresh-2")

	creds := &stubCredentialService{}
	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Store:       store,
		Credentials: creds,
	})

	j.Sweep(context.Background())

	refreshed := creds.Refreshed()
	if len(refreshed) != 1 {
		t.Fatalf("expected 1 refresh candidate, got %d: %v", len(refreshed), refreshed)
	}
	if refreshed[0] != "cred-expiring" {
		t.Errorf("expected 'cred-expiring' refreshed, got %s", refreshed[0])
	}
}

func TestJanitorSweep_SkipsCredentialsWithoutRefreshToken(t *testing.T) {
	store := mocks.NewMockCredentialStore()
	seedExpiring(t, store, "cred-no-rt", time.Now().Add(time.Hour), "")

	creds := &stubCredentialService{}
	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Store:       store,
		Credentials: creds,
	})

	j.Sweep(context.Background())

	if len(creds.Refreshed()) != 0 {
		t.Errorf("expected no refresh attempts, got %v", creds.Refreshed())
	}
}

func TestJanitorSweep_FailureDoesNotStopSweep(t *testing.T) {
	store := mocks.NewMockCredentialStore()
	seedExpiring(t, store, "cred-a", time.Now().Add(time.Hour), "refresh-a")
	seedExpiring(t, store, "cred-b", time.Now().Add(2*time.Hour), "refresh-b")

	creds := &stubCredentialService{
		refreshFn: func(userID, id string) (*driving.RefreshResult, error) {
			if id == "cred-a" {
				return nil, errors.New("platform down")
			}
			return &driving.RefreshResult{
				Credential: &domain.CredentialSummary{ID: id},
				Refreshed:  true,
			}, nil
		},
	}
	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Store:       store,
		Credentials: creds,
	})

	j.Sweep(context.Background())

	if len(creds.Refreshed()) != 2 {
		t.Errorf("expected both credentials attempted, got %v", creds.Refreshed())
	}
}

func TestJanitorSweep_LockHeldByPeer(t *testing.T) {
	store := mocks.NewMockCredentialStore()
	seedExpiring(t, store, "cred-expiring", time.Now().Add(time.Hour), "refresh-1")

	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(janitorLockName, time.Minute)

	creds := &stubCredentialService{}
	sessions := &stubSessionCleaner{}
	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Sessions:    sessions,
		Store:       store,
		Credentials: creds,
		Lock:        lock,
	})

	j.Sweep(context.Background())

	if len(creds.Refreshed()) != 0 {
		t.Error("expected sweep skipped while peer holds the lock")
	}
	if sessions.Calls() != 0 {
		t.Error("expected no session cleanup while peer holds the lock")
	}
}

func TestJanitorSweep_ReleasesLock(t *testing.T) {
	lock := mocks.NewMockDistributedLock()

	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Store:       mocks.NewMockCredentialStore(),
		Credentials: &stubCredentialService{},
		Lock:        lock,
	})

	j.Sweep(context.Background())

	if lock.IsHeld(janitorLockName) {
		t.Error("expected janitor lock released after sweep")
	}
}

func TestJanitorStartStop(t *testing.T) {
	j := NewJanitor(JanitorConfig{
		States:        mocks.NewMockOAuthStateStore(),
		Store:         mocks.NewMockCredentialStore(),
		Credentials:   &stubCredentialService{},
		SweepInterval: time.Hour,
	})

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("failed to start janitor: %v", err)
	}

	// Second start is a no-op
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		j.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop in time")
	}

	// Second stop is a no-op
	j.Stop()
}

func TestJanitorDefaults(t *testing.T) {
	j := NewJanitor(JanitorConfig{
		States:      mocks.NewMockOAuthStateStore(),
		Store:       mocks.NewMockCredentialStore(),
		Credentials: &stubCredentialService{},
	})

	if j.interval != 15*time.Minute {
		t.Errorf("expected default sweep interval 15m, got %s", j.interval)
	}
	if j.margin != domain.DefaultRefreshMargin {
		t.Errorf("expected default refresh margin %s, got %s", domain.DefaultRefreshMargin, j.margin)
	}
	if j.lockTTL != 30*time.Minute {
		t.Errorf("expected default lock TTL 30m, got %s", j.lockTTL)
	}
}
