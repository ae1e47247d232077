package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
)

// Ensure MockCredentialStore implements CredentialStore
var _ driven.CredentialStore = (*MockCredentialStore)(nil)

// MockCredentialStore is an in-memory CredentialStore for testing.
// Put deactivates any prior active credential for the same
// (user, platform) pair, matching the store contract.
type MockCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]*domain.Credential

	// Custom behavior hooks (optional)
	UpdateFn func(id string, patch *domain.CredentialPatch) (*domain.Credential, error)
}

// NewMockCredentialStore creates a new MockCredentialStore
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		creds: make(map[string]*domain.Credential),
	}
}

func (m *MockCredentialStore) Put(ctx context.Context, cred *domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cred.Active {
		for _, existing := range m.creds {
			if existing.ID != cred.ID && existing.UserID == cred.UserID && existing.Platform == cred.Platform && existing.Active {
				existing.Active = false
				existing.UpdatedAt = time.Now()
			}
		}
	}

	m.creds[cred.ID] = cloneCredential(cred)
	return nil
}

func (m *MockCredentialStore) Get(ctx context.Context, id string) (*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCredential(cred), nil
}

func (m *MockCredentialStore) FindActive(ctx context.Context, userID string, platform domain.Platform) (*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, cred := range m.creds {
		if cred.UserID == userID && cred.Platform == platform && cred.Active {
			return cloneCredential(cred), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCredentialStore) ListByUser(ctx context.Context, userID string) ([]*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Credential
	for _, cred := range m.creds {
		if cred.UserID == userID {
			result = append(result, cloneCredential(cred))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastRefreshed.After(result[j].LastRefreshed)
	})
	return result, nil
}

func (m *MockCredentialStore) Update(ctx context.Context, id string, patch *domain.CredentialPatch) (*domain.Credential, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(id, patch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	if patch.DisplayName != nil {
		cred.DisplayName = *patch.DisplayName
	}
	if patch.AccessToken != nil {
		if cred.Secrets == nil {
			cred.Secrets = &domain.CredentialSecrets{}
		}
		cred.Secrets.AccessToken = *patch.AccessToken
	}
	if patch.RefreshToken != nil {
		if cred.Secrets == nil {
			cred.Secrets = &domain.CredentialSecrets{}
		}
		cred.Secrets.RefreshToken = *patch.RefreshToken
	}
	if patch.Scopes != nil {
		cred.Scopes = patch.Scopes
	}
	if patch.ExpiresAt != nil {
		cred.ExpiresAt = *patch.ExpiresAt
	}
	if patch.Active != nil {
		cred.Active = *patch.Active
	}
	if patch.LastRefreshed != nil {
		cred.LastRefreshed = *patch.LastRefreshed
	}
	if patch.SetRateLimit {
		cred.RateLimitRemaining = patch.RateLimitRemaining
		cred.RateLimitReset = patch.RateLimitReset
	}
	cred.UpdatedAt = time.Now()

	return cloneCredential(cred), nil
}

func (m *MockCredentialStore) ListExpiring(ctx context.Context, before time.Time) ([]*domain.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Credential
	for _, cred := range m.creds {
		if cred.Active && cred.ExpiresAt.Before(before) && cred.HasRefreshToken() {
			result = append(result, cloneCredential(cred))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result, nil
}

func (m *MockCredentialStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.creds[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.creds, id)
	return nil
}

// Helper methods for testing

func (m *MockCredentialStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = make(map[string]*domain.Credential)
}

func (m *MockCredentialStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}

// ActiveCount returns the number of active credentials for a
// (user, platform) pair, for supersede assertions.
func (m *MockCredentialStore) ActiveCount(userID string, platform domain.Platform) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, cred := range m.creds {
		if cred.UserID == userID && cred.Platform == platform && cred.Active {
			n++
		}
	}
	return n
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	cp := *c
	if c.Secrets != nil {
		s := *c.Secrets
		cp.Secrets = &s
	}
	if c.Scopes != nil {
		cp.Scopes = append([]string(nil), c.Scopes...)
	}
	if c.RateLimitRemaining != nil {
		v := *c.RateLimitRemaining
		cp.RateLimitRemaining = &v
	}
	if c.RateLimitReset != nil {
		t := *c.RateLimitReset
		cp.RateLimitReset = &t
	}
	return &cp
}
