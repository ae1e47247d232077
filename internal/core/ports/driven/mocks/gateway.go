package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven"
)

// Ensure mocks implement the gateway ports
var (
	_ driven.OAuthGateway = (*MockOAuthGateway)(nil)
	_ driven.PlatformAPI  = (*MockPlatformAPI)(nil)
)

// MockOAuthGateway is a mock OAuthGateway for testing. It counts
// outbound calls so tests can assert coalescing behavior, and supports
// custom behavior injection per method.
type MockOAuthGateway struct {
	exchangeCalls int64
	refreshCalls  int64
	profileCalls  int64

	// Custom behavior hooks (optional)
	BuildAuthURLFn func(platform domain.Platform, state, codeChallenge string) (string, error)
	ExchangeFn     func(platform domain.Platform, code, codeVerifier string) (*driven.OAuthToken, error)
	RefreshFn      func(platform domain.Platform, refreshToken string) (*driven.OAuthToken, error)
	FetchProfileFn func(platform domain.Platform, accessToken string) (*driven.ProfileInfo, error)
}

// NewMockOAuthGateway creates a new MockOAuthGateway
func NewMockOAuthGateway() *MockOAuthGateway {
	return &MockOAuthGateway{}
}

func (m *MockOAuthGateway) BuildAuthURL(platform domain.Platform, state, codeChallenge string) (string, error) {
	if m.BuildAuthURLFn != nil {
		return m.BuildAuthURLFn(platform, state, codeChallenge)
	}
	return fmt.Sprintf("https://auth.%s.example/authorize?state=%s", platform, state), nil
}

func (m *MockOAuthGateway) Exchange(ctx context.Context, platform domain.Platform, code, codeVerifier string) (*driven.OAuthToken, error) {
	atomic.AddInt64(&m.exchangeCalls, 1)
	if m.ExchangeFn != nil {
		return m.ExchangeFn(platform, code, codeVerifier)
	}
	return &driven.OAuthToken{
		AccessToken:  "mock-access-" + code,
		RefreshToken: "mock-refresh-" + code,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}, nil
}

func (m *MockOAuthGateway) Refresh(ctx context.Context, platform domain.Platform, refreshToken string) (*driven.OAuthToken, error) {
	atomic.AddInt64(&m.refreshCalls, 1)
	if m.RefreshFn != nil {
		return m.RefreshFn(platform, refreshToken)
	}
	return &driven.OAuthToken{
		AccessToken: "mock-refreshed-access",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

func (m *MockOAuthGateway) FetchProfile(ctx context.Context, platform domain.Platform, accessToken string) (*driven.ProfileInfo, error) {
	atomic.AddInt64(&m.profileCalls, 1)
	if m.FetchProfileFn != nil {
		return m.FetchProfileFn(platform, accessToken)
	}
	return &driven.ProfileInfo{ID: "mock-account", Name: "Mock Account"}, nil
}

// Call counters for test assertions

func (m *MockOAuthGateway) ExchangeCalls() int {
	return int(atomic.LoadInt64(&m.exchangeCalls))
}

func (m *MockOAuthGateway) RefreshCalls() int {
	return int(atomic.LoadInt64(&m.refreshCalls))
}

func (m *MockOAuthGateway) ProfileCalls() int {
	return int(atomic.LoadInt64(&m.profileCalls))
}

// MockPlatformAPI is a mock PlatformAPI for testing. Every call is
// recorded so tests can assert that guarded paths made zero requests.
type MockPlatformAPI struct {
	mu    sync.Mutex
	calls []RecordedCall

	// Custom behavior hooks (optional)
	CallFn  func(platform domain.Platform, op domain.Operation, accessToken string, payload json.RawMessage) (*driven.PlatformResponse, error)
	ProbeFn func(platform domain.Platform, accessToken string) (bool, error)
}

// RecordedCall captures one outbound platform request.
type RecordedCall struct {
	Platform    domain.Platform
	Operation   domain.Operation
	AccessToken string
}

// NewMockPlatformAPI creates a new MockPlatformAPI
func NewMockPlatformAPI() *MockPlatformAPI {
	return &MockPlatformAPI{}
}

func (m *MockPlatformAPI) Call(ctx context.Context, platform domain.Platform, op domain.Operation, accessToken string, payload json.RawMessage) (*driven.PlatformResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{Platform: platform, Operation: op, AccessToken: accessToken})
	m.mu.Unlock()

	if m.CallFn != nil {
		return m.CallFn(platform, op, accessToken, payload)
	}
	return &driven.PlatformResponse{
		StatusCode: 200,
		Body:       json.RawMessage(`{"ok":true}`),
	}, nil
}

func (m *MockPlatformAPI) Probe(ctx context.Context, platform domain.Platform, accessToken string) (bool, error) {
	if m.ProbeFn != nil {
		return m.ProbeFn(platform, accessToken)
	}
	return true, nil
}

// Helper methods for testing

func (m *MockPlatformAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *MockPlatformAPI) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedCall(nil), m.calls...)
}

func (m *MockPlatformAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
