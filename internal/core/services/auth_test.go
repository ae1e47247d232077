package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driven/mocks"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
)

type authFixture struct {
	service  driving.AuthService
	users    *mocks.MockUserStore
	sessions *mocks.MockSessionStore
	adapter  *mocks.MockAuthAdapter
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := mocks.NewMockUserStore()
	sessions := mocks.NewMockSessionStore()
	adapter := mocks.NewMockAuthAdapter()

	return &authFixture{
		service:  NewAuthService(users, sessions, adapter),
		users:    users,
		sessions: sessions,
		adapter:  adapter,
	}
}

// seedUser stores an active user with the given password.
func seedUser(t *testing.T, f *authFixture, id, email, password string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := f.adapter.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Name:         "Test User",
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := f.users.Save(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestAuthenticate_Success(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	resp, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if resp.Token == "" {
		t.Error("expected non-empty token")
	}
	if resp.RefreshToken == "" {
		t.Error("expected non-empty refresh token")
	}
	if resp.User == nil || resp.User.ID != "user-1" {
		t.Error("expected user summary in response")
	}
	if f.sessions.Count() != 1 {
		t.Errorf("expected 1 session, got %d", f.sessions.Count())
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	_, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "wrong",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.sessions.Count() != 0 {
		t.Error("expected no session on failed login")
	}
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticate_InactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	user := seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)
	user.Active = false
	if err := f.users.Save(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	_, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthenticate_EmptyInput(t *testing.T) {
	f := newAuthFixture(t)

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"empty email", "", "password"},
		{"empty password", "test@example.com", ""},
		{"both empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
				Email:    tt.email,
				Password: tt.pass,
			})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestValidateToken_Success(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleAdmin)

	resp, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	authCtx, err := f.service.ValidateToken(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if authCtx.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", authCtx.UserID)
	}
	if authCtx.Role != domain.RoleAdmin {
		t.Errorf("expected admin role, got %s", authCtx.Role)
	}
}

func TestValidateToken_Empty(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.ValidateToken(context.Background(), "")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.ValidateToken(context.Background(), "not-a-token")
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestValidateToken_RevokedSession(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	resp, _ := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})

	// Logout revokes the session while the JWT itself is still valid
	if err := f.service.Logout(context.Background(), resp.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	_, err := f.service.ValidateToken(context.Background(), resp.Token)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRefreshToken_Success(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	login, _ := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "password123",
	})

	refreshed, err := f.service.RefreshToken(context.Background(), domain.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if refreshed.Token == login.Token {
		t.Error("expected a new token")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected the refresh token to rotate")
	}

	// The old refresh token must be single-use
	_, err = f.service.RefreshToken(context.Background(), domain.RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected old refresh token to be rejected, got %v", err)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.service.RefreshToken(context.Background(), domain.RefreshRequest{
		RefreshToken: "unknown",
	})
	if !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestLogout_InvalidTokenIsNoop(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.service.Logout(context.Background(), "garbage"); err != nil {
		t.Errorf("expected nil error for invalid token, got %v", err)
	}
	if err := f.service.Logout(context.Background(), ""); err != nil {
		t.Errorf("expected nil error for empty token, got %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	for i := 0; i < 3; i++ {
		if _, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
			Email:    "test@example.com",
			Password: "password123",
		}); err != nil {
			t.Fatalf("login %d failed: %v", i, err)
		}
	}
	if f.sessions.Count() != 3 {
		t.Fatalf("expected 3 sessions, got %d", f.sessions.Count())
	}

	if err := f.service.LogoutAll(context.Background(), "user-1"); err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}
	if f.sessions.Count() != 0 {
		t.Errorf("expected all sessions revoked, got %d", f.sessions.Count())
	}
}

func TestChangePassword_Success(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "oldpassword", domain.RoleUser)

	login, _ := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "oldpassword",
	})

	err := f.service.ChangePassword(context.Background(), "user-1", domain.ChangePasswordRequest{
		CurrentPassword: "oldpassword",
		NewPassword:     "newpassword",
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// All sessions are revoked
	if _, err := f.service.ValidateToken(context.Background(), login.Token); err == nil {
		t.Error("expected old session to be revoked")
	}

	// Old password no longer works
	if _, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "oldpassword",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected old password rejected, got %v", err)
	}

	// New password does
	if _, err := f.service.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "test@example.com",
		Password: "newpassword",
	}); err != nil {
		t.Errorf("expected new password to work: %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	err := f.service.ChangePassword(context.Background(), "user-1", domain.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePassword_EmptyInput(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f, "user-1", "test@example.com", "password123", domain.RoleUser)

	err := f.service.ChangePassword(context.Background(), "user-1", domain.ChangePasswordRequest{
		CurrentPassword: "password123",
		NewPassword:     "",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
