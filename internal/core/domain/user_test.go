package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		role     Role
		expected bool
	}{
		{RoleAdmin, true},
		{RoleUser, false},
		{Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			user := &User{Role: tt.role}
			if got := user.IsAdmin(); got != tt.expected {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserToSummary(t *testing.T) {
	lastLogin := time.Now().Add(-time.Hour)
	user := &User{
		ID:           "user-1",
		Email:        "test@example.com",
		PasswordHash: "$2a$10$secret",
		Name:         "Test User",
		Role:         RoleUser,
		Active:       true,
		LastLoginAt:  &lastLogin,
	}

	summary := user.ToSummary()

	if summary.ID != user.ID {
		t.Errorf("expected ID %s, got %s", user.ID, summary.ID)
	}
	if summary.Email != user.Email {
		t.Errorf("expected email %s, got %s", user.Email, summary.Email)
	}
	if summary.Role != user.Role {
		t.Errorf("expected role %s, got %s", user.Role, summary.Role)
	}
	if !summary.Active {
		t.Error("expected summary to be active")
	}
	if summary.LastLoginAt == nil || !summary.LastLoginAt.Equal(lastLogin) {
		t.Error("expected last login to be carried over")
	}
}

func TestUserPasswordHashNeverSerialized(t *testing.T) {
	user := &User{
		ID:           "user-1",
		Email:        "test@example.com",
		PasswordHash: "$2a$10$supersecret",
	}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	if strings.Contains(string(data), "supersecret") {
		t.Error("password hash must not appear in serialized user")
	}
}

func TestRoleConstants(t *testing.T) {
	if RoleAdmin != "admin" {
		t.Errorf("expected RoleAdmin = 'admin', got %s", RoleAdmin)
	}
	if RoleUser != "user" {
		t.Errorf("expected RoleUser = 'user', got %s", RoleUser)
	}
}
