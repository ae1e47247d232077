package domain

import (
	"testing"
	"time"
)

func TestCredentialStatus_Boundaries(t *testing.T) {
	margin := 24 * time.Hour
	expiresAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cred := &Credential{ExpiresAt: expiresAt}

	tests := []struct {
		name string
		now  time.Time
		want TokenStatus
	}{
		{"well before margin", expiresAt.Add(-margin - time.Second), TokenStatusActive},
		{"just inside margin", expiresAt.Add(-margin + time.Second), TokenStatusExpiring},
		{"exactly at margin", expiresAt.Add(-margin), TokenStatusExpiring},
		{"just past expiry", expiresAt.Add(time.Second), TokenStatusExpired},
		{"exactly at expiry", expiresAt, TokenStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cred.Status(tt.now, margin); got != tt.want {
				t.Errorf("Status(%s) = %s, want %s", tt.now, got, tt.want)
			}
		})
	}
}

func TestCredentialStatus_DefaultMargin(t *testing.T) {
	expiresAt := time.Now().Add(12 * time.Hour)
	cred := &Credential{ExpiresAt: expiresAt}

	// 12h from expiry is inside the default 24h margin
	if got := cred.Status(time.Now(), 0); got != TokenStatusExpiring {
		t.Errorf("expected expiring with default margin, got %s", got)
	}
}

func TestCredentialNeedsRefresh_Boundaries(t *testing.T) {
	expiresAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	cred := &Credential{ExpiresAt: expiresAt}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"hours out", expiresAt.Add(-2 * time.Hour), false},
		{"just outside the window", expiresAt.Add(-RefreshAhead - time.Second), false},
		{"just inside the window", expiresAt.Add(-RefreshAhead + time.Second), true},
		{"exactly at the window", expiresAt.Add(-RefreshAhead), true},
		{"already expired", expiresAt.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cred.NeedsRefresh(tt.now); got != tt.want {
				t.Errorf("NeedsRefresh(%s) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestCredentialUsable(t *testing.T) {
	now := time.Now()

	cred := &Credential{Active: true, ExpiresAt: now.Add(time.Hour)}
	if !cred.Usable(now) {
		t.Error("expected active unexpired credential to be usable")
	}

	cred.Active = false
	if cred.Usable(now) {
		t.Error("expected deactivated credential to be unusable")
	}

	cred.Active = true
	cred.ExpiresAt = now.Add(-time.Minute)
	if cred.Usable(now) {
		t.Error("expected expired credential to be unusable")
	}
}

func TestCredentialRateLimited(t *testing.T) {
	now := time.Now()
	zero := 0
	five := 5
	reset := now.Add(300 * time.Second)

	// Unknown bookkeeping never blocks
	cred := &Credential{}
	if limited, _ := cred.RateLimited(now); limited {
		t.Error("expected unknown rate-limit state to not block")
	}

	// Remaining calls left
	cred = &Credential{RateLimitRemaining: &five, RateLimitReset: &reset}
	if limited, _ := cred.RateLimited(now); limited {
		t.Error("expected remaining > 0 to not block")
	}

	// Exhausted window
	cred = &Credential{RateLimitRemaining: &zero, RateLimitReset: &reset}
	limited, retryAfter := cred.RateLimited(now)
	if !limited {
		t.Fatal("expected exhausted window to block")
	}
	if retryAfter < 299*time.Second || retryAfter > 301*time.Second {
		t.Errorf("expected retryAfter around 300s, got %s", retryAfter)
	}

	// Exhausted but window already reset
	past := now.Add(-time.Second)
	cred = &Credential{RateLimitRemaining: &zero, RateLimitReset: &past}
	if limited, _ := cred.RateLimited(now); limited {
		t.Error("expected elapsed window to not block")
	}
}

func TestMaskToken(t *testing.T) {
	if got := MaskToken("EAABsbCS1234567890abcdef"); got != "EAABsb***" {
		t.Errorf("expected masked prefix, got %q", got)
	}
	if got := MaskToken("abc"); got != "a***" {
		t.Errorf("expected short tokens to expose one character, got %q", got)
	}
	if got := MaskToken(""); got != "" {
		t.Errorf("expected empty token to stay empty, got %q", got)
	}
}

func TestCredentialToSummary_MasksSecrets(t *testing.T) {
	now := time.Now()
	cred := &Credential{
		ID:          "cred_1",
		Platform:    PlatformFacebook,
		UserID:      "user_1",
		DisplayName: "Ops Page",
		Secrets: &CredentialSecrets{
			AccessToken:  "EAABsbCS1234567890",
			RefreshToken: "rfrsh_secret",
		},
		ExpiresAt: now.Add(48 * time.Hour),
		Active:    true,
	}

	summary := cred.ToSummary(now, 24*time.Hour)
	if summary.TokenPreview != "EAABsb***" {
		t.Errorf("expected masked token preview, got %q", summary.TokenPreview)
	}
	if summary.Status != TokenStatusActive {
		t.Errorf("expected active status, got %s", summary.Status)
	}
}

func TestHasRefreshToken(t *testing.T) {
	cred := &Credential{}
	if cred.HasRefreshToken() {
		t.Error("expected no refresh token without secrets")
	}
	cred.Secrets = &CredentialSecrets{AccessToken: "tok"}
	if cred.HasRefreshToken() {
		t.Error("expected no refresh token when empty")
	}
	cred.Secrets.RefreshToken = "r1"
	if !cred.HasRefreshToken() {
		t.Error("expected refresh token to be detected")
	}
}

func TestParsePlatform(t *testing.T) {
	if _, err := ParsePlatform("facebook"); err != nil {
		t.Errorf("unexpected error for facebook: %v", err)
	}
	if _, err := ParsePlatform("myspace"); err != ErrUnknownPlatform {
		t.Errorf("expected ErrUnknownPlatform, got %v", err)
	}
}
