package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/markbang/cyop/pkg/config"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cyop",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: "reviewer-1"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.UserID != "reviewer-1" {
		t.Fatalf("expected user_id reviewer-1, got %s", claims.UserID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be generated")
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(now.Add(29*time.Minute)) {
		t.Fatal("expiry not honoring configured TTL")
	}
}

func TestMintAccessTokenPinsJTI(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "cyop", ExpirationMinutes: 5}

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: "u1", JTI: "session-123"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ID != "session-123" {
		t.Fatalf("expected pinned jti, got %s", claims.ID)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	base := config.JWTConfig{Secret: "secret", Issuer: "cyop", ExpirationMinutes: 5}

	cases := []struct {
		name    string
		mutate  func(*config.JWTConfig, *AccessTokenPayload)
		wantErr string
	}{
		{
			name:    "missing secret",
			mutate:  func(c *config.JWTConfig, _ *AccessTokenPayload) { c.Secret = "" },
			wantErr: "jwt secret",
		},
		{
			name:    "missing issuer",
			mutate:  func(c *config.JWTConfig, _ *AccessTokenPayload) { c.Issuer = "" },
			wantErr: "jwt issuer",
		},
		{
			name:    "zero expiry",
			mutate:  func(c *config.JWTConfig, _ *AccessTokenPayload) { c.ExpirationMinutes = 0 },
			wantErr: "expiration minutes",
		},
		{
			name:    "blank user id",
			mutate:  func(_ *config.JWTConfig, p *AccessTokenPayload) { p.UserID = "  " },
			wantErr: "user id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			payload := AccessTokenPayload{UserID: "u1"}
			tc.mutate(&cfg, &payload)
			_, err := MintAccessToken(cfg, time.Now(), payload)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "cyop", ExpirationMinutes: 5}
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: "u1"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	cfg.Secret = "other"
	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected signature validation failure")
	}
}

func TestParseAccessTokenAllowExpired(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "cyop", ExpirationMinutes: 5}
	past := time.Now().Add(-2 * time.Hour)
	token, err := MintAccessToken(cfg, past, AccessTokenPayload{UserID: "u1", JTI: "old"})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail strict parse")
	}

	claims, err := ParseAccessTokenAllowExpired(cfg, token)
	if err != nil {
		t.Fatalf("lenient parse: %v", err)
	}
	if claims.ID != "old" {
		t.Fatalf("expected jti old, got %s", claims.ID)
	}
}
