package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "boxoffice", TTL: 30 * time.Minute}
}

func TestMintAndParseAdminToken(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()

	token, err := MintAdminToken(cfg, now, "op-42", " Ops@Example.com ")
	if err != nil {
		t.Fatalf("mint admin token: %v", err)
	}
	claims, err := ParseAdminToken(cfg, token)
	if err != nil {
		t.Fatalf("parse admin token: %v", err)
	}
	if claims.Subject != "op-42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role %q", claims.Role)
	}
	if claims.Email != "ops@example.com" {
		t.Fatalf("email not normalized: %q", claims.Email)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti")
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != cfg.TTL {
		t.Fatalf("expected ttl %s, got %s", cfg.TTL, got)
	}
}

func TestParseAdminTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now().Add(-2*time.Hour), "op-1", "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAdminTokenRejectsWrongSecretAndIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAdminToken(cfg, time.Now(), "op-1", "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := cfg
	other.Secret = "other"
	if _, err := ParseAdminToken(other, token); err == nil {
		t.Fatal("expected signature mismatch")
	}
	other = cfg
	other.Issuer = "someone-else"
	if _, err := ParseAdminToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch")
	}
}

func TestParseAdminTokenRejectsOtherAlgorithms(t *testing.T) {
	cfg := testJWTConfig()
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "op-1",
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAdminToken(cfg, token); err == nil {
		t.Fatal("expected HS512 token to be rejected")
	}
}

func TestMintAdminTokenValidatesConfig(t *testing.T) {
	if _, err := MintAdminToken(config.JWTConfig{Issuer: "x", TTL: time.Minute}, time.Now(), "op", ""); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := MintAdminToken(testJWTConfig(), time.Now(), " ", ""); err == nil {
		t.Fatal("expected missing subject error")
	}
}
