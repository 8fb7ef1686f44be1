package config

import (
	"testing"
	"time"
)

func TestValidateRequiresSecret(t *testing.T) {
	cfg := &Config{Env: "development", TokenTTLHours: 12}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing JWT_SECRET")
	}

	cfg.JWTSecret = "dev-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("development config should validate: %v", err)
	}
}

func TestValidateProductionSecretLength(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "short", TokenTTLHours: 12}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short secret in production")
	}

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("production config should validate: %v", err)
	}
}

func TestValidateTokenTTL(t *testing.T) {
	cfg := &Config{Env: "development", JWTSecret: "dev-secret", TokenTTLHours: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero token TTL")
	}
}

func TestValidateAdminPassword(t *testing.T) {
	cfg := &Config{
		Env:           "production",
		JWTSecret:     "0123456789abcdef0123456789abcdef",
		TokenTTLHours: 12,
		AdminPassword: "short",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for weak admin password in production")
	}
}

func TestTokenTTL(t *testing.T) {
	cfg := &Config{TokenTTLHours: 12}
	if got := cfg.TokenTTL(); got != 12*time.Hour {
		t.Errorf("TokenTTL() = %v, want 12h", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	cfg := &Config{TimeoutSeconds: 30}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", got)
	}
}

func TestEnvHelpers(t *testing.T) {
	if !(&Config{Env: "development"}).IsDev() {
		t.Error("IsDev should be true for development")
	}
	if !(&Config{Env: "production"}).IsProduction() {
		t.Error("IsProduction should be true for production")
	}
	if (&Config{Env: "production"}).IsDev() {
		t.Error("IsDev should be false for production")
	}
}
