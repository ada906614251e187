package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("expected development, got %q", cfg.AppEnv)
	}
	if cfg.IsProduction() {
		t.Fatal("development must not be production")
	}
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Fatalf("unexpected access ttl %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 720*time.Hour {
		t.Fatalf("unexpected refresh ttl %v", cfg.RefreshTokenTTL)
	}
	if cfg.DefaultCountryCode != "+91" {
		t.Fatalf("unexpected country code %q", cfg.DefaultCountryCode)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRequiresStores(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without MONGO_URI")
	}

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
}

func TestBypassRefusedInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ALLOW_OTP_BYPASS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("bypass must be refused in production")
	}
}

func TestBypassAllowedInDev(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "dev")
	t.Setenv("ALLOW_OTP_BYPASS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.AllowOTPBypass {
		t.Fatal("bypass flag lost")
	}
}

func TestDurationEnvAcceptsSecondsAndDurations(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL", "3600")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Fatalf("expected 1h, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 48*time.Hour {
		t.Fatalf("expected 48h, got %v", cfg.RefreshTokenTTL)
	}
}
