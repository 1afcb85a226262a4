package config

import (
	"testing"
	"time"
)

func setDevEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "development")
	t.Setenv("SIGNER_MODE", "dev")
}

func TestLoadDefaults(t *testing.T) {
	setDevEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if cfg.ConfirmationRounds != 4 || cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Algod.BaseURL == "" || cfg.Algod.RateLimit != 10 {
		t.Fatalf("expected algod defaults, got %+v", cfg.Algod)
	}
}

func TestLoadDurationsAndNumbers(t *testing.T) {
	setDevEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("ALGOD_TIMEOUT", "5s")
	t.Setenv("ALGOD_RETRIES", "0")
	t.Setenv("CONFIRMATION_ROUNDS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second || cfg.IdempotencyTTL != 90*time.Minute {
		t.Fatalf("unexpected durations %v %v", cfg.ShutdownPeriod, cfg.IdempotencyTTL)
	}
	if cfg.Algod.Timeout != 5*time.Second || cfg.Algod.RetryAttempts != 0 {
		t.Fatalf("unexpected algod config %+v", cfg.Algod)
	}
	if cfg.ConfirmationRounds != 8 {
		t.Fatalf("expected 8 rounds, got %d", cfg.ConfirmationRounds)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SHUTDOWN_TIMEOUT_SECONDS": "soon",
		"ALGOD_RATE_LIMIT":         "fast",
		"CONFIRMATION_ROUNDS":      "0",
		"SIGNER_MODE":              "ledger",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setDevEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}

func TestLoadProductionRequirements(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SIGNER_MODE", "dev")
	if _, err := Load(); err == nil {
		t.Fatalf("dev signer must be refused outside development")
	}

	t.Setenv("SIGNER_MODE", "remote")
	t.Setenv("SIGNER_URL", "https://bridge.example")
	t.Setenv("SIGNER_PRIVATE_KEY_FILE", "/etc/algopay/signer.pem")
	if _, err := Load(); err == nil {
		t.Fatalf("expected DATABASE_URL to be required")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/algopay")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IsDev() {
		t.Fatalf("production must not be dev")
	}
}
