package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/congo-pay/algopay/internal/node"
)

const (
	defaultAppName        = "AlgoPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultSignerMode     = SignerRemote
	defaultSignerPoll     = 5 * time.Second
	defaultConfirmRounds  = 4
	defaultSendRateLimit  = 10
)

// Signer modes.
const (
	SignerRemote = "remote"
	SignerDev    = "dev"
)

// Signer selects and configures the wallet signer.
type Signer struct {
	Mode           string
	URL            string
	APIKey         string
	PrivateKeyFile string
	PollInterval   time.Duration
	DevMnemonic    string
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	LogFormat          string
	DatabaseURL        string
	RedisURL           string
	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	Algod              node.Config
	Signer             Signer
	ConfirmationRounds uint64
	APIKeyHash         string
	SendRateLimit      int
	AssetsFile         string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	algod := node.DefaultConfig()
	cfg := Config{
		AppName:     getEnv("APP_NAME", defaultAppName),
		AppEnv:      getEnv("APP_ENV", defaultAppEnv),
		Port:        getEnv("PORT", defaultPort),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		Algod: node.Config{
			BaseURL:    getEnv("ALGOD_URL", algod.BaseURL),
			Token:      os.Getenv("ALGOD_TOKEN"),
			RetryDelay: algod.RetryDelay,
		},
		Signer: Signer{
			Mode:           strings.ToLower(getEnv("SIGNER_MODE", defaultSignerMode)),
			URL:            os.Getenv("SIGNER_URL"),
			APIKey:         os.Getenv("SIGNER_API_KEY"),
			PrivateKeyFile: os.Getenv("SIGNER_PRIVATE_KEY_FILE"),
			DevMnemonic:    os.Getenv("DEV_SIGNER_MNEMONIC"),
		},
		APIKeyHash: os.Getenv("API_KEY_HASH"),
		AssetsFile: os.Getenv("ASSETS_FILE"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.Algod.Timeout, err = durationEnv("ALGOD_TIMEOUT", algod.Timeout); err != nil {
		return Config{}, err
	}
	if cfg.Signer.PollInterval, err = durationEnv("SIGNER_POLL_INTERVAL", defaultSignerPoll); err != nil {
		return Config{}, err
	}
	if cfg.Algod.RateLimit, err = intEnv("ALGOD_RATE_LIMIT", algod.RateLimit); err != nil {
		return Config{}, err
	}
	if cfg.Algod.RetryAttempts, err = intEnv("ALGOD_RETRIES", algod.RetryAttempts); err != nil {
		return Config{}, err
	}
	if cfg.SendRateLimit, err = intEnv("SEND_RATE_LIMIT", defaultSendRateLimit); err != nil {
		return Config{}, err
	}
	rounds, err := intEnv("CONFIRMATION_ROUNDS", defaultConfirmRounds)
	if err != nil {
		return Config{}, err
	}
	if rounds <= 0 {
		return Config{}, fmt.Errorf("CONFIRMATION_ROUNDS must be positive")
	}
	cfg.ConfirmationRounds = uint64(rounds)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Signer.Mode {
	case SignerRemote:
		if c.Signer.URL == "" {
			return fmt.Errorf("SIGNER_URL must be set when SIGNER_MODE=%s", SignerRemote)
		}
		if c.Signer.PrivateKeyFile == "" {
			return fmt.Errorf("SIGNER_PRIVATE_KEY_FILE must be set when SIGNER_MODE=%s", SignerRemote)
		}
	case SignerDev:
		if !c.IsDev() {
			return fmt.Errorf("SIGNER_MODE=%s is only allowed in development", SignerDev)
		}
	default:
		return fmt.Errorf("unknown SIGNER_MODE %q", c.Signer.Mode)
	}

	if c.IsDev() {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	return nil
}

// IsDev reports whether the service runs in a development environment, where
// Postgres and Redis are optional.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as whole seconds, else KEY as a Go duration.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	secondsKey := key + "_SECONDS"
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
