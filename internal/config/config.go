package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName       = "AuthGate"
	defaultAppEnv        = "development"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultShutdownDelay = 10 * time.Second
	defaultIssuer        = "authgate"
	defaultAccessTTL     = 24 * time.Hour
	defaultRefreshTTL    = 30 * 24 * time.Hour
	defaultCountryCode   = "+91"
	defaultPrivateKey    = "./keys/local/private.pem"
	defaultPublicKey     = "./keys/local/public.pem"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	MongoURI      string
	MongoDatabase string
	RedisURL      string

	// OTPBaseURL is the base URL of the outbound OTP delivery service.
	OTPBaseURL string

	TokenIssuer     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// JWT signing material: inline PEM wins over file paths.
	JWTPrivateKeyPEM  string
	JWTPublicKeyPEM   string
	JWTPrivateKeyFile string
	JWTPublicKeyFile  string

	// RequireEmailOTP forces OTP verification for email-only logins. Signup and
	// mobile logins always require OTP regardless of this flag.
	RequireEmailOTP bool

	// AllowOTPBypass accepts the fixed test OTP. Refused outside dev/test envs.
	AllowOTPBypass bool

	// DefaultCountryCode is prefixed to mobile numbers submitted without one.
	DefaultCountryCode string

	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURI    string
	LinkedInClientID     string
	LinkedInClientSecret string
	LinkedInRedirectURI  string

	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:  getEnv("APP_NAME", defaultAppName),
		AppEnv:   strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:     getEnv("PORT", defaultPort),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),

		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "authgate"),
		RedisURL:      os.Getenv("REDIS_URL"),
		OTPBaseURL:    os.Getenv("OTP_BASE_URL"),

		TokenIssuer:     getEnv("TOKEN_ISSUER", defaultIssuer),
		AccessTokenTTL:  defaultAccessTTL,
		RefreshTokenTTL: defaultRefreshTTL,

		JWTPrivateKeyPEM:  os.Getenv("JWT_PRIVATE_KEY"),
		JWTPublicKeyPEM:   os.Getenv("JWT_PUBLIC_KEY"),
		JWTPrivateKeyFile: getEnv("JWT_PRIVATE_KEY_FILE", defaultPrivateKey),
		JWTPublicKeyFile:  getEnv("JWT_PUBLIC_KEY_FILE", defaultPublicKey),

		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", defaultCountryCode),

		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:    os.Getenv("GOOGLE_REDIRECT_URI"),
		LinkedInClientID:     os.Getenv("LINKEDIN_CLIENT_ID"),
		LinkedInClientSecret: os.Getenv("LINKEDIN_CLIENT_SECRET"),
		LinkedInRedirectURI:  os.Getenv("LINKEDIN_REDIRECT_URI"),

		ShutdownPeriod: defaultShutdownDelay,
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.RequireEmailOTP, err = boolEnv("REQUIRE_EMAIL_OTP", false); err != nil {
		return Config{}, err
	}
	if cfg.AllowOTPBypass, err = boolEnv("ALLOW_OTP_BYPASS", false); err != nil {
		return Config{}, err
	}

	if cfg.AllowOTPBypass && cfg.IsProduction() {
		return Config{}, fmt.Errorf("ALLOW_OTP_BYPASS must not be enabled when APP_ENV=%s", cfg.AppEnv)
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI must be set")
	}

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production policy.
func (c Config) IsProduction() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test", "staging":
		return false
	default:
		return true
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

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
