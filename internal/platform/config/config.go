package config

import (
	"errors"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

// ErrMissingDatabaseURL is returned by LoadStoreConfig when PGSQL_URL is empty.
var ErrMissingDatabaseURL = errors.New("PGSQL_URL must be set")

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	MigrationsPath string
	Port           string
	IsProduction   bool

	JWTSecret string
	JWTIssuer string

	CORSAllowedOrigins []string
	AuthRateLimit      string
	// TrustedProxies are the CIDRs or IPs whose forwarding headers gin believes.
	// Empty means the socket peer is the client.
	TrustedProxies []string

	// Password reset delivery
	FrontendBaseURL string
	ResetDemoMode   bool
	SESRegion       string
	SESFromEmail    string
	SESFromName     string

	// External OAuth Providers
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	PosthogAPIKey string
}

// GoogleEnabled reports whether Google sign-in can be offered.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// SESEnabled reports whether reset emails can be sent.
func (c *Config) SESEnabled() bool {
	return c.SESFromEmail != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("PORT", "5050")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "shope-lite")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,https://shope-lite.onrender.com")
	v.SetDefault("AUTH_RATE_LIMIT", "10-M")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("FRONTEND_BASE_URL", "http://localhost:5173")
	v.SetDefault("RESET_DEMO_MODE", true)
	v.SetDefault("SES_REGION", "us-east-1")
	v.SetDefault("SES_FROM_EMAIL", "")
	v.SetDefault("SES_FROM_NAME", "Shope Lite")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("POSTHOG_API_KEY", "")
}

// LoadConfig loads configuration from environment variables and .env file if present.
// It fails when JWT_SECRET is empty so the server never signs with a default key.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	return fromViper(newEnvViper())
}

// LoadStoreConfig loads only what offline tools need to reach the user store.
// It does not require JWT_SECRET.
func LoadStoreConfig() (*Config, error) {
	_ = godotenv.Load()

	v := newEnvViper()
	cfg := &Config{
		DatabaseURL:    v.GetString("PGSQL_URL"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
	}
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return cfg, nil
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:        v.GetString("PGSQL_URL"),
		MigrationsPath:     v.GetString("MIGRATIONS_PATH"),
		Port:               v.GetString("PORT"),
		IsProduction:       v.GetBool("IS_PRODUCTION"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTIssuer:          v.GetString("JWT_ISSUER"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		AuthRateLimit:      v.GetString("AUTH_RATE_LIMIT"),
		TrustedProxies:     splitList(v.GetString("TRUSTED_PROXIES")),
		FrontendBaseURL:    strings.TrimRight(v.GetString("FRONTEND_BASE_URL"), "/"),
		ResetDemoMode:      v.GetBool("RESET_DEMO_MODE"),
		SESRegion:          v.GetString("SES_REGION"),
		SESFromEmail:       v.GetString("SES_FROM_EMAIL"),
		SESFromName:        v.GetString("SES_FROM_NAME"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		PosthogAPIKey:      v.GetString("POSTHOG_API_KEY"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	if cfg.Port == "" {
		cfg.Port = "5050"
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL not set. Using in-memory user store, data is lost on restart.")
	}
	if !cfg.GoogleEnabled() {
		log.Println("Warning: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set. Google sign-in is disabled.")
	}
	if !cfg.SESEnabled() && !cfg.ResetDemoMode {
		log.Println("Warning: SES_FROM_EMAIL not set and RESET_DEMO_MODE is off. Reset links will not be delivered.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
