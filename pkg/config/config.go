package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string

	// Supabase/hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	// SessionTTLHours bounds login sessions; revocation is explicit.
	SessionTTLHours int

	// PortalLinkSecret signs the short-lived action links embedded in client emails.
	PortalLinkSecret string
	// PortalLinkTTLHours bounds how long an emailed decision link stays usable.
	PortalLinkTTLHours int
	// PortalBaseURL is the externally reachable client portal, used when building links.
	PortalBaseURL string

	// PortalAllowedOrigins is a comma-separated allowlist of origins allowed to call
	// the public portal endpoints (token-based).
	PortalAllowedOrigins []string

	Email EmailConfig

	Storage StorageConfig

	// RoutingMirrors is the ordered list of upstream routing services tried in sequence.
	RoutingMirrors []string
	// RoutingTimeoutSeconds is the per-mirror attempt timeout.
	RoutingTimeoutSeconds int

	// RedisURL enables the routing result cache when set; empty disables it.
	RedisURL string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

// EmailConfig selects and configures the one active mail adapter.
// Provider is "smtp" or "log"; nothing is inferred from which file got loaded.
type EmailConfig struct {
	Provider string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	FromAddr string
	FromName string
}

type StorageConfig struct {
	// BaseURL and ServiceKey point at the hosted object-storage API.
	BaseURL    string
	ServiceKey string
	Bucket     string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "homeservices"),
			User:     env("DB_USER", "homeservices"),
			Password: env("DB_PASSWORD", "homeservices"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},

		SessionTTLHours: envInt("SESSION_TTL_HOURS", 72),

		PortalLinkSecret:   os.Getenv("PORTAL_LINK_SECRET"),
		PortalLinkTTLHours: envInt("PORTAL_LINK_TTL_HOURS", 168),
		PortalBaseURL:      os.Getenv("PORTAL_BASE_URL"),

		PortalAllowedOrigins: envList("PORTAL_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:4173"),

		Email: EmailConfig{
			Provider: env("EMAIL_PROVIDER", "log"),
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: envInt("SMTP_PORT", 587),
			SMTPUser: os.Getenv("SMTP_USER"),
			SMTPPass: os.Getenv("SMTP_PASS"),
			FromAddr: os.Getenv("EMAIL_FROM_ADDR"),
			FromName: env("EMAIL_FROM_NAME", "HomeServices"),
		},

		Storage: StorageConfig{
			BaseURL:    os.Getenv("STORAGE_BASE_URL"),
			ServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),
			Bucket:     env("STORAGE_BUCKET", "attachments"),
		},

		RoutingMirrors: envList("ROUTING_MIRRORS",
			"https://router.project-osrm.org,https://routing.openstreetmap.de/routed-car"),
		RoutingTimeoutSeconds: envInt("ROUTING_TIMEOUT_SECONDS", 8),

		RedisURL: os.Getenv("REDIS_URL"),
	}
}

// Validate reports missing required secrets. Called once at startup; a failure
// here is fatal rather than surfacing as per-request 500s.
func (c Config) Validate() error {
	if c.AppEnv != "dev" && c.PortalLinkSecret == "" {
		return fmt.Errorf("config: PORTAL_LINK_SECRET is required outside dev")
	}
	if c.Email.Provider == "smtp" && c.Email.SMTPHost == "" {
		return fmt.Errorf("config: EMAIL_PROVIDER=smtp requires SMTP_HOST")
	}
	if c.Email.Provider != "smtp" && c.Email.Provider != "log" {
		return fmt.Errorf("config: unknown EMAIL_PROVIDER %q", c.Email.Provider)
	}
	if len(c.RoutingMirrors) == 0 {
		return fmt.Errorf("config: ROUTING_MIRRORS must not be empty")
	}
	return nil
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
