package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Integration IntegrationConfig
	Storage     StorageConfig
	Email       EmailConfig
	Cron        CronConfig
	Seed        SeedConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	CORSOrigins string
	BodyLimit   int
}

type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	URL        string
	SQLitePath string
	MaxOpen    int
	MaxIdle    int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// IntegrationConfig guards the /api/integration routes called by the
// WhatsApp automation engine.
type IntegrationConfig struct {
	Secret        string
	PublicSiteURL string
}

// StorageConfig points at the S3 bucket holding property images. Empty
// keys fall back to the default AWS credential chain.
type StorageConfig struct {
	Bucket          string
	Region          string
	PublicBaseURL   string
	AccessKeyID     string
	SecretAccessKey string
}

type EmailConfig struct {
	ResendAPIKey string
	From         string
	NotifyTo     string
}

type CronConfig struct {
	Enabled     bool
	MetricsSpec string
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			Environment: getEnv("APP_ENV", "development"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
			BodyLimit:   getEnvAsInt("BODY_LIMIT_MB", 12) * 1024 * 1024,
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:        getEnv("DATABASE_URL", ""),
			SQLitePath: getEnv("SQLITE_PATH", "corretor.db"),
			MaxOpen:    getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdle:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    time.Duration(getEnvAsInt("JWT_TTL_HOURS", 24)) * time.Hour,
		},
		Integration: IntegrationConfig{
			Secret:        getEnv("INTEGRATION_SECRET", ""),
			PublicSiteURL: strings.TrimRight(getEnv("PUBLIC_SITE_URL", "https://corretordasmansoes.com"), "/"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("AWS_BUCKET_NAME", ""),
			Region:          getEnv("AWS_REGION", "sa-east-1"),
			PublicBaseURL:   strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", ""), "/"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "Corretor das Mansões <noreply@corretordasmansoes.com>"),
			NotifyTo:     getEnv("LEAD_NOTIFY_EMAIL", ""),
		},
		Cron: CronConfig{
			Enabled:     getEnvAsBool("CRON_ENABLED", true),
			MetricsSpec: getEnv("CRON_METRICS_SPEC", "*/15 * * * *"),
		},
		Seed: SeedConfig{
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
			AdminName:     getEnv("ADMIN_NAME", "Administrador"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWT.Secret = "dev-only-secret"
	}

	if c.IsProduction() && c.Integration.Secret == "" {
		return fmt.Errorf("INTEGRATION_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (d DatabaseConfig) IsPostgres() bool {
	return d.Driver == "postgres"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
