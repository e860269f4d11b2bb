package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreFirestore = "firestore"
	StoreMySQL     = "mysql"
	StoreSQLite    = "sqlite"
	StoreMemory    = "memory"
)

// Auth providers and blob drivers.
const (
	AuthFirebase = "firebase"
	AuthLocal    = "local"
	BlobFirebase = "firebase"
	BlobLocal    = "local"
)

// Config holds all configuration for the application.
type Config struct {
	Port      string `mapstructure:"PORT"`
	GinMode   string `mapstructure:"GIN_MODE"`
	ClientURL string `mapstructure:"CLIENT_URL"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`

	AuthProvider                     string        `mapstructure:"AUTH_PROVIDER"`
	FirebaseProjectID                string        `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string        `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string        `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseWebAPIKey                string        `mapstructure:"FIREBASE_WEB_API_KEY"`
	FirebaseStorageBucket            string        `mapstructure:"FIREBASE_STORAGE_BUCKET"`
	JWTSecret                        string        `mapstructure:"JWT_SECRET"`
	JWTTTL                           time.Duration `mapstructure:"JWT_TTL"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseDSN string `mapstructure:"DATABASE_DSN"`

	BlobDriver     string `mapstructure:"BLOB_DRIVER"`
	UploadDir      string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL  string `mapstructure:"PUBLIC_BASE_URL"`
	MaxUploadBytes int64  `mapstructure:"MAX_UPLOAD_BYTES"`

	StripeSecretKey       string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	CreditUnitPrice       string `mapstructure:"CREDIT_UNIT_PRICE"`
	CreditCurrency        string `mapstructure:"CREDIT_CURRENCY"`
	CreditPackagesRaw     string `mapstructure:"CREDIT_PACKAGES"`
	MaxCreditsPerPurchase int64  `mapstructure:"MAX_CREDITS_PER_PURCHASE"`

	GoogleMapsAPIKey string        `mapstructure:"GOOGLE_MAPS_API_KEY"`
	PlacesLanguage   string        `mapstructure:"PLACES_LANGUAGE"`
	PlacesCacheTTL   time.Duration `mapstructure:"PLACES_CACHE_TTL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`
	EventsQueue string `mapstructure:"EVENTS_QUEUE"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort string `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
	MailFrom string `mapstructure:"MAIL_FROM"`

	CollaboratorTimeout time.Duration `mapstructure:"COLLABORATOR_TIMEOUT"`
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Parsed from CreditUnitPrice and CreditPackagesRaw by LoadConfig.
	UnitPrice      decimal.Decimal `mapstructure:"-"`
	CreditPackages []int64         `mapstructure:"-"`
}

var envKeys = []string{
	"PORT", "GIN_MODE", "CLIENT_URL", "LOG_LEVEL",
	"AUTH_PROVIDER", "FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64", "FIREBASE_WEB_API_KEY", "FIREBASE_STORAGE_BUCKET",
	"JWT_SECRET", "JWT_TTL",
	"STORE_DRIVER", "DATABASE_DSN",
	"BLOB_DRIVER", "UPLOAD_DIR", "PUBLIC_BASE_URL", "MAX_UPLOAD_BYTES",
	"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "CREDIT_UNIT_PRICE", "CREDIT_CURRENCY",
	"CREDIT_PACKAGES", "MAX_CREDITS_PER_PURCHASE",
	"GOOGLE_MAPS_API_KEY", "PLACES_LANGUAGE", "PLACES_CACHE_TTL",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"RABBITMQ_URL", "EVENTS_QUEUE",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "MAIL_FROM",
	"COLLABORATOR_TIMEOUT", "SHUTDOWN_TIMEOUT",
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_PROVIDER", AuthFirebase)
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("STORE_DRIVER", StoreFirestore)
	v.SetDefault("BLOB_DRIVER", BlobFirebase)
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 5<<20)
	v.SetDefault("CREDIT_UNIT_PRICE", "50.00")
	v.SetDefault("CREDIT_CURRENCY", "eur")
	v.SetDefault("CREDIT_PACKAGES", "1,5,10,20")
	v.SetDefault("MAX_CREDITS_PER_PURCHASE", 100)
	v.SetDefault("PLACES_LANGUAGE", "fr")
	v.SetDefault("PLACES_CACHE_TTL", "24h")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("EVENTS_QUEUE", "contacts.events")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("COLLABORATOR_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	price, err := decimal.NewFromString(cfg.CreditUnitPrice)
	if err != nil || !price.IsPositive() {
		return nil, fmt.Errorf("CREDIT_UNIT_PRICE must be a positive decimal, got %q", cfg.CreditUnitPrice)
	}
	cfg.UnitPrice = price

	packages, err := parsePackages(cfg.CreditPackagesRaw)
	if err != nil {
		return nil, err
	}
	cfg.CreditPackages = packages

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks the settings that are required for the selected drivers.
func (c *Config) validate() error {
	usesFirebase := c.AuthProvider == AuthFirebase || c.StoreDriver == StoreFirestore || c.BlobDriver == BlobFirebase

	switch c.AuthProvider {
	case AuthFirebase:
		if c.FirebaseWebAPIKey == "" {
			return errors.New("FIREBASE_WEB_API_KEY is required when AUTH_PROVIDER=firebase")
		}
	case AuthLocal:
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET of at least 32 bytes is required when AUTH_PROVIDER=local")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.StoreDriver {
	case StoreFirestore, StoreMemory:
	case StoreMySQL, StoreSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required when STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.BlobDriver {
	case BlobFirebase:
		if c.FirebaseStorageBucket == "" {
			return errors.New("FIREBASE_STORAGE_BUCKET is required when BLOB_DRIVER=firebase")
		}
	case BlobLocal:
		if c.PublicBaseURL == "" {
			return errors.New("PUBLIC_BASE_URL is required when BLOB_DRIVER=local")
		}
	default:
		return fmt.Errorf("unsupported BLOB_DRIVER %q", c.BlobDriver)
	}

	if usesFirebase && c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.StripeSecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.GoogleMapsAPIKey == "" {
		return errors.New("GOOGLE_MAPS_API_KEY is required")
	}
	if c.ClientURL == "" {
		return errors.New("CLIENT_URL is required")
	}
	if c.MaxCreditsPerPurchase <= 0 {
		return errors.New("MAX_CREDITS_PER_PURCHASE must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.CollaboratorTimeout <= 0 {
		return errors.New("COLLABORATOR_TIMEOUT must be positive")
	}
	return nil
}

// SMTPEnabled reports whether purchase receipts can be mailed.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != "" && c.MailFrom != ""
}

func parsePackages(raw string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("CREDIT_PACKAGES contains an invalid quantity %q", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("CREDIT_PACKAGES must list at least one quantity")
	}
	return out, nil
}
