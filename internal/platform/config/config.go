package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// EnvFileVar names the variable that points at an optional env file loaded at startup.
	EnvFileVar = "API_ENV_FILE"

	defaultHTTPAddr        = ":8080"
	defaultShutdownTimeout = 15 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultEnvironment     = "local"
	defaultDeliveryWindow  = 72 * time.Hour
)

// ValidationError aggregates configuration problems discovered during Load.
type ValidationError struct {
	Issues []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "config: invalid configuration"
	}
	return fmt.Sprintf("config: invalid configuration: %s", strings.Join(e.Issues, "; "))
}

// ServerConfig groups HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// FirestoreConfig selects the Firestore project, optionally targeting the emulator.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// FirebaseConfig configures Firebase Admin SDK initialisation for auth.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// PSPConfig holds payment service provider credentials and redirect targets.
// Secret-valued fields accept secret:// references resolved at startup.
type PSPConfig struct {
	StripeAPIKey        string
	StripeWebhookSecret string
	SuccessURL          string
	CancelURL           string
}

// StorageConfig selects the Cloud Storage bucket and signing identity for assets.
type StorageConfig struct {
	Bucket             string
	SignerEmail        string
	ServiceAccountFile string
}

// EventsConfig configures the Pub/Sub topic used for order lifecycle events.
type EventsConfig struct {
	ProjectID string
	Topic     string
	Disabled  bool
}

// OrdersConfig holds order domain tunables.
type OrdersConfig struct {
	DeliveryWindow time.Duration
	NumberPrefix   string
}

// SecretsConfig configures Secret Manager resolution of secret:// references.
type SecretsConfig struct {
	ProjectID    string
	FallbackPath string
}

// Config is the root configuration assembled from the environment.
type Config struct {
	Environment string
	Server      ServerConfig
	Firestore   FirestoreConfig
	Firebase    FirebaseConfig
	PSP         PSPConfig
	Storage     StorageConfig
	Events      EventsConfig
	Orders      OrdersConfig
	Secrets     SecretsConfig
}

// Load assembles the configuration from the process environment. When
// API_ENV_FILE is set the referenced file is loaded first without overriding
// variables already present.
func Load() (Config, error) {
	if envFile := strings.TrimSpace(os.Getenv(EnvFileVar)); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("config: load env file %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Environment: getString("APP_ENV", defaultEnvironment),
		Server: ServerConfig{
			Addr:            getString("HTTP_ADDR", defaultHTTPAddr),
			ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:    getString("FIRESTORE_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			EmulatorHost: getString("FIRESTORE_EMULATOR_HOST", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getString("FIREBASE_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			CredentialsFile: getString("FIREBASE_CREDENTIALS_FILE", ""),
		},
		PSP: PSPConfig{
			StripeAPIKey:        getString("STRIPE_API_KEY", ""),
			StripeWebhookSecret: getString("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:          getString("CHECKOUT_SUCCESS_URL", ""),
			CancelURL:           getString("CHECKOUT_CANCEL_URL", ""),
		},
		Storage: StorageConfig{
			Bucket:             getString("STORAGE_BUCKET", ""),
			SignerEmail:        getString("STORAGE_SIGNER_EMAIL", ""),
			ServiceAccountFile: getString("STORAGE_SERVICE_ACCOUNT_FILE", ""),
		},
		Events: EventsConfig{
			ProjectID: getString("EVENTS_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			Topic:     getString("EVENTS_TOPIC", "order-events"),
			Disabled:  getBool("EVENTS_DISABLED", false),
		},
		Orders: OrdersConfig{
			DeliveryWindow: getDuration("ORDER_DELIVERY_WINDOW", defaultDeliveryWindow),
			NumberPrefix:   getString("ORDER_NUMBER_PREFIX", "SK"),
		},
		Secrets: SecretsConfig{
			ProjectID:    getString("SECRETS_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			FallbackPath: getString("SECRETS_FALLBACK_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements and reports every issue at once.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Server.Addr) == "" {
		issues = append(issues, "HTTP_ADDR must not be empty")
	}
	if strings.TrimSpace(c.Firestore.ProjectID) == "" && strings.TrimSpace(c.Firestore.EmulatorHost) == "" {
		issues = append(issues, "FIRESTORE_PROJECT_ID is required unless the emulator is configured")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.PSP.StripeAPIKey) == "" {
			issues = append(issues, "STRIPE_API_KEY is required in production")
		}
		if strings.TrimSpace(c.PSP.StripeWebhookSecret) == "" {
			issues = append(issues, "STRIPE_WEBHOOK_SECRET is required in production")
		}
		if strings.TrimSpace(c.Firebase.ProjectID) == "" {
			issues = append(issues, "FIREBASE_PROJECT_ID is required in production")
		}
	}
	if c.Orders.DeliveryWindow <= 0 {
		issues = append(issues, "ORDER_DELIVERY_WINDOW must be positive")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// IsProduction reports whether the configuration targets a production environment.
func (c Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// SecretRefs returns the configured values that may carry secret:// references
// and need resolution before use, keyed by a stable name.
func (c Config) SecretRefs() map[string]string {
	return map[string]string{
		"psp.stripe_api_key":        c.PSP.StripeAPIKey,
		"psp.stripe_webhook_secret": c.PSP.StripeWebhookSecret,
	}
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
