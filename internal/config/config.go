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
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Payment  PaymentConfig
	Shipping ShippingConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	FrontendURL    string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	SessionExpiry      time.Duration
	AdminEmail         string
	AdminPassword      string
	LoginMaxAttempts   int
	LoginWindow        time.Duration
	LoginLock          time.Duration
	EmailRequestMax    int
	EmailRequestWindow time.Duration
	VerificationExpiry time.Duration
	ResetExpiry        time.Duration
	NameMaxLen         int
	CleanupInterval    time.Duration
}

type EmailConfig struct {
	AWSRegion   string
	FromAddress string
	FromName    string
	StoreEmail  string
}

type PaymentConfig struct {
	AccessToken         string
	WebhookSecret       string
	WebhookURL          string
	APIBaseURL          string
	LookupTimeout       time.Duration
	StatementDescriptor string
}

type ShippingConfig struct {
	Token            string
	CalculatorURL    string
	OriginPostalCode string
	UserAgent        string
	Timeout          time.Duration
}

type StorageConfig struct {
	UploadDir     string
	MaxUploadSize int64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	frontendURL := getEnv("FRONTEND_URL", "http://localhost:5173")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "storefront"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			FrontendURL:    strings.TrimRight(frontendURL, "/"),
			AllowedOrigins: parseAllowedOrigins(frontendURL),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			SessionExpiry:      getEnvAsDuration("SESSION_EXPIRY", 2*time.Hour),
			AdminEmail:         strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
			AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
			LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:        getEnvAsMillis("LOGIN_WINDOW_MS", 15*time.Minute),
			LoginLock:          getEnvAsMillis("LOGIN_LOCK_MS", 15*time.Minute),
			EmailRequestMax:    getEnvAsInt("EMAIL_REQ_MAX", 5),
			EmailRequestWindow: getEnvAsMillis("EMAIL_REQ_WINDOW_MS", 15*time.Minute),
			VerificationExpiry: getEnvAsDuration("VERIFICATION_TOKEN_EXPIRY", 24*time.Hour),
			ResetExpiry:        getEnvAsDuration("RESET_TOKEN_EXPIRY", 15*time.Minute),
			NameMaxLen:         getEnvAsInt("NAME_MAX_LEN", 60),
			CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 5*time.Minute),
		},
		Email: EmailConfig{
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM", getEnv("EMAIL_USER", "")),
			FromName:    getEnv("EMAIL_FROM_NAME", "Loja Pijamas"),
			StoreEmail:  getEnv("STORE_EMAIL", getEnv("EMAIL_USER", "")),
		},
		Payment: PaymentConfig{
			AccessToken:         getEnv("MP_ACCESS_TOKEN", ""),
			WebhookSecret:       getEnv("MP_WEBHOOK_SECRET", getEnv("WEBHOOK_SECRET", "")),
			WebhookURL:          getEnv("MP_WEBHOOK_URL", getEnv("WEBHOOK_URL", "")),
			APIBaseURL:          strings.TrimRight(getEnv("MP_API_BASE_URL", "https://api.mercadopago.com"), "/"),
			LookupTimeout:       getEnvAsDuration("MP_LOOKUP_TIMEOUT", 10*time.Second),
			StatementDescriptor: getEnv("MP_STATEMENT_DESCRIPTOR", "Cia de Pijamas"),
		},
		Shipping: ShippingConfig{
			Token:            getEnv("SUPERFRETE_TOKEN", ""),
			CalculatorURL:    getEnv("SUPERFRETE_URL", "https://sandbox.superfrete.com/api/v0/calculator"),
			OriginPostalCode: getEnv("CEP_ORIGEM", "08589320"),
			UserAgent:        getEnv("SUPERFRETE_USER_AGENT", "LojaPijamas (contato@lojapijamas.com.br)"),
			Timeout:          getEnvAsDuration("SUPERFRETE_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadSize: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "")),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-status"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.Auth.LoginMaxAttempts <= 0 {
		return nil, fmt.Errorf("LOGIN_MAX_ATTEMPTS must be positive (got %d)", cfg.Auth.LoginMaxAttempts)
	}

	if cfg.Auth.CleanupInterval <= 0 {
		return nil, fmt.Errorf("CLEANUP_INTERVAL must be positive (got %s)", cfg.Auth.CleanupInterval)
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

// getEnvAsMillis reads an integer number of milliseconds
func getEnvAsMillis(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAllowedOrigins returns ALLOWED_ORIGINS when set, otherwise the frontend URL
func parseAllowedOrigins(frontendURL string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 {
		return origins
	}
	return []string{strings.TrimRight(frontendURL, "/")}
}
