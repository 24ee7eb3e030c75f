// ==============================================================================
// CONFIG PACKAGE - pkg/config/config.go
// ==============================================================================
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Email        EmailConfig
	Verification VerificationConfig
	Security     SecurityConfig
	Minio        MinioConfig
	KYC          KYCConfig
	Mock         MockConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    int
	// AllowedOrigins restricts CORS; empty reflects the request origin.
	AllowedOrigins []string
	MaxBodyBytes   int64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig backs the per-user key/value store. An empty URL selects the
// in-memory store and disables rate limiting and idempotency.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
}

type VerificationConfig struct {
	Issuer     string
	CodePeriod time.Duration
}

// SecurityConfig holds the hex encoded AES-256 key for secrets at rest.
// Empty generates a key per process.
type SecurityConfig struct {
	EncryptionKey string
}

// MinioConfig holds document storage settings. An empty endpoint keeps
// documents in memory.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

type KYCConfig struct {
	VerificationDelay   time.Duration
	CreatorReviewDelay  time.Duration
	SimulateFailures    bool
	ProfileUploadDelay  time.Duration
	IdentityUploadDelay time.Duration
	VehicleUploadDelay  time.Duration
	ProfileFailureRate  float64
	IdentityFailureRate float64
	VehicleFailureRate  float64
	MaxDocumentSize     int64
}

type MockConfig struct {
	DeliveryCount int
	TaskCount     int
	// Seed of 0 means a time-based seed.
	Seed uint64
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			RateLimit:      getIntEnv("RATE_LIMIT_PER_MINUTE", 120),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS"),
			MaxBodyBytes:   int64(getIntEnv("SERVER_MAX_BODY_BYTES", 32<<20)),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      normalizeRedisURL(getEnv("REDIS_URL", "")),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getDurationEnv("JWT_EXPIRATION", 24*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:     getEnv("SMTP_FROM", ""),
			SMTPUseTLS:   getBoolEnv("SMTP_USE_TLS", true),
		},
		Verification: VerificationConfig{
			Issuer:     getEnv("VERIFICATION_ISSUER", "taskhub"),
			CodePeriod: getDurationEnv("VERIFICATION_CODE_PERIOD", 10*time.Minute),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "kyc-documents"),
			UseSSL:    getBoolEnv("MINIO_USE_SSL", false),
			URLExpiry: getDurationEnv("MINIO_URL_EXPIRY", 24*time.Hour),
		},
		KYC: KYCConfig{
			VerificationDelay:   getDurationEnv("KYC_VERIFICATION_DELAY", 3*time.Second),
			CreatorReviewDelay:  getDurationEnv("KYC_CREATOR_REVIEW_DELAY", 2*time.Second),
			SimulateFailures:    getBoolEnv("KYC_SIMULATE_FAILURES", true),
			ProfileUploadDelay:  getDurationEnv("KYC_PROFILE_UPLOAD_DELAY", 1500*time.Millisecond),
			IdentityUploadDelay: getDurationEnv("KYC_IDENTITY_UPLOAD_DELAY", 2*time.Second),
			VehicleUploadDelay:  getDurationEnv("KYC_VEHICLE_UPLOAD_DELAY", 2*time.Second),
			ProfileFailureRate:  getFloatEnv("KYC_PROFILE_FAILURE_RATE", 0.5),
			IdentityFailureRate: getFloatEnv("KYC_IDENTITY_FAILURE_RATE", 0.4),
			VehicleFailureRate:  getFloatEnv("KYC_VEHICLE_FAILURE_RATE", 0.4),
			MaxDocumentSize:     int64(getIntEnv("KYC_MAX_DOCUMENT_SIZE", 10<<20)),
		},
		Mock: MockConfig{
			DeliveryCount: getIntEnv("MOCK_DELIVERY_COUNT", 50),
			TaskCount:     getIntEnv("MOCK_TASK_COUNT", 20),
			Seed:          uint64(getIntEnv("MOCK_SEED", 0)),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeRedisURL(url string) string {
	// Strip redis:// or redis+tls:// scheme if present
	if strings.HasPrefix(url, "redis+tls://") {
		return url[len("redis+tls://"):]
	}
	if strings.HasPrefix(url, "redis://") {
		return url[len("redis://"):]
	}
	return url
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultValue
}
