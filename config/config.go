package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	Coupon   CouponConfig
	Exam     ExamConfig
	AWS      AWSConfig
	Email    EmailConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	CheckoutRateLimit  int    // checkout attempts per user per minute; 0 disables
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/marketplace?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// PaymentConfig holds the simulated gateway settings.
type PaymentConfig struct {
	TokenSecret     string
	TokenTTLMinutes int
	GatewayEnabled  bool // false = immediate checkout (create + confirm in one step)
}

// CouponConfig controls how long an applied coupon is remembered per user.
type CouponConfig struct {
	SessionTTLHours int
}

// ExamConfig holds exam grading defaults.
type ExamConfig struct {
	DefaultPassingPercent int
}

// AWSConfig holds AWS credentials and the credentials archive bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	CertificatesBucket   string
	PresignExpireMinutes int
}

// EmailConfig for SMTP delivery. Empty SMTPHost logs messages instead of sending.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// WorkerConfig holds background email worker settings.
type WorkerConfig struct {
	QueueName           string
	RetryBackoffSeconds int
	InProcess           bool // also drain the email queue inside cmd/server
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			CheckoutRateLimit:  getEnvInt("CHECKOUT_RATE_LIMIT", 10),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "marketplace"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Payment: PaymentConfig{
			TokenSecret:     getEnv("PAYMENT_TOKEN_SECRET", "change-me-payment-secret"),
			TokenTTLMinutes: getEnvInt("PAYMENT_TOKEN_TTL_MINUTES", 30),
			GatewayEnabled:  getEnvBool("PAYMENT_GATEWAY_ENABLED", true),
		},
		Coupon: CouponConfig{
			SessionTTLHours: getEnvInt("COUPON_SESSION_TTL_HOURS", 24),
		},
		Exam: ExamConfig{
			DefaultPassingPercent: getEnvInt("EXAM_DEFAULT_PASSING_PERCENT", 70),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CertificatesBucket:   getEnv("AWS_S3_CERTIFICATES_BUCKET", "marketplace-certificates"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "SkillForge"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Worker: WorkerConfig{
			QueueName:           getEnv("WORKER_QUEUE_NAME", "worker:emails"),
			RetryBackoffSeconds: getEnvInt("WORKER_RETRY_BACKOFF_SEC", 10),
			InProcess:           getEnvBool("WORKER_IN_PROCESS", false),
		},
	}
	if cfg.Payment.TokenTTLMinutes <= 0 {
		return nil, fmt.Errorf("PAYMENT_TOKEN_TTL_MINUTES must be positive")
	}
	if cfg.Exam.DefaultPassingPercent < 0 || cfg.Exam.DefaultPassingPercent > 100 {
		return nil, fmt.Errorf("EXAM_DEFAULT_PASSING_PERCENT must be within 0..100")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
