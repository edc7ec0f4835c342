package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProcessorMode selects which escrow engine the service is built with.
type ProcessorMode string

const (
	ProcessorModeLive    ProcessorMode = "live"
	ProcessorModeSandbox ProcessorMode = "sandbox"
)

func ParseProcessorMode(raw string) (ProcessorMode, error) {
	switch mode := ProcessorMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ProcessorModeLive, ProcessorModeSandbox:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid processor mode %q: expected live or sandbox", raw)
	}
}

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	MySQL             MySQLConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Stripe            StripeConfig
	Escrow            EscrowConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type StripeConfig struct {
	SecretKey            string
	WebhookSecret        string
	OnboardingRefreshURL string
	OnboardingReturnURL  string
	HTTPTimeout          time.Duration
	APIBaseURL           string

	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
	BreakerInterval         time.Duration
}

type EscrowConfig struct {
	Mode ProcessorMode

	// DefaultPlatformFeePercent applies when a create request names no fee.
	// Nil means 5; an explicit 0 disables the default fee.
	DefaultPlatformFeePercent *float64

	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type JobsConfig struct {
	ReconcileInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	mode, err := ParseProcessorMode(getEnv("ESCROW_PROCESSOR_MODE", string(ProcessorModeLive)))
	if err != nil {
		return nil, err
	}

	secretKey := getEnv("STRIPE_SECRET_KEY", "")
	if mode == ProcessorModeLive && secretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY environment variable is required in live processor mode")
	}

	feePercent := getFloatEnv("ESCROW_DEFAULT_PLATFORM_FEE_PERCENT", 5)
	if feePercent < 0 || feePercent > 100 {
		return nil, fmt.Errorf("ESCROW_DEFAULT_PLATFORM_FEE_PERCENT must be within [0,100], got %v", feePercent)
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "escrow-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Stripe: StripeConfig{
			SecretKey:            secretKey,
			WebhookSecret:        getEnv("STRIPE_WEBHOOK_SECRET", ""),
			OnboardingRefreshURL: getEnv("STRIPE_ONBOARDING_REFRESH_URL", ""),
			OnboardingReturnURL:  getEnv("STRIPE_ONBOARDING_RETURN_URL", ""),
			HTTPTimeout:          getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			APIBaseURL:           getEnv("STRIPE_API_BASE_URL", ""),

			BreakerFailureThreshold: uint32(getIntEnv("STRIPE_BREAKER_FAILURE_THRESHOLD", 5)),
			BreakerOpenTimeout:      getSecondsEnv("STRIPE_BREAKER_OPEN_TIMEOUT_SECONDS", 30*time.Second),
			BreakerInterval:         getSecondsEnv("STRIPE_BREAKER_INTERVAL_SECONDS", 60*time.Second),
		},
		Escrow: EscrowConfig{
			Mode:                      mode,
			DefaultPlatformFeePercent: &feePercent,
			ReconcileStaleAfter:       getMinutesEnv("ESCROW_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:              int32(getIntEnv("ESCROW_JOB_BATCH_SIZE", 100)),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("ESCROW_RECONCILE_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
