package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Auth     AuthConfig
	PayPal   PayPalConfig
	Pricing  PricingConfig
	Upload   UploadConfig
	Catalog  CatalogConfig
}

type AppConfig struct {
	Name string
	Env  string
}

func (a AppConfig) IsProduction() bool {
	return a.Env == EnvProduction
}

type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns a lib/pq keyword/value connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	OrderTopic   string
	PaymentTopic string
	MaxRetries   int
}

type TracingConfig struct {
	Enabled        bool
	JaegerEndpoint string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Currency     string
	Verify       bool
	Timeout      time.Duration
}

type PricingConfig struct {
	FreeShippingThreshold float64
	FlatShipping          float64
	TaxRate               float64
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type CatalogConfig struct {
	PageSize int
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	floatVar := func(key string, def float64) float64 {
		v, err := getEnvFloat(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, def time.Duration) time.Duration {
		v, err := getEnvDuration(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("SERVICE_NAME", "engravape"),
			Env:  getEnv("APP_ENV", EnvDevelopment),
		},
		Server: ServerConfig{
			HTTPAddr:        ":" + getEnv("HTTP_PORT", "5000"),
			GRPCAddr:        ":" + getEnv("GRPC_PORT", "50051"),
			ReadTimeout:     durVar("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    durVar("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: durVar("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "engravape"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    intVar("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    intVar("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: durVar("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: durVar("DB_CONN_MAX_IDLE_TIME", time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  boolVar("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_HOST", "localhost") + ":" + getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       intVar("REDIS_DB", 0),
			TTL:      durVar("PRODUCT_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:      boolVar("KAFKA_ENABLED", false),
			Brokers:      strings.Split(getEnv("KAFKA_BROKER", "localhost:9092"), ","),
			OrderTopic:   getEnv("KAFKA_ORDER_TOPIC", "order_events"),
			PaymentTopic: getEnv("KAFKA_PAYMENT_TOPIC", "payment_events"),
			MaxRetries:   intVar("KAFKA_MAX_RETRIES", 3),
		},
		Tracing: TracingConfig{
			Enabled:        boolVar("TRACING_ENABLED", false),
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      durVar("JWT_TTL", 30*24*time.Hour),
			AdminName:     getEnv("ADMIN_NAME", "Admin User"),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", "sb"),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			BaseURL:      strings.TrimRight(getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"), "/"),
			Currency:     getEnv("PAYPAL_CURRENCY", "USD"),
			Verify:       boolVar("PAYPAL_VERIFY", true),
			Timeout:      durVar("PAYPAL_TIMEOUT", 10*time.Second),
		},
		Pricing: PricingConfig{
			FreeShippingThreshold: floatVar("FREE_SHIPPING_THRESHOLD", 100),
			FlatShipping:          floatVar("FLAT_SHIPPING_PRICE", 10),
			TaxRate:               floatVar("TAX_RATE", 0.15),
		},
		Upload: UploadConfig{
			Dir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(intVar("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Catalog: CatalogConfig{
			PageSize: intVar("CATALOG_PAGE_SIZE", 10),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.App.IsProduction() && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.App.IsProduction() && c.PayPal.Verify && c.PayPal.ClientSecret == "" {
		return errors.New("PAYPAL_CLIENT_SECRET is required when PAYPAL_VERIFY is on in production")
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.FlatShipping < 0 || c.Pricing.FreeShippingThreshold < 0 {
		return errors.New("pricing values must be non-negative")
	}
	if c.Catalog.PageSize <= 0 {
		return errors.New("CATALOG_PAGE_SIZE must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
