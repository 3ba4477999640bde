package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds all application configuration.
type Config struct {
	HTTP      HTTPConfig
	GRPC      GRPCConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Delivery  DeliveryConfig
	Notify    NotifyConfig
	Payment   PaymentConfig
	Log       LogConfig
	Telemetry TelemetryConfig
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Address string `env:"HTTP_ADDRESS" envDefault:":8000"`
}

// GRPCConfig contains the operational gRPC port settings (health checks).
type GRPCConfig struct {
	Address string `env:"GRPC_ADDRESS" envDefault:":50051"`
}

// DatabaseConfig selects and configures the document store.
type DatabaseConfig struct {
	Driver   string `env:"STORE_DRIVER" envDefault:"sqlite"` // "sqlite" or "mongo"
	Path     string `env:"DB_PATH" envDefault:"app.db"`      // SQLite database file path
	MongoURI string `env:"MONGODB_URI"`
	MongoDB  string `env:"MONGODB_DB" envDefault:"foodway"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"JWT_TTL" envDefault:"168h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// DeliveryConfig contains OTP and agent matching settings.
type DeliveryConfig struct {
	OTPLength     int           `env:"OTP_LENGTH" envDefault:"4"`
	OTPTTL        time.Duration `env:"OTP_TTL" envDefault:"1h"`
	SweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL" envDefault:"2h"`
	SweepBatch    int           `env:"OTP_SWEEP_BATCH" envDefault:"500"`
	RadiusKm      float64       `env:"DELIVERY_RADIUS_KM" envDefault:"5"`
}

// NotifyConfig contains real-time push settings. Redis is optional.
type NotifyConfig struct {
	Timeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"3s"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	ChannelPrefix string        `env:"REDIS_CHANNEL_PREFIX" envDefault:"foodway"`
}

// PaymentConfig contains Razorpay credentials. Online payments are disabled when empty.
type PaymentConfig struct {
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET"`
	Currency          string `env:"PAYMENT_CURRENCY" envDefault:"INR"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE"` // optional rotating log file
}

// TelemetryConfig contains tracing settings. Tracing is off when Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string `env:"OTEL_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"food-delivery"`
}

// Load loads configuration from the environment (and an optional .env file).
// JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}

	// Validate critical settings
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	cfg, err := parse()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	return cfg, nil
}

func parse() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv reads ENV_FILE (default ".env") when present. Variables already set
// in the process environment win.
func loadDotEnv() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "sqlite":
	case "mongo":
		if c.Database.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORE_DRIVER=mongo")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver)
	}
	if c.Delivery.OTPLength < 4 || c.Delivery.OTPLength > 6 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 6, got %d", c.Delivery.OTPLength)
	}
	if c.Delivery.OTPTTL <= 0 {
		return errors.New("OTP_TTL must be positive")
	}
	if c.Delivery.SweepInterval <= 0 {
		return errors.New("OTP_SWEEP_INTERVAL must be positive")
	}
	if c.Delivery.SweepBatch <= 0 {
		return errors.New("OTP_SWEEP_BATCH must be positive")
	}
	if c.Delivery.RadiusKm <= 0 {
		return errors.New("DELIVERY_RADIUS_KM must be positive")
	}
	return nil
}

// PaymentsEnabled reports whether Razorpay credentials are configured.
func (c *Config) PaymentsEnabled() bool {
	return c.Payment.RazorpayKeyID != "" && c.Payment.RazorpayKeySecret != ""
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{HTTP: %s, gRPC: %s, Store: %s, Radius: %.1fkm, OTP: %d digits/%s, Sweep: %s, Redis: %t, Payments: %t, Auth: *** (masked) ***}",
		c.HTTP.Address, c.GRPC.Address, c.Database.Driver, c.Delivery.RadiusKm,
		c.Delivery.OTPLength, c.Delivery.OTPTTL, c.Delivery.SweepInterval,
		c.Notify.RedisAddr != "", c.PaymentsEnabled())
}
