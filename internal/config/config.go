package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/biztrack/biztrack-server/internal/models"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	API          APIConfig          `yaml:"api"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	NATS         NATSConfig         `yaml:"nats"`
	JWT          JWTConfig          `yaml:"jwt"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Log          LogConfig          `yaml:"log"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
}

// ServerConfig represents server identity configuration
type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig represents REST API configuration
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `yaml:"url"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret          string        `yaml:"secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
}

// SMTPConfig represents the outbound mail configuration
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// AdminEmail receives renewal requests and platform notices.
	AdminEmail string `yaml:"admin_email"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SubscriptionConfig holds the trial policy and the per-plan limit catalog.
type SubscriptionConfig struct {
	TrialDays   int           `yaml:"trial_days"`
	TrialLimits models.Limits `yaml:"trial_limits"`

	// ExpirySweepCron is the schedule for the nightly expiry sweep,
	// in standard five-field cron syntax.
	ExpirySweepCron string `yaml:"expiry_sweep_cron"`

	// Plans maps a plan name to its limit set. A limit of zero or below
	// means unlimited.
	Plans map[string]models.Limits `yaml:"plans"`
}

// RateLimitConfig configures the shared request counter.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window_duration"`
}

// Load loads configuration from file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Database.DSN = dsn
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		c.Redis.Addr = redisAddr
	}

	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		c.NATS.URL = natsURL
	}

	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		c.JWT.Secret = jwtSecret
	}

	if smtpHost := os.Getenv("SMTP_HOST"); smtpHost != "" {
		c.SMTP.Host = smtpHost
	}

	if smtpUser := os.Getenv("SMTP_USERNAME"); smtpUser != "" {
		c.SMTP.Username = smtpUser
	}

	if smtpPass := os.Getenv("SMTP_PASSWORD"); smtpPass != "" {
		c.SMTP.Password = smtpPass
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Log.Level = logLevel
	}
}

// applyDefaults fills unset values
func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}

	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}

	if c.Subscription.TrialDays == 0 {
		c.Subscription.TrialDays = 40
	}
	if c.Subscription.ExpirySweepCron == "" {
		c.Subscription.ExpirySweepCron = "0 2 * * *"
	}
	if c.Subscription.TrialLimits == (models.Limits{}) {
		c.Subscription.TrialLimits = models.Limits{
			InvoiceLimit:   20,
			BranchLimit:    1,
			UserLimit:      5,
			SupplierLimit:  10,
			CustomerLimit:  50,
			ProductLimit:   100,
			CategoryLimit:  20,
			WarehouseLimit: 2,
		}
	}
	if c.Subscription.Plans == nil {
		c.Subscription.Plans = map[string]models.Limits{
			string(models.PlanBasic): {
				InvoiceLimit:   200,
				BranchLimit:    3,
				UserLimit:      10,
				SupplierLimit:  50,
				CustomerLimit:  500,
				ProductLimit:   1000,
				CategoryLimit:  50,
				WarehouseLimit: 5,
			},
			// Premium is unlimited across the board.
			string(models.PlanPremium): {},
		}
	}

	if c.RateLimit.RequestsPerWindow == 0 {
		c.RateLimit.RequestsPerWindow = 100
	}
	if c.RateLimit.WindowDuration == 0 {
		c.RateLimit.WindowDuration = time.Minute
	}
}

// PlanLimits returns the limit set for a plan name. The trial limit set is
// returned for the trial plan and for unknown names, so an unrecognized plan
// never grants unlimited usage.
func (c *SubscriptionConfig) PlanLimits(plan models.Plan) models.Limits {
	if plan == models.PlanTrial {
		return c.TrialLimits
	}
	if limits, ok := c.Plans[string(plan)]; ok {
		return limits
	}
	return c.TrialLimits
}
