package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Mint      MintConfig      `mapstructure:"mint"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Selector  SelectorConfig  `mapstructure:"selector"`
	Backup    BackupConfig    `mapstructure:"backup"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test

	MaxBodyBytes     int64  `mapstructure:"max_body_bytes"`
	ChatMaxBodyBytes int64  `mapstructure:"chat_max_body_bytes"` // prompts and attachments
	OpenAPIPath      string `mapstructure:"openapi_path"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// StatementTimeout bounds every query; a stuck ledger write must not hold
	// the wallet lock forever.
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// MintConfig describes the default mint and how the gateway talks to it.
type MintConfig struct {
	URLs           []string      `mapstructure:"urls"`
	Unit           string        `mapstructure:"unit"` // sat or msat
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DefaultURL returns the first configured mint, or "" if none.
func (m MintConfig) DefaultURL() string {
	if len(m.URLs) == 0 {
		return ""
	}
	return m.URLs[0]
}

type ProviderConfig struct {
	RefundPath     string        `mapstructure:"refund_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// InvoiceConfig controls polling cadence and retention of stored invoices.
type InvoiceConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	FastPollInterval time.Duration `mapstructure:"fast_poll_interval"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	CheckLockTTL     time.Duration `mapstructure:"check_lock_ttl"`
	RetainIssued     time.Duration `mapstructure:"retain_issued"`
	RetainPaid       time.Duration `mapstructure:"retain_paid"`
	RetainOther      time.Duration `mapstructure:"retain_other"`
	CleanupInterval  time.Duration `mapstructure:"cleanup_interval"`
	RecoveryWorkers  int           `mapstructure:"recovery_workers"`
}

// BillingConfig controls pre-allocation and reconciliation of inference calls.
type BillingConfig struct {
	DefaultMaxCost      int64              `mapstructure:"default_max_cost"`
	RetryAttempts       int                `mapstructure:"retry_attempts"`
	RefundTimeout       time.Duration      `mapstructure:"refund_timeout"`
	AllocationTTL       time.Duration      `mapstructure:"allocation_ttl"`
	PricingTTL          time.Duration      `mapstructure:"pricing_ttl"`
	OverchargeTolerance map[string]float64 `mapstructure:"overcharge_tolerance"` // keyed by unit, in that unit
}

type SelectorConfig struct {
	MaxFeeIterations int   `mapstructure:"max_fee_iterations"`
	MaxDPAmount      int64 `mapstructure:"max_dp_amount"`
}

type BackupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// RateLimitConfig holds per route group request budgets. Groups missing
// from Limits keep their built-in budget.
type RateLimitConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Window  time.Duration    `mapstructure:"window"`
	Limits  map[string]int64 `mapstructure:"limits"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: ECB_ (Ecash Billing).
// Nested keys use underscore: ECB_DATABASE_HOST, ECB_INVOICE_POLL_INTERVAL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.chat_max_body_bytes", 16<<20)
	v.SetDefault("server.openapi_path", "docs/api/openapi.yaml")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ecash_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.statement_timeout", "15s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "ecash-billing-engine")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("mint.urls", []string{"https://mint.minibits.cash/Bitcoin"})
	v.SetDefault("mint.unit", "sat")
	v.SetDefault("mint.request_timeout", "20s")
	v.SetDefault("provider.refund_path", "/v1/wallet/refund")
	v.SetDefault("provider.request_timeout", "5m")
	v.SetDefault("invoice.poll_interval", "1m")
	v.SetDefault("invoice.fast_poll_interval", "3s")
	v.SetDefault("invoice.max_backoff", "10m")
	v.SetDefault("invoice.check_lock_ttl", "30s")
	v.SetDefault("invoice.retain_issued", "720h")
	v.SetDefault("invoice.retain_paid", "168h")
	v.SetDefault("invoice.retain_other", "24h")
	v.SetDefault("invoice.cleanup_interval", "1h")
	v.SetDefault("invoice.recovery_workers", 4)
	v.SetDefault("billing.default_max_cost", 50)
	v.SetDefault("billing.retry_attempts", 1)
	v.SetDefault("billing.refund_timeout", "30s")
	v.SetDefault("billing.allocation_ttl", "24h")
	v.SetDefault("billing.pricing_ttl", "10m")
	v.SetDefault("billing.overcharge_tolerance", map[string]float64{"sat": 1, "msat": 0.05})
	v.SetDefault("selector.max_fee_iterations", 100)
	v.SetDefault("selector.max_dp_amount", 100_000)
	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.debounce", "5s")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("ratelimit.limits", map[string]int64{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// ECB_INVOICE_POLL_INTERVAL -> invoice.poll_interval
	v.SetEnvPrefix("ECB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.Mint.Unit != "sat" && cfg.Mint.Unit != "msat" {
		return nil, fmt.Errorf("unsupported mint unit %q", cfg.Mint.Unit)
	}
	if cfg.Billing.RetryAttempts < 0 || cfg.Billing.RetryAttempts > 1 {
		return nil, fmt.Errorf("billing.retry_attempts must be 0 or 1, got %d", cfg.Billing.RetryAttempts)
	}

	if cfg.RateLimit.Enabled && cfg.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("ratelimit.window must be positive, got %s", cfg.RateLimit.Window)
	}
	for group, limit := range cfg.RateLimit.Limits {
		if limit <= 0 {
			return nil, fmt.Errorf("ratelimit.limits.%s must be positive, got %d", group, limit)
		}
	}

	return &cfg, nil
}
