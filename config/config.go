package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Wallet        WalletConfig        `mapstructure:"wallet"`
	Fees          FeeConfig           `mapstructure:"fees"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	Cards         CardConfig          `mapstructure:"cards"`
	Events        EventConfig         `mapstructure:"events"`
	Providers     ProviderConfig      `mapstructure:"providers"`
	Archive       ArchiveConfig       `mapstructure:"archive"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Mode         string `mapstructure:"mode"` // debug, release, test
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the storage backend. Driver "memory" keeps all
// state in process and ignores the connection settings.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
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

// WalletConfig holds the limits applied to newly created wallets.
type WalletConfig struct {
	DefaultCurrency     string          `mapstructure:"default_currency"`
	DefaultDailyLimit   decimal.Decimal `mapstructure:"default_daily_limit"`
	DefaultMonthlyLimit decimal.Decimal `mapstructure:"default_monthly_limit"`
}

// FeeConfig drives the percentage fee applied to wallet-funded payments.
// Transfers are always free.
type FeeConfig struct {
	PaymentRate  decimal.Decimal `mapstructure:"payment_rate"`
	PaymentFixed decimal.Decimal `mapstructure:"payment_fixed"`
}

// AuthorizationConfig holds the rule set of the payment authorizer.
type AuthorizationConfig struct {
	BlockedCardPrefixes []string        `mapstructure:"blocked_card_prefixes"`
	BlockedDevices      []string        `mapstructure:"blocked_devices"`
	AmountCeiling       decimal.Decimal `mapstructure:"amount_ceiling"`
}

type CardConfig struct {
	FingerprintKey string        `mapstructure:"fingerprint_key"`
	MaxOtpAttempts int64         `mapstructure:"max_otp_attempts"`
	OtpWindow      time.Duration `mapstructure:"otp_window"`
}

// EventConfig sizes the authorization event pipeline. Driver "memory" uses
// the in-process bus; "asynq" queues events in Redis so they outlive a
// restart.
type EventConfig struct {
	Driver     string        `mapstructure:"driver"` // memory, asynq
	Buffer     int           `mapstructure:"buffer"`
	Workers    int           `mapstructure:"workers"`
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// ProviderConfig selects the tokenization, issuer and notification
// implementations. Driver is "mock" or "http".
type ProviderConfig struct {
	Driver          string        `mapstructure:"driver"`
	VaultURL        string        `mapstructure:"vault_url"`
	IssuerURL       string        `mapstructure:"issuer_url"`
	NotificationURL string        `mapstructure:"notification_url"`
	APIKey          string        `mapstructure:"api_key"`
	SigningSecret   string        `mapstructure:"signing_secret"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// ArchiveConfig configures the daily ledger export to S3-compatible storage.
type ArchiveConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	RunAtHour       uint   `mapstructure:"run_at_hour"`
	RunAtMinute     uint   `mapstructure:"run_at_minute"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: NFCW_.
// Nested keys use underscore: NFCW_DATABASE_HOST, NFCW_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "nfc_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "nfc-wallet")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("wallet.default_currency", "USD")
	v.SetDefault("wallet.default_daily_limit", "1000.00")
	v.SetDefault("wallet.default_monthly_limit", "10000.00")
	v.SetDefault("fees.payment_rate", "0.029")
	v.SetDefault("fees.payment_fixed", "0.30")
	v.SetDefault("authorization.blocked_card_prefixes", []string{"tok_blocked"})
	v.SetDefault("authorization.blocked_devices", []string{"dev_blocked"})
	v.SetDefault("authorization.amount_ceiling", "5000.00")
	v.SetDefault("cards.fingerprint_key", "")
	v.SetDefault("cards.max_otp_attempts", 5)
	v.SetDefault("cards.otp_window", "15m")
	v.SetDefault("events.driver", "memory")
	v.SetDefault("events.buffer", 256)
	v.SetDefault("events.workers", 2)
	v.SetDefault("events.max_retries", 3)
	v.SetDefault("events.retry_delay", "200ms")
	v.SetDefault("providers.driver", "mock")
	v.SetDefault("providers.timeout", "10s")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "ledger")
	v.SetDefault("archive.region", "auto")
	v.SetDefault("archive.run_at_hour", 0)
	v.SetDefault("archive.run_at_minute", 15)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: NFCW_DATABASE_HOST -> database.host
	v.SetEnvPrefix("NFCW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToDecimalHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// stringToDecimalHook decodes money settings written as strings or numbers.
func stringToDecimalHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(decimal.Decimal{})
	return func(_ reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != target {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return decimal.NewFromString(val)
		case float64:
			return decimal.NewFromFloat(val), nil
		case int:
			return decimal.NewFromInt(int64(val)), nil
		case int64:
			return decimal.NewFromInt(val), nil
		default:
			return data, nil
		}
	}
}
