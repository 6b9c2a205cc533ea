package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Fees     FeeConfig      `mapstructure:"fees"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Mail     MailConfig     `mapstructure:"mail"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
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

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	NotifyTopic string   `mapstructure:"notify_topic"`
}

// LedgerConfig configures the remote blockchain-operations API reader.
type LedgerConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	PageSize          int           `mapstructure:"page_size"`
	PageDelay         time.Duration `mapstructure:"page_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	TimestampCacheTTL time.Duration `mapstructure:"timestamp_cache_ttl"`
	// VerifyOnComplete turns on the synchronous ledger lookup before a
	// payment is marked completed. Off by default: the handshake must
	// not depend on ledger reachability when the SDK already supplied
	// a transaction hash.
	VerifyOnComplete bool `mapstructure:"verify_on_complete"`
}

// FeeConfig holds platform fee rates. Rates are decimal strings so the
// exact value survives config parsing without binary float drift.
type FeeConfig struct {
	PaymentRate    string `mapstructure:"payment_rate"`
	WithdrawalRate string `mapstructure:"withdrawal_rate"`
	MinimumUnit    string `mapstructure:"minimum_unit"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type MailConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CPG_ (ChainPay Gateway).
// Nested keys use underscore: CPG_DATABASE_HOST, CPG_LEDGER_BASE_URL, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chainpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.notify_topic", "merchant-notifications")
	v.SetDefault("ledger.base_url", "https://api.chain.example.com")
	v.SetDefault("ledger.page_size", 20)
	v.SetDefault("ledger.page_delay", "100ms")
	v.SetDefault("ledger.request_timeout", "10s")
	v.SetDefault("ledger.timestamp_cache_ttl", "1h")
	v.SetDefault("ledger.verify_on_complete", false)
	v.SetDefault("fees.payment_rate", "0.02")
	v.SetDefault("fees.withdrawal_rate", "0.02")
	v.SetDefault("fees.minimum_unit", "0.0000001")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "chainpay-gateway")
	v.SetDefault("mail.base_url", "")
	v.SetDefault("mail.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CPG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CPG")
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

	return &cfg, nil
}
