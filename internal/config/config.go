package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Surreal    SurrealConfig   `mapstructure:"surreal"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Sync       SyncConfig      `mapstructure:"sync"`
	Failover   FailoverConfig  `mapstructure:"failover"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Phone      PhoneConfig     `mapstructure:"phone"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr        string `mapstructure:"addr"`
	AdminAPIKey string `mapstructure:"admin_api_key"` // empty disables /admin
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug|info|warn|error
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"` // empty disables rate limiting and the lease
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type SurrealConfig struct {
	URL         string        `mapstructure:"url"` // ws://host:8000/rpc
	Namespace   string        `mapstructure:"namespace"`
	Database    string        `mapstructure:"database"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"` // empty disables change notifications
	Topic          string   `mapstructure:"topic"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type SyncConfig struct {
	Embedded     bool          `mapstructure:"embedded"` // run the worker inside `serve`
	BatchSize    int           `mapstructure:"batch_size"`
	Interval     time.Duration `mapstructure:"interval"`
	MaxRetries   int           `mapstructure:"max_retries"` // 0 = retry forever
	ClaimFor     time.Duration `mapstructure:"claim_for"`
	ParkFor      time.Duration `mapstructure:"park_for"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	LeaseKey     string        `mapstructure:"lease_key"`
	LeaseTTL     time.Duration `mapstructure:"lease_ttl"`
	MetricsAddr  string        `mapstructure:"metrics_addr"` // /metrics for `worker sync`, empty disables
}

type FailoverConfig struct {
	BreakerFailThreshold int           `mapstructure:"breaker_fail_threshold"` // 0 disables the breaker
	BreakerOpenFor       time.Duration `mapstructure:"breaker_open_for"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"` // per client IP, 0 disables
}

type PhoneConfig struct {
	DefaultCountryCode string `mapstructure:"default_country_code"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (SHIFTS_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (SHIFTS_MYSQL_DSN, SHIFTS_SYNC_BATCH_SIZE, ...)
	v.SetEnvPrefix("SHIFTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
