package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, loaded from config.yaml with
// P2P_-prefixed environment overrides (P2P_SERVER_PORT, P2P_REDIS_HOST, ...).
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Trading    TradingConfig    `mapstructure:"trading"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Gate       GateConfig       `mapstructure:"gate"`
	Bybit      BybitConfig      `mapstructure:"bybit"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug/release
}

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects the snapshot store backing the account pool.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // file/postgres/redis
	Path   string `mapstructure:"path"`   // file driver only
}

type RateLimitsConfig struct {
	GateRequestsPerMinute  int `mapstructure:"gate_requests_per_minute"`
	BybitRequestsPerMinute int `mapstructure:"bybit_requests_per_minute"`
	DefaultBurstSize       int `mapstructure:"default_burst_size"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialDelay    time.Duration `mapstructure:"initial_delay"`
	MaxDelay        time.Duration `mapstructure:"max_delay"`
	ExponentialBase float64       `mapstructure:"exponential_base"`
}

type CacheConfig struct {
	TransactionTTL time.Duration `mapstructure:"transaction_ttl"`
}

type TradingConfig struct {
	MaxAdsPerAccount int `mapstructure:"max_ads_per_account"`
}

type AdminConfig struct {
	Token string `mapstructure:"token"`
}

type GateConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type BybitConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Load reads config.yaml from path (or the working directory when empty)
// and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("P2P")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env must be enough.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "p2ptrader")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "accounts.json")

	v.SetDefault("rate_limits.gate_requests_per_minute", 240)
	v.SetDefault("rate_limits.bybit_requests_per_minute", 600)
	v.SetDefault("rate_limits.default_burst_size", 10)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", time.Second)
	v.SetDefault("retry.max_delay", 60*time.Second)
	v.SetDefault("retry.exponential_base", 2.0)

	v.SetDefault("cache.transaction_ttl", 5*time.Minute)

	v.SetDefault("trading.max_ads_per_account", 4)

	v.SetDefault("gate.base_url", "https://panel.gate.cx/api/v1")
	v.SetDefault("bybit.base_url", "https://api.bybit.com")
}
