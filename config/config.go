package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StoreBackend selects where request tokens are kept between the provider
// redirect and the callback.
type StoreBackend string

const (
	StoreBackendMemory  StoreBackend = "memory"
	StoreBackendRedis   StoreBackend = "redis"
	StoreBackendBolt    StoreBackend = "bolt"
	StoreBackendMongoDB StoreBackend = "mongodb"
)

// EnvPrefix is prepended to every environment variable, e.g. REQTOKEN_LOG_LEVEL.
const EnvPrefix = "REQTOKEN"

// Config holds the settings of the request token tooling.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	StoreBackend StoreBackend  `mapstructure:"store_backend"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`

	BoltPath string `mapstructure:"bolt_path"`

	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDBName string `mapstructure:"mongo_db_name"`

	// ProtectionKey is the base64 encoded 32-byte key used to seal tokens
	// embedded in cookies or state parameters.
	ProtectionKey string `mapstructure:"protection_key"`

	OtelServiceName string `mapstructure:"otel_service_name"`
	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
	MetricsEnabled  bool   `mapstructure:"metrics_enabled"`
}

// LoadConfig reads configuration from file, environment variables and
// defaults. With an empty file name reqtoken.yaml is searched for in the
// usual places and may be absent. Environment variables win over the file.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("reqtoken")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reqtoken")
		v.AddConfigPath("/etc/reqtoken/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)
	v.SetDefault("store_backend", string(StoreBackendMemory))
	v.SetDefault("token_ttl", "15m")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "reqtoken")
	v.SetDefault("bolt_path", "./reqtoken.db")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "reqtoken")
	v.SetDefault("protection_key", "")
	v.SetDefault("otel_service_name", "requesttoken")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("metrics_enabled", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.StoreBackend = StoreBackend(strings.ToLower(v.GetString("store_backend")))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot check on its own.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendMemory, StoreBackendRedis, StoreBackendBolt, StoreBackendMongoDB:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.ProtectionKey != "" {
		if _, err := c.ProtectionKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

// ProtectionKeyBytes decodes ProtectionKey. An empty key yields nil.
func (c *Config) ProtectionKeyBytes() ([]byte, error) {
	if c.ProtectionKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.ProtectionKey)
	if err != nil {
		return nil, fmt.Errorf("protection_key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("protection_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
