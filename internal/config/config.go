package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port                string `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	RateLimitPerMin     int    `mapstructure:"rate_limit_per_min"`
	MetricsAddr         string `mapstructure:"metrics_addr"`
	Development         bool   `mapstructure:"development"`
}

type MongoCfg struct {
	URI string `mapstructure:"uri"`
	DB  string `mapstructure:"db"`
}

type RedisCfg struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// GroupTTLSeconds bounds how long a triplet->group mapping may be served
	// from cache on the read path.
	GroupTTLSeconds int `mapstructure:"group_ttl_seconds"`
}

type KafkaCfg struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type NATSCfg struct {
	URL string `mapstructure:"url"`
}

type AuthCfg struct {
	// Mode is "allow_all" or "http".
	Mode string `mapstructure:"mode"`
	// ServiceURLs maps a contextApp to its authorization service endpoint.
	ServiceURLs    map[string]string `mapstructure:"service_urls"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
}

type Config struct {
	Server ServerCfg `mapstructure:"server"`
	Mongo  MongoCfg  `mapstructure:"mongo"`
	Redis  RedisCfg  `mapstructure:"redis"`
	Kafka  KafkaCfg  `mapstructure:"kafka"`
	NATS   NATSCfg   `mapstructure:"nats"`
	Auth   AuthCfg   `mapstructure:"auth"`

	// Derived
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	GroupTTL     time.Duration
	AuthTimeout  time.Duration
}

// Load reads the config file, then lets environment variables override
// nested keys (APP_SERVER_PORT, APP_MONGO_URI, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "5050")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.rate_limit_per_min", 300)
	v.SetDefault("redis.group_ttl_seconds", 60)
	v.SetDefault("auth.mode", "allow_all")
	v.SetDefault("auth.timeout_seconds", 5)

	// config file is optional; env vars alone can configure the service
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.GroupTTL = time.Duration(cfg.Redis.GroupTTLSeconds) * time.Second
	cfg.AuthTimeout = time.Duration(cfg.Auth.TimeoutSeconds) * time.Second
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Mongo.URI == "" {
		return errors.New("mongo.uri missing")
	}
	if cfg.Mongo.DB == "" {
		return errors.New("mongo.db missing")
	}
	switch cfg.Auth.Mode {
	case "allow_all":
	case "http":
		if len(cfg.Auth.ServiceURLs) == 0 {
			return errors.New("auth.service_urls required for http mode")
		}
	default:
		return errors.New("invalid auth.mode (use allow_all or http)")
	}
	return nil
}
