package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvVar is the variable selecting the environment.
const EnvVar = "PICLOUD_ENV"

// Environment selects the store configuration.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

// ParseEnvironment maps "production" to Production and anything else to Development.
func ParseEnvironment(s string) Environment {
	if s == string(Production) {
		return Production
	}
	return Development
}

// HTTPConfig configures the HTTP adapter.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// RedisConfig configures the Redis adapters. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// Config is the resolved process configuration.
type Config struct {
	Environment Environment `mapstructure:"environment" yaml:"environment"`
	// Name labels the store; it is also the journal stream and snapshot key.
	Name         string `mapstructure:"name" yaml:"name"`
	ClampAtZero  bool   `mapstructure:"clamp_at_zero" yaml:"clamp_at_zero"`
	HistoryLimit int    `mapstructure:"history_limit" yaml:"history_limit"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	MediaPath    string `mapstructure:"media_path" yaml:"media_path"`
	// DataPath enables file persistence when Redis is not configured.
	DataPath         string        `mapstructure:"data_path" yaml:"data_path"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval" yaml:"snapshot_interval"`
	// AuthSecret signs the bearer tokens required by state-changing routes.
	// Empty leaves them open.
	AuthSecret string      `mapstructure:"auth_secret" yaml:"auth_secret"`
	HTTP       HTTPConfig  `mapstructure:"http" yaml:"http"`
	Redis      RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Environment:      Development,
		Name:             "picloud",
		HistoryLimit:     500,
		LogLevel:         "info",
		MediaPath:        "media",
		SnapshotInterval: 10 * time.Second,
		HTTP:             HTTPConfig{Addr: ":5000"},
		Redis:            RedisConfig{Prefix: "picloud:"},
	}
}

// IsProduction reports whether the production configuration is selected.
func (c Config) IsProduction() bool {
	return c.Environment == Production
}

// envKeys maps environment variables onto config keys.
var envKeys = map[string][]string{
	"PICLOUD_NAME":              {"name"},
	"PICLOUD_CLAMP_AT_ZERO":     {"clamp_at_zero"},
	"PICLOUD_HISTORY_LIMIT":     {"history_limit"},
	"PICLOUD_LOG_LEVEL":         {"log_level"},
	"PICLOUD_MEDIA_PATH":        {"media_path"},
	"PICLOUD_DATA_PATH":         {"data_path"},
	"PICLOUD_SNAPSHOT_INTERVAL": {"snapshot_interval"},
	"PICLOUD_AUTH_SECRET":       {"auth_secret"},
	"PICLOUD_HTTP_ADDR":         {"http", "addr"},
	"PICLOUD_REDIS_ADDR":        {"redis", "addr"},
	"PICLOUD_REDIS_PASSWORD":    {"redis", "password"},
	"PICLOUD_REDIS_DB":          {"redis", "db"},
	"PICLOUD_REDIS_PREFIX":      {"redis", "prefix"},
	"PICLOUD_REDIS_TTL":         {"redis", "ttl"},
}

// Load resolves the configuration: defaults, then the optional YAML file at
// path, then PICLOUD_* variables read through getenv (os.Getenv when nil).
func Load(path string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		raw := map[string]any{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if err := decode(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := decode(fromEnv(getenv), &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	// The environment variable alone decides the environment when set.
	env := string(cfg.Environment)
	if v := getenv(EnvVar); v != "" {
		env = v
	}
	cfg.Environment = ParseEnvironment(env)
	return cfg, nil
}

func fromEnv(getenv func(string) string) map[string]any {
	raw := map[string]any{}
	for name, path := range envKeys {
		v := getenv(name)
		if v == "" {
			continue
		}
		node := raw
		for _, key := range path[:len(path)-1] {
			child, ok := node[key].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[key] = child
			}
			node = child
		}
		node[path[len(path)-1]] = v
	}
	return raw
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
