// Package serverconfig loads and validates the pullconf-server
// process's environment configuration (component J).
package serverconfig

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the server's fully resolved environment configuration.
type Config struct {
	ListenOn         string        `mapstructure:"listen_on" validate:"required,hostname_port"`
	TLSCertificate   string        `mapstructure:"tls_certificate" validate:"required,file"`
	TLSPrivateKey    string        `mapstructure:"tls_private_key" validate:"required,file"`
	ResourceDir      string        `mapstructure:"resource_dir" validate:"required,dir"`
	AssetDir         string        `mapstructure:"asset_dir" validate:"required,dir"`
	WatchResourceDir bool          `mapstructure:"watch_resource_dir"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
	LogFormat        string        `mapstructure:"log_format" validate:"oneof=logfmt json"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=error warn info debug trace"`
	RateLimitPerMin  int           `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" validate:"gte=0"`
}

// Load reads the server's configuration from the process environment,
// applying the defaults spec.md §6 names, then validates required
// fields and their formats. configFile, if non-empty, is read first
// and environment variables still take precedence over it (local
// testing convenience; env vars remain the primary interface).
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("watch_resource_dir", false)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_format", "logfmt")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit_per_minute", 120)
	v.SetDefault("rate_limit_burst", 30)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", configFile, err)
		}
	}

	bind := map[string]string{
		"listen_on":             "PULLCONF_LISTEN_ON",
		"tls_certificate":       "PULLCONF_TLS_CERTIFICATE",
		"tls_private_key":       "PULLCONF_TLS_PRIVATE_KEY",
		"resource_dir":          "PULLCONF_RESOURCE_DIR",
		"asset_dir":             "PULLCONF_ASSET_DIR",
		"watch_resource_dir":    "PULLCONF_WATCH_RESOURCE_DIR",
		"shutdown_timeout":      "PULLCONF_SHUTDOWN_TIMEOUT",
		"log_format":            "PULLCONF_LOG_FORMAT",
		"log_level":             "LOG_LEVEL",
		"rate_limit_per_minute": "PULLCONF_RATE_LIMIT_PER_MINUTE",
		"rate_limit_burst":      "PULLCONF_RATE_LIMIT_BURST",
	}
	for key, env := range bind {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling server config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	return &cfg, nil
}

// Sanitize returns a copy of cfg safe to log: TLS key material paths
// are kept (paths aren't secrets), but this exists as the seam future
// secret-bearing fields land behind, matching the ambient convention
// of never logging a raw Config directly.
func (c Config) Sanitize() Config {
	return c
}
