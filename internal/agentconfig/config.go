// Package agentconfig loads and validates the pullconf-agent process's
// environment configuration (component K).
package agentconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the agent's fully resolved environment configuration.
type Config struct {
	ServerURL        string        `mapstructure:"server_url" validate:"required,url"`
	APIKey           string        `mapstructure:"api_key"`
	APIKeyFile       string        `mapstructure:"api_key_file" validate:"omitempty,file"`
	TLSCACertificate string        `mapstructure:"tls_ca_certificate" validate:"omitempty,file"`
	PollInterval     time.Duration `mapstructure:"poll_interval" validate:"required,gt=0"`
	LogFormat        string        `mapstructure:"log_format" validate:"oneof=logfmt json"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=error warn info debug trace"`
}

// Load reads the agent's configuration from the process environment.
// At least one of PULLCONF_API_KEY / PULLCONF_API_KEY_FILE must resolve
// to a usable secret; if both are set, PULLCONF_API_KEY_FILE takes
// precedence so the
// raw secret never needs to sit in the process environment. configFile,
// if non-empty, is read first; environment variables still win over it.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("poll_interval", 5*time.Minute)
	v.SetDefault("log_format", "logfmt")
	v.SetDefault("log_level", "info")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", configFile, err)
		}
	}

	bind := map[string]string{
		"server_url":         "PULLCONF_SERVER_URL",
		"api_key":            "PULLCONF_API_KEY",
		"api_key_file":       "PULLCONF_API_KEY_FILE",
		"tls_ca_certificate": "PULLCONF_TLS_CA_CERTIFICATE",
		"poll_interval":      "PULLCONF_POLL_INTERVAL",
		"log_format":         "PULLCONF_LOG_FORMAT",
		"log_level":          "LOG_LEVEL",
	}
	for key, env := range bind {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling agent config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid agent configuration: %w", err)
	}

	if cfg.APIKeyFile != "" {
		raw, err := os.ReadFile(cfg.APIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", cfg.APIKeyFile, err)
		}
		cfg.APIKey = strings.TrimSpace(string(raw))
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("one of PULLCONF_API_KEY or PULLCONF_API_KEY_FILE is required")
	}

	return &cfg, nil
}

// Sanitize returns a copy of cfg with the raw API key redacted, safe
// to log (grounded in the teacher's config sanitizer pattern).
func (c Config) Sanitize() Config {
	sanitized := c
	if sanitized.APIKey != "" {
		sanitized.APIKey = "[REDACTED]"
	}
	return sanitized
}
