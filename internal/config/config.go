// Package config loads service configuration from a config file and the
// environment, with environment variables taking precedence.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`

	DatabaseURL string `mapstructure:"database_url"`
	DBMaxConns  int32  `mapstructure:"db_max_conns"`
	DBMinConns  int32  `mapstructure:"db_min_conns"`

	CertificateDir      string        `mapstructure:"certificate_dir"`
	CertMaxConcurrent   int           `mapstructure:"cert_max_concurrent"`
	CertRenderTimeout   time.Duration `mapstructure:"cert_render_timeout"`
	CertMaxArtifactMB   int64         `mapstructure:"cert_max_artifact_mb"`
	NotifyBufferSize    int           `mapstructure:"notify_buffer_size"`
	SessionSecureCookie bool          `mapstructure:"session_secure_cookie"`
}

// Load reads configuration from ./config.yaml (optional) and NODUES_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("environment", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("db_min_conns", 2)
	v.SetDefault("certificate_dir", "./certificates")
	v.SetDefault("cert_max_concurrent", 4)
	v.SetDefault("cert_render_timeout", "30s")
	v.SetDefault("cert_max_artifact_mb", 20)
	v.SetDefault("notify_buffer_size", 64)
	v.SetDefault("session_secure_cookie", true)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// No config file is fine; environment variables carry everything.
	}

	v.SetEnvPrefix("NODUES")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database_url is required (NODUES_DATABASE_URL)")
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
