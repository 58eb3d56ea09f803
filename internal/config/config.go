// Package config loads process configuration once at startup from the
// environment (PITSTOP_* variables) and optional flags bound by the CLI.
// The resulting Config is immutable for the process lifetime.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full gateway configuration.
type Config struct {
	Host            string
	Port            int
	DataDir         string
	UpstreamURL     string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	MaxBodySize     int64

	JWTSecret  string
	SessionTTL time.Duration

	LoginRatePerMinute   int
	DefaultRatePerMinute int
	DefaultRatePerDay    int
	CounterRetention     time.Duration

	AuditBodies  bool
	AuditMaxBody int

	Dev bool
}

// Load reads configuration from the environment. Flags bound to viper by the
// CLI take precedence over environment variables.
func Load() (*Config, error) {
	v := viper.GetViper()

	v.SetEnvPrefix("PITSTOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_size", 1<<20)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("data_dir", "")
	v.SetDefault("upstream_url", "")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("ratelimit.login_per_minute", 20)
	v.SetDefault("ratelimit.default_per_minute", 60)
	v.SetDefault("ratelimit.default_per_day", 10000)
	v.SetDefault("ratelimit.counter_retention", "48h")
	v.SetDefault("audit.bodies", false)
	v.SetDefault("audit.max_body", 4096)

	cfg := &Config{
		Host:                 v.GetString("server.host"),
		Port:                 v.GetInt("server.port"),
		DataDir:              v.GetString("data_dir"),
		UpstreamURL:          v.GetString("upstream_url"),
		CORSOrigins:          strings.Split(v.GetString("server.cors_origins"), ","),
		ShutdownTimeout:      v.GetDuration("server.shutdown_timeout"),
		MaxBodySize:          v.GetInt64("server.max_body_size"),
		JWTSecret:            v.GetString("jwt_secret"),
		SessionTTL:           v.GetDuration("session.ttl"),
		LoginRatePerMinute:   v.GetInt("ratelimit.login_per_minute"),
		DefaultRatePerMinute: v.GetInt("ratelimit.default_per_minute"),
		DefaultRatePerDay:    v.GetInt("ratelimit.default_per_day"),
		CounterRetention:     v.GetDuration("ratelimit.counter_retention"),
		AuditBodies:          v.GetBool("audit.bodies"),
		AuditMaxBody:         v.GetInt("audit.max_body"),
		Dev:                  v.GetBool("dev"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("PITSTOP_JWT_SECRET must be set")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}
