package config

import (
	"os"
	"strconv"
)

// envBinding maps one environment variable onto a config field. set is only called for a
// non-empty value; unparsable numbers and booleans are ignored and the file value stays.
type envBinding struct {
	key string
	set func(cfg *Config, v string)
}

var envBindings = []envBinding{
	{"DB_HOST", func(c *Config, v string) { c.DB.Host = v }},
	{"DB_PORT", func(c *Config, v string) {
		if p, err := strconv.Atoi(v); err == nil {
			c.DB.Port = p
		}
	}},
	{"DB_USER", func(c *Config, v string) { c.DB.User = v }},
	{"DB_PASSWORD", func(c *Config, v string) { c.DB.Password = v }},
	{"DB_NAME", func(c *Config, v string) { c.DB.Name = v }},
	{"DB_SSLMODE", func(c *Config, v string) { c.DB.SSLMode = v }},
	{"MQ_URL", func(c *Config, v string) { c.MQ.URL = v }},
	{"REDIS_ADDR", func(c *Config, v string) { c.Redis.Addr = v }},
	{"REDIS_PASSWORD", func(c *Config, v string) { c.Redis.Password = v }},
	{"JWT_SECRET", func(c *Config, v string) { c.JWT.Secret = v }},
	{"SERVER_PORT", func(c *Config, v string) { c.Server.Port = v }},
	{"OTEL_ENDPOINT", func(c *Config, v string) { c.OTel.Endpoint = v }},
	{"OTEL_ENABLED", func(c *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.OTel.Enabled = b
		}
	}},
	{"BOARD_CACHE_ENABLED", func(c *Config, v string) {
		if b, err := strconv.ParseBool(v); err == nil {
			c.BoardCache.Enabled = b
		}
	}},
	{"LOG_LEVEL", func(c *Config, v string) { c.Log.Level = v }},
}

// applyEnv layers process environment over the decoded files.
func applyEnv(cfg *Config) {
	for _, b := range envBindings {
		if v := os.Getenv(b.key); v != "" {
			b.set(cfg, v)
		}
	}
}
