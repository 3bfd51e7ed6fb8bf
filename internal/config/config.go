package config

import (
	"time"

	pkgconfig "github.com/DanielFbr1/Dashboard-Docente-y-Feedback-sub000/pkg/config"
)

type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type BoardCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type WorkerConfig struct {
	MaxRetries int64         `yaml:"max_retries"`
	DedupTTL   time.Duration `yaml:"dedup_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	DB         pkgconfig.DBConfig     `yaml:"db"`
	MQ         pkgconfig.MQConfig     `yaml:"mq"`
	Redis      pkgconfig.RedisConfig  `yaml:"redis"`
	JWT        pkgconfig.JWTConfig    `yaml:"jwt"`
	Server     pkgconfig.ServerConfig `yaml:"server"`
	OTel       OTelConfig             `yaml:"otel"`
	Outbox     OutboxConfig           `yaml:"outbox"`
	BoardCache BoardCacheConfig       `yaml:"board_cache"`
	Worker     WorkerConfig           `yaml:"worker"`
	Log        LogConfig              `yaml:"log"`
}

// Load reads the layered YAML config for env from dir, then applies environment overrides
// and defaults.
func Load(env, dir string) (*Config, error) {
	tree, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := pkgconfig.Decode(tree, &cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "milestone-service"
	}
	if cfg.Outbox.Interval <= 0 {
		cfg.Outbox.Interval = time.Second
	}
	if cfg.Outbox.BatchSize <= 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.MaxRetries <= 0 {
		cfg.Outbox.MaxRetries = 5
	}
	if cfg.BoardCache.TTL <= 0 {
		cfg.BoardCache.TTL = time.Minute
	}
	if cfg.Worker.MaxRetries <= 0 {
		cfg.Worker.MaxRetries = 5
	}
	if cfg.Worker.DedupTTL <= 0 {
		cfg.Worker.DedupTTL = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
