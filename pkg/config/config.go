package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Platform struct {
		APIBaseURL string `yaml:"api_base_url"`
		OAuth      struct {
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			RefreshToken string `yaml:"refresh_token"`
			TokenURL     string `yaml:"token_url"`
		} `yaml:"oauth"`
	} `yaml:"platform"`

	Defaults struct {
		PrivacyStatus string `yaml:"privacy_status"`
		Resolution    string `yaml:"resolution"`
		Bitrate       string `yaml:"bitrate"`
	} `yaml:"defaults"`

	Encoder struct {
		Binary string `yaml:"binary"`
	} `yaml:"encoder"`

	Monitor struct {
		Interval             time.Duration `yaml:"interval"`
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
		ReconnectBackoff     time.Duration `yaml:"reconnect_backoff"`
		ReconnectBackoffMax  time.Duration `yaml:"reconnect_backoff_max"`
	} `yaml:"monitor"`

	Notifier struct {
		WebhookURL string `yaml:"webhook_url"`
		SMTP       struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
			To       string `yaml:"to"`
		} `yaml:"smtp"`
	} `yaml:"notifier"`

	Redis struct {
		Enabled       bool   `yaml:"enabled"`
		Address       string `yaml:"address"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		PoolSize      int    `yaml:"pool_size"`
		EventsChannel string `yaml:"events_channel"`
	} `yaml:"redis"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled    bool    `yaml:"enabled"`
		JaegerURL  string  `yaml:"jaeger_url"`
		SampleRate float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	RateLimiting struct {
		Enabled           bool    `yaml:"enabled"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limiting"`
}

// DefaultConfig returns a configuration suitable for local development,
// minus the platform credentials.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second
	cfg.Defaults.PrivacyStatus = "unlisted"
	cfg.Defaults.Resolution = "1080p"
	cfg.Defaults.Bitrate = "4500k"
	cfg.Encoder.Binary = "ffmpeg"
	cfg.Monitor.Interval = 30 * time.Second
	cfg.Monitor.MaxReconnectAttempts = 10
	cfg.Monitor.ReconnectBackoff = 2 * time.Second
	cfg.Monitor.ReconnectBackoffMax = 60 * time.Second
	cfg.Notifier.SMTP.Port = 587
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10
	cfg.Redis.EventsChannel = "streamcast:events"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.SampleRate = 1.0
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return cfg
}

// FromEnv returns the default configuration with secret overrides taken
// from the environment, for running without a config file.
func FromEnv() *Config {
	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	return cfg
}

// Load reads a yaml config file, applies env overrides for secrets, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides lets secrets come from the environment instead of
// the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("YOUTUBE_OAUTH_CLIENT_ID"); v != "" {
		c.Platform.OAuth.ClientID = v
	}
	if v := os.Getenv("YOUTUBE_OAUTH_CLIENT_SECRET"); v != "" {
		c.Platform.OAuth.ClientSecret = v
	}
	if v := os.Getenv("YOUTUBE_OAUTH_REFRESH_TOKEN"); v != "" {
		c.Platform.OAuth.RefreshToken = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notifier.WebhookURL = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notifier.SMTP.Password = v
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Defaults.PrivacyStatus == "" {
		return fmt.Errorf("defaults.privacy_status must not be empty")
	}
	if c.Defaults.Resolution == "" {
		return fmt.Errorf("defaults.resolution must not be empty")
	}
	if c.Defaults.Bitrate == "" {
		return fmt.Errorf("defaults.bitrate must not be empty")
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be > 0")
	}
	if c.Monitor.MaxReconnectAttempts < 0 {
		return fmt.Errorf("monitor.max_reconnect_attempts must be >= 0")
	}
	if c.Monitor.ReconnectBackoff < 0 {
		return fmt.Errorf("monitor.reconnect_backoff must be >= 0")
	}
	if c.Monitor.ReconnectBackoffMax < 0 {
		return fmt.Errorf("monitor.reconnect_backoff_max must be >= 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in (0, 1]")
		}
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when enabled")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console")
	}

	return nil
}
