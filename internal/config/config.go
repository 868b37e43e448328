package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Inocula server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Scorer   ScorerConfig   `yaml:"scorer"`
	Tasks    TaskConfig     `yaml:"tasks"`
}

type ServerConfig struct {
	Port               int      `yaml:"port"`
	Env                string   `yaml:"env"`
	LogLevel           string   `yaml:"log_level"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type ScorerConfig struct {
	Provider string        `yaml:"provider"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	OpenAI   OpenAIConfig  `yaml:"openai"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type TaskConfig struct {
	MaxTextLength   int           `yaml:"max_text_length"`
	Retention       time.Duration `yaml:"retention"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	LongPollMax     time.Duration `yaml:"long_poll_max"`
}

var validProviders = map[string]bool{
	"rules":  true,
	"openai": true,
}

var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			Env:                "development",
			LogLevel:           "info",
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 60,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Scorer: ScorerConfig{
			Provider: "rules",
			Timeout:  300 * time.Second,
			CacheTTL: 24 * time.Hour,
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
		},
		Tasks: TaskConfig{
			MaxTextLength:   10000,
			Retention:       time.Hour,
			JanitorInterval: 5 * time.Minute,
			LongPollMax:     25 * time.Second,
		},
	}
}

// Load reads configuration and returns a validated Config. Values come from
// built-in defaults, then the YAML file named by INOCULA_CONFIG_PATH (if set),
// then environment variables, each layer overriding the previous one.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("INOCULA_CONFIG_PATH"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Server = ServerConfig{
		Port:               envInt("INOCULA_PORT", cfg.Server.Port),
		Env:                envString("INOCULA_ENV", cfg.Server.Env),
		LogLevel:           strings.ToLower(envString("INOCULA_LOG_LEVEL", cfg.Server.LogLevel)),
		CORSOrigins:        envList("INOCULA_CORS_ORIGINS", cfg.Server.CORSOrigins),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", cfg.Server.RateLimitPerMinute),
	}
	cfg.Database = DatabaseConfig{
		URL:             envString("DATABASE_URL", cfg.Database.URL),
		MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns),
		MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns),
		ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime),
	}
	cfg.Redis.URL = envString("REDIS_URL", cfg.Redis.URL)
	cfg.Scorer = ScorerConfig{
		Provider: envString("SCORER_PROVIDER", cfg.Scorer.Provider),
		Timeout:  envDurationSecs("SCORER_TIMEOUT_SECS", cfg.Scorer.Timeout),
		CacheTTL: envDuration("SCORE_CACHE_TTL", cfg.Scorer.CacheTTL),
		OpenAI: OpenAIConfig{
			APIKey:  envString("OPENAI_API_KEY", cfg.Scorer.OpenAI.APIKey),
			Model:   envString("OPENAI_MODEL", cfg.Scorer.OpenAI.Model),
			BaseURL: envString("OPENAI_BASE_URL", cfg.Scorer.OpenAI.BaseURL),
		},
	}
	cfg.Tasks = TaskConfig{
		MaxTextLength:   envInt("TASK_MAX_TEXT_LENGTH", cfg.Tasks.MaxTextLength),
		Retention:       envDuration("TASK_RETENTION", cfg.Tasks.Retention),
		JanitorInterval: envDuration("TASK_JANITOR_INTERVAL", cfg.Tasks.JanitorInterval),
		LongPollMax:     envDuration("TASK_LONG_POLL_MAX", cfg.Tasks.LongPollMax),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// SlogLevel returns the slog level matching Server.LogLevel.
func (c *Config) SlogLevel() slog.Level {
	return validLogLevels[c.Server.LogLevel]
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") &&
		!strings.HasPrefix(c.Database.URL, "postgresql://") &&
		!strings.HasPrefix(c.Database.URL, "sqlite://") {
		return fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite://, got %q", c.Database.URL)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if _, ok := validLogLevels[c.Server.LogLevel]; !ok {
		return fmt.Errorf("INOCULA_LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Server.LogLevel)
	}

	if !validProviders[c.Scorer.Provider] {
		return fmt.Errorf("SCORER_PROVIDER must be one of rules, openai; got %q", c.Scorer.Provider)
	}
	if c.Scorer.Provider == "openai" && c.Scorer.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when SCORER_PROVIDER is openai")
	}
	if c.Scorer.Timeout <= 0 {
		return fmt.Errorf("SCORER_TIMEOUT_SECS must be positive")
	}

	if c.Tasks.MaxTextLength <= 0 {
		return fmt.Errorf("TASK_MAX_TEXT_LENGTH must be positive, got %d", c.Tasks.MaxTextLength)
	}
	if c.Tasks.JanitorInterval <= 0 {
		return fmt.Errorf("TASK_JANITOR_INTERVAL must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
