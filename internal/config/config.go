package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables,
// with the environment taking precedence.
type Config struct {
	ServerAddress   string        `mapstructure:"SERVER_ADDRESS"`
	BaseURL         string        `mapstructure:"BASE_URL"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	StorageDriver    string        `mapstructure:"STORAGE_DRIVER"`
	BadgerDBPath     string        `mapstructure:"BADGERDB_PATH"`
	BadgerGCInterval time.Duration `mapstructure:"BADGER_GC_INTERVAL"`
	RedisAddr        string        `mapstructure:"REDIS_ADDR"`
	RedisPassword    string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int           `mapstructure:"REDIS_DB"`
	PostgresDSN      string        `mapstructure:"POSTGRES_DSN"`

	LLMEndpoint string        `mapstructure:"LLM_ENDPOINT"`
	LLMModel    string        `mapstructure:"LLM_MODEL"`
	LLMAPIKey   string        `mapstructure:"LLM_API_KEY"`
	LLMTimeout  time.Duration `mapstructure:"LLM_TIMEOUT"`

	ScraperEnabled       bool          `mapstructure:"SCRAPER_ENABLED"`
	TelegramBotToken     string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	PreviewRedirectAfter time.Duration `mapstructure:"PREVIEW_REDIRECT_AFTER"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":         ":8080",
	"BASE_URL":               "http://localhost:8080",
	"LOG_LEVEL":              "info",
	"SHUTDOWN_TIMEOUT":       "10s",
	"STORAGE_DRIVER":         "badger",
	"BADGERDB_PATH":          "./badger_data",
	"BADGER_GC_INTERVAL":     "5m",
	"REDIS_ADDR":             "localhost:6379",
	"REDIS_PASSWORD":         "",
	"REDIS_DB":               0,
	"POSTGRES_DSN":           "",
	"LLM_ENDPOINT":           "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
	"LLM_MODEL":              "qwen-plus",
	"LLM_API_KEY":            "",
	"LLM_TIMEOUT":            "30s",
	"SCRAPER_ENABLED":        false,
	"TELEGRAM_BOT_TOKEN":     "",
	"PREVIEW_REDIRECT_AFTER": "0s",
}

// LoadConfig reads config.yaml from path, if present, and overlays the
// environment.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Defaults also register every key, so AutomaticEnv picks them up on Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c Config) Validate() error {
	if c.ServerAddress == "" {
		return errors.New("SERVER_ADDRESS is not set")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" {
		return fmt.Errorf("BASE_URL %q is not an absolute URL", c.BaseURL)
	}

	switch c.StorageDriver {
	case "badger":
		if c.BadgerDBPath == "" {
			return errors.New("BADGERDB_PATH is not set")
		}
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is not set")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.LLMTimeout <= 0 {
		return errors.New("LLM_TIMEOUT must be positive")
	}
	if c.PreviewRedirectAfter < 0 {
		return errors.New("PREVIEW_REDIRECT_AFTER must not be negative")
	}
	// A meta refresh counts whole seconds.
	if c.PreviewRedirectAfter%time.Second != 0 {
		return fmt.Errorf("PREVIEW_REDIRECT_AFTER %s is not a whole number of seconds", c.PreviewRedirectAfter)
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
