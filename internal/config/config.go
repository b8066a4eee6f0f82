package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr         string        `yaml:"http_addr"`
	DBDSN            string        `yaml:"db_dsn"`
	DBSchema         string        `yaml:"db_schema"`
	DBRetryInterval  time.Duration `yaml:"db_retry_interval"`
	ReportRoot       string        `yaml:"report_root"`
	TelegramBotToken string        `yaml:"telegram_bot_token"`
	TelegramChatID   string        `yaml:"telegram_chat_id"`
	TelegramAPIBase  string        `yaml:"telegram_api_base_url"`
	TelegramTimeout  time.Duration `yaml:"telegram_timeout"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	RateLimitRPS     float64       `yaml:"rate_limit_rps"`
	RateLimitBurst   float64       `yaml:"rate_limit_burst"`
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"`
	TracingEnabled   bool          `yaml:"tracing_enabled"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:        ":8000",
		DBSchema:        "transactions",
		DBRetryInterval: 5 * time.Second,
		ReportRoot:      ".",
		TelegramTimeout: 20 * time.Second,
		MaxBodyBytes:    1000 << 20,
		RateLimitRPS:    10,
		RateLimitBurst:  30,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if
// set), then the process environment. Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()
	c := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := c.loadFile(path); err != nil {
			return c, err
		}
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.DBDSN, "DB_DSN")
	setString(&c.DBSchema, "DB_SCHEMA")
	setString(&c.ReportRoot, "REPORT_ROOT")
	setString(&c.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.TelegramChatID, "TELEGRAM_CHAT_ID")
	setString(&c.TelegramAPIBase, "TELEGRAM_API_BASE_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")

	if v := env("DB_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid DB_RETRY_INTERVAL")
		}
		c.DBRetryInterval = d
	}
	if v := env("TELEGRAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid TELEGRAM_TIMEOUT")
		}
		c.TelegramTimeout = d
	}
	if v := env("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.New("invalid MAX_BODY_BYTES")
		}
		c.MaxBodyBytes = n
	}
	if v := env("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("invalid RATE_LIMIT_RPS")
		}
		c.RateLimitRPS = f
	}
	if v := env("RATE_LIMIT_BURST"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("invalid RATE_LIMIT_BURST")
		}
		c.RateLimitBurst = f
	}
	if v := env("TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("invalid TRACING_ENABLED")
		}
		c.TracingEnabled = b
	}
	return nil
}

func (c Config) Validate() error {
	var missing []string
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if c.ReportRoot == "" {
		missing = append(missing, "REPORT_ROOT")
	}
	if len(missing) > 0 {
		return errors.New("missing required env: " + strings.Join(missing, ","))
	}
	if c.DBRetryInterval <= 0 {
		return errors.New("DB_RETRY_INTERVAL must be positive")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.New("invalid LOG_FORMAT: use json or console")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}
