// Package config loads server settings from defaults, an optional config
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sakif/snippet-api/internal/permission"
)

type Config struct {
	Port     int    `mapstructure:"PORT"`
	DBPath   string `mapstructure:"DB_PATH"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AccessMode  string `mapstructure:"ACCESS_MODE"`
	Hyperlinked bool   `mapstructure:"HYPERLINKED"`
	BaseURL     string `mapstructure:"BASE_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

var defaults = map[string]any{
	"PORT":                 8080,
	"DB_PATH":              "data/snippets.db",
	"LOG_LEVEL":            "info",
	"ACCESS_MODE":          string(permission.ModeOwned),
	"HYPERLINKED":          true,
	"BASE_URL":             "",
	"JWT_SECRET":           "",
	"TOKEN_TTL":            "15m",
	"GITHUB_CLIENT_ID":     "",
	"GITHUB_CLIENT_SECRET": "",
	"GITHUB_CALLBACK_URL":  "",
	"RATE_LIMIT_RPS":       5.0,
	"RATE_LIMIT_BURST":     10,
}

// Load reads the configuration. file may be empty; when set it must
// exist and may be any format viper understands (yaml, toml, json, env).
// Every key must be registered with a default for AutomaticEnv to see it
// during Unmarshal.
func Load(file string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", file, err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := permission.ParseMode(c.AccessMode); err != nil {
		errs = append(errs, err)
	}
	if c.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL %s must not be negative", c.TokenTTL))
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		errs = append(errs, errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Mode returns the parsed access mode. Only valid after Validate.
func (c *Config) Mode() permission.Mode {
	m, _ := permission.ParseMode(c.AccessMode)
	return m
}

// Level returns the parsed log level. Only valid after Validate.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

// GitHubEnabled reports whether the OAuth login routes should be mounted.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// CallbackURL is GITHUB_CALLBACK_URL, or the localhost default for PORT.
func (c *Config) CallbackURL() string {
	if c.GitHubCallbackURL != "" {
		return c.GitHubCallbackURL
	}
	return fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Port)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: want debug, info, warn or error", s)
	}
	return l, nil
}
