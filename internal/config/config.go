// Package config loads service settings from defaults, an optional YAML file
// and CMS_* environment variables, in that order of precedence.
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

// Config holds every runtime setting of the API and CLI.
type Config struct {
	HTTPAddr     string        `yaml:"http_addr"`
	GRPCAddr     string        `yaml:"grpc_addr"`
	PostgresDSN  string        `yaml:"postgres_dsn"`
	JWTSecret    string        `yaml:"jwt_secret"`
	JWTIssuer    string        `yaml:"jwt_issuer"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	RedisAddr    string        `yaml:"redis_addr"`
	RateBurst    int           `yaml:"rate_burst"`
	RatePerSec   float64       `yaml:"rate_per_second"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	StrictAudit  bool          `yaml:"strict_audit"`
	OTelEndpoint string        `yaml:"otel_endpoint"`
	LogLevel     string        `yaml:"log_level"`
	Version      string        `yaml:"-"`
	Commit       string        `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:     ":8080",
		GRPCAddr:     ":9090",
		JWTIssuer:    "orgcms",
		TokenTTL:     12 * time.Hour,
		RateBurst:    20,
		RatePerSec:   10,
		MaxBodyBytes: 1 << 20,
		CORSOrigins:  []string{"*"},
		LogLevel:     "info",
		Version:      "dev",
		Commit:       "none",
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from os.Getenv.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom builds a Config using getenv for lookups.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(getenv("CMS_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	setString(&cfg.HTTPAddr, getenv("CMS_HTTP_ADDR"))
	setString(&cfg.GRPCAddr, getenv("CMS_GRPC_ADDR"))
	setString(&cfg.PostgresDSN, getenv("CMS_PG_DSN"))
	setString(&cfg.JWTSecret, getenv("CMS_JWT_SECRET"))
	setString(&cfg.JWTIssuer, getenv("CMS_JWT_ISSUER"))
	setString(&cfg.RedisAddr, getenv("CMS_REDIS_ADDR"))
	setString(&cfg.OTelEndpoint, getenv("CMS_OTEL_ENDPOINT"))
	setString(&cfg.LogLevel, getenv("CMS_LOG_LEVEL"))
	setString(&cfg.Version, getenv("CMS_VERSION"))
	setString(&cfg.Commit, getenv("CMS_COMMIT"))

	var errs []error
	if v := strings.TrimSpace(getenv("CMS_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CMS_TOKEN_TTL: %w", err))
		}
		cfg.TokenTTL = d
	}
	if v := strings.TrimSpace(getenv("CMS_RATE_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CMS_RATE_BURST: %w", err))
		}
		cfg.RateBurst = n
	}
	if v := strings.TrimSpace(getenv("CMS_RATE_PER_SECOND")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CMS_RATE_PER_SECOND: %w", err))
		}
		cfg.RatePerSec = f
	}
	if v := strings.TrimSpace(getenv("CMS_MAX_BODY_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CMS_MAX_BODY_BYTES: %w", err))
		}
		cfg.MaxBodyBytes = n
	}
	if v := strings.TrimSpace(getenv("CMS_STRICT_AUDIT")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CMS_STRICT_AUDIT: %w", err))
		}
		cfg.StrictAudit = b
	}
	if v := strings.TrimSpace(getenv("CMS_CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings the API cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("jwt secret is required (CMS_JWT_SECRET)"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}
	if c.RateBurst <= 0 || c.RatePerSec <= 0 {
		errs = append(errs, errors.New("rate limit burst and rate must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
