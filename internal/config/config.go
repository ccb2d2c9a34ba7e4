// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// DefaultCORSOrigins are the frontend dev servers.
var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
	"http://localhost:5175",
	"http://localhost:3000",
	"http://localhost:9000",
}

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	OTP      OTPConfig
	Redis    RedisConfig
	Auth     AuthConfig
	TLS      TLSConfig
}

type TLSConfig struct {
	Mode     string // off, manual
	CertFile string // Path to certificate file (manual mode)
	KeyFile  string // Path to private key file (manual mode)
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
	CORSOrigins []string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // postgres:// URL or SQLite path
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type OTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	TTL    time.Duration
	Length int
	Store  string // memory, redis
}

type RedisConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	AdminUsername      string // created on startup if missing; empty disables
	AdminPassword      string
	BcryptCost         int
	TempPasswordLength int
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
			CORSOrigins: splitList(cmd.StringSlice("cors-origins")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		OTP: OTPConfig{
			TTL:    time.Duration(cmd.Int("otp-ttl")) * time.Minute,
			Length: int(cmd.Int("otp-length")),
			Store:  strings.ToLower(cmd.String("otp-store")),
		},
		Redis: RedisConfig{
			Addr:     cmd.String("redis-addr"),
			Password: cmd.String("redis-password"),
			DB:       int(cmd.Int("redis-db")),
			Prefix:   cmd.String("redis-prefix"),
		},
		Auth: AuthConfig{
			AdminUsername:      cmd.String("admin-username"),
			AdminPassword:      cmd.String("admin-password"),
			BcryptCost:         int(cmd.Int("bcrypt-cost")),
			TempPasswordLength: int(cmd.Int("temp-password-length")),
		},
		TLS: TLSConfig{
			Mode:     strings.ToLower(cmd.String("tls-mode")),
			CertFile: cmd.String("tls-cert-file"),
			KeyFile:  cmd.String("tls-key-file"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate checks combinations of settings that cannot work together.
func (c *Config) Validate() error {
	switch c.OTP.Store {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("otp store redis requires redis-addr")
		}
	default:
		return fmt.Errorf("unknown otp store %q", c.OTP.Store)
	}

	switch c.TLS.Mode {
	case "off":
	case "manual":
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("tls mode manual requires tls-cert-file and tls-key-file")
		}
	default:
		return fmt.Errorf("unknown tls mode %q", c.TLS.Mode)
	}

	return nil
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "http"
	if cfg.TLS.Mode == "manual" {
		scheme = "https"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// splitList flattens comma separated entries, as delivered by env vars.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8000,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Value:   DefaultCORSOrigins,
			Usage:   "Allowed CORS origins (comma separated, * allows any)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CORS_ORIGINS"), toml.TOML("server.cors_origins", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/app.db",
			Usage:   "Database DSN (postgres:// URL or SQLite path)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), cli.EnvVar("DATABASE_URL"), toml.TOML("database.dsn", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (empty disables email delivery)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "IPO Allotment",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// OTP flags
		&cli.IntFlag{
			Name:    "otp-ttl",
			Value:   10,
			Usage:   "OTP validity in minutes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_TTL"), toml.TOML("otp.ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-length",
			Value:   6,
			Usage:   "Number of digits in an OTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_LENGTH"), toml.TOML("otp.length", configFile)),
		},
		&cli.StringFlag{
			Name:    "otp-store",
			Value:   "memory",
			Usage:   "OTP store (memory, redis)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_STORE"), toml.TOML("otp.store", configFile)),
		},
		// Redis flags
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address (host:port)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_ADDR"), toml.TOML("redis.addr", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_PASSWORD"), toml.TOML("redis.password", configFile)),
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_DB"), toml.TOML("redis.db", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-prefix",
			Value:   "otp",
			Usage:   "Key prefix for OTP entries",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_PREFIX"), toml.TOML("redis.prefix", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "admin-username",
			Value:   "admin",
			Usage:   "Bootstrap admin username (empty disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_USERNAME"), toml.TOML("auth.admin_username", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-password",
			Value:   "admin123",
			Usage:   "Bootstrap admin password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_PASSWORD"), toml.TOML("auth.admin_password", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   10,
			Usage:   "bcrypt cost factor",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_COST"), toml.TOML("auth.bcrypt_cost", configFile)),
		},
		&cli.IntFlag{
			Name:    "temp-password-length",
			Value:   12,
			Usage:   "Length of temporary passwords sent on recovery",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TEMP_PASSWORD_LENGTH"), toml.TOML("auth.temp_password_length", configFile)),
		},
		// TLS flags
		&cli.StringFlag{
			Name:    "tls-mode",
			Value:   "off",
			Usage:   "TLS mode (off, manual)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_MODE"), toml.TOML("tls.mode", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-cert-file",
			Usage:   "Path to TLS certificate file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_CERT_FILE"), toml.TOML("tls.cert_file", configFile)),
		},
		&cli.StringFlag{
			Name:    "tls-key-file",
			Usage:   "Path to TLS private key file (manual mode)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TLS_KEY_FILE"), toml.TOML("tls.key_file", configFile)),
		},
	}
}
