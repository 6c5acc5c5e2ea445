package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=pinturas port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	AdminAPIKey string // x-admin-key for the admin endpoints
	CORSOrigins string
	Timezone    string
	LogLevel    string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Orphan mix sweep. Zero interval disables it.
	SweepInterval time.Duration
	SweepGrace    time.Duration
	RedisAddr     string
}

// Location resolves the branch timezone used for calendar-day filters.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func Load() *Config {
	cfg, err := LoadFromEnv(".env")
	if err != nil {
		logrus.Fatalf("[FATAL] %v", err)
	}

	if cfg.DatabaseDSN == defaultDSN {
		logrus.Warn("DATABASE_DSN usa el valor por defecto, define tu propio Postgres en producción")
	}
	if cfg.CORSOrigins == "http://localhost:3000" {
		logrus.Warn("CORS_ALLOWED_ORIGINS usa el valor por defecto, define tu dominio en producción")
	}
	if cfg.AdminAPIKey == "" {
		logrus.Warn("ADMIN_API_KEY no está configurada; los endpoints /api/admin responderán 500")
	}

	return cfg
}

// LoadFromEnv reads the optional dotenv file at envPath and then the process
// environment. Environment variables win over the file.
func LoadFromEnv(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("DATABASE_DSN", defaultDSN)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_API_KEY", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TIMEZONE", "America/Mexico_City")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("SWEEP_INTERVAL", "0s")
	v.SetDefault("SWEEP_GRACE", "10m")
	v.SetDefault("REDIS_ADDR", "")

	cfg := &Config{
		HTTPPort:          v.GetString("HTTP_PORT"),
		DatabaseDSN:       v.GetString("DATABASE_DSN"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AdminAPIKey:       v.GetString("ADMIN_API_KEY"),
		CORSOrigins:       v.GetString("CORS_ALLOWED_ORIGINS"),
		Timezone:          v.GetString("TIMEZONE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		DBMaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		DBMaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		DBConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		SweepInterval:     v.GetDuration("SWEEP_INTERVAL"),
		SweepGrace:        v.GetDuration("SWEEP_GRACE"),
		RedisAddr:         strings.TrimSpace(v.GetString("REDIS_ADDR")),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET no está definido, es obligatorio")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET debe tener al menos 32 caracteres")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE inválida %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}
