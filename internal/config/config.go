/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/friendsincode/muninn/internal/durationmath"
	"github.com/friendsincode/muninn/internal/quiethours"
	"github.com/friendsincode/muninn/internal/sampler"
	"github.com/friendsincode/muninn/internal/schedule"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MetricsBind   string
	Timezone      string

	// Planner configuration
	PlannerInterval   time.Duration
	PlannerBufferSize int

	// Schedule configuration
	ScheduleMode     string // "periodic" or "random"
	PeriodHours      int
	PeriodMinutes    int
	RandomMinMinutes int
	RandomMaxMinutes int

	// Quiet hours configuration
	QuietHoursEnabled bool
	QuietHoursStart   string
	QuietHoursEnd     string

	// Sampler configuration
	FavouriteBias      float64
	BatchFavouriteBias float64

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	// Multi-instance configuration
	LeaderElectionEnabled bool
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	InstanceID            string

	// NATS event fan-out
	NATSEnabled bool
	NATSURL     string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("MUNINN_ENV", "development"),
		HTTPBind:      getEnv("MUNINN_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("MUNINN_HTTP_PORT", 8080),
		DBBackend:     DatabaseBackend(getEnv("MUNINN_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("MUNINN_DB_DSN", ""),
		JWTSigningKey: getEnv("MUNINN_JWT_SIGNING_KEY", ""),
		MetricsBind:   getEnv("MUNINN_METRICS_BIND", "127.0.0.1:9000"),
		Timezone:      getEnv("MUNINN_TIMEZONE", "Local"),

		PlannerInterval:   time.Duration(getEnvInt("MUNINN_PLANNER_INTERVAL_SECONDS", 60)) * time.Second,
		PlannerBufferSize: getEnvInt("MUNINN_PLANNER_BUFFER_SIZE", 24),

		ScheduleMode:     getEnv("MUNINN_SCHEDULE_MODE", string(schedule.KindPeriodic)),
		PeriodHours:      getEnvInt("MUNINN_PERIOD_HOURS", 1),
		PeriodMinutes:    getEnvInt("MUNINN_PERIOD_MINUTES", 0),
		RandomMinMinutes: getEnvInt("MUNINN_RANDOM_MIN_MINUTES", 30),
		RandomMaxMinutes: getEnvInt("MUNINN_RANDOM_MAX_MINUTES", 90),

		QuietHoursEnabled: getEnvBool("MUNINN_QUIET_HOURS_ENABLED", true),
		QuietHoursStart:   getEnv("MUNINN_QUIET_HOURS_START", "22:00"),
		QuietHoursEnd:     getEnv("MUNINN_QUIET_HOURS_END", "07:00"),

		FavouriteBias:      getEnvFloat("MUNINN_FAVOURITE_BIAS", sampler.DefaultFavouriteBias),
		BatchFavouriteBias: getEnvFloat("MUNINN_BATCH_FAVOURITE_BIAS", 0.3),

		TracingEnabled:    getEnvBool("MUNINN_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MUNINN_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MUNINN_TRACING_SAMPLE_RATE", 1.0),

		LeaderElectionEnabled: getEnvBool("MUNINN_LEADER_ELECTION_ENABLED", false),
		RedisAddr:             getEnv("MUNINN_REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("MUNINN_REDIS_PASSWORD", ""),
		RedisDB:               getEnvInt("MUNINN_REDIS_DB", 0),
		InstanceID:            getEnv("MUNINN_INSTANCE_ID", ""),

		NATSEnabled: getEnvBool("MUNINN_NATS_ENABLED", false),
		NATSURL:     getEnv("MUNINN_NATS_URL", "nats://localhost:4222"),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("MUNINN_DB_DSN must be provided")
	}

	if err := cfg.ScheduleConfig().Validate(); err != nil {
		return nil, fmt.Errorf("MUNINN_SCHEDULE_MODE: %w", err)
	}

	if cfg.QuietHoursEnabled {
		if _, err := durationmath.ParseTimeOfDay(cfg.QuietHoursStart); err != nil {
			return nil, fmt.Errorf("MUNINN_QUIET_HOURS_START: %w", err)
		}
		if _, err := durationmath.ParseTimeOfDay(cfg.QuietHoursEnd); err != nil {
			return nil, fmt.Errorf("MUNINN_QUIET_HOURS_END: %w", err)
		}
	}

	if cfg.FavouriteBias < 0 || cfg.FavouriteBias > 1 {
		return nil, fmt.Errorf("MUNINN_FAVOURITE_BIAS must be within [0, 1]")
	}
	if cfg.BatchFavouriteBias < 0 || cfg.BatchFavouriteBias > 1 {
		return nil, fmt.Errorf("MUNINN_BATCH_FAVOURITE_BIAS must be within [0, 1]")
	}

	if strings.EqualFold(cfg.Environment, "production") && cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MUNINN_JWT_SIGNING_KEY must be provided in production")
	}

	return cfg, nil
}

// ScheduleConfig assembles the cadence config from the flat env fields.
func (c *Config) ScheduleConfig() schedule.Config {
	return schedule.Config{
		Kind:       schedule.Kind(c.ScheduleMode),
		Hours:      c.PeriodHours,
		Minutes:    c.PeriodMinutes,
		MinMinutes: c.RandomMinMinutes,
		MaxMinutes: c.RandomMaxMinutes,
	}
}

// QuietWindow assembles the quiet-hours window. Load has already
// validated the clock strings, so parse errors only occur when the
// struct was built by hand.
func (c *Config) QuietWindow() (quiethours.Window, error) {
	if !c.QuietHoursEnabled {
		return quiethours.Window{}, nil
	}
	start, err := durationmath.ParseTimeOfDay(c.QuietHoursStart)
	if err != nil {
		return quiethours.Window{}, fmt.Errorf("quiet hours start: %w", err)
	}
	end, err := durationmath.ParseTimeOfDay(c.QuietHoursEnd)
	if err != nil {
		return quiethours.Window{}, fmt.Errorf("quiet hours end: %w", err)
	}
	return quiethours.Window{Start: start, End: end, Enabled: true}, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
