/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package delivery

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/models"
	"github.com/friendsincode/muninn/internal/telemetry"
)

// maxAttempts bounds redelivery of a failing reminder before it is
// marked failed for good.
const maxAttempts = 3

// Config holds delivery service configuration.
type Config struct {
	// Channel selects the delivery backend: "log" or "email".
	Channel string

	// SMTP settings
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	Recipient    string

	CheckInterval time.Duration
}

// ConfigFromEnv loads configuration from environment variables.
func ConfigFromEnv() Config {
	port, _ := strconv.Atoi(getEnv("MUNINN_SMTP_PORT", "587"))
	interval, err := time.ParseDuration(getEnv("MUNINN_DELIVERY_CHECK_INTERVAL", "30s"))
	if err != nil || interval <= 0 {
		interval = 30 * time.Second
	}

	return Config{
		Channel:       getEnv("MUNINN_DELIVERY_CHANNEL", "log"),
		SMTPHost:      getEnv("MUNINN_SMTP_HOST", ""),
		SMTPPort:      port,
		SMTPUsername:  getEnv("MUNINN_SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("MUNINN_SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("MUNINN_SMTP_FROM", "noreply@example.com"),
		SMTPFromName:  getEnv("MUNINN_SMTP_FROM_NAME", "Muninn"),
		Recipient:     getEnv("MUNINN_SMTP_RECIPIENT", ""),
		CheckInterval: interval,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ChannelFromConfig builds the configured delivery channel.
func ChannelFromConfig(config Config, logger zerolog.Logger) Channel {
	if config.Channel == "email" {
		return NewEmailChannel(config, logger)
	}
	return NewLogChannel(logger)
}

// Service polls for due reminders and delivers them.
type Service struct {
	db      *gorm.DB
	bus     *events.Bus
	channel Channel
	config  Config
	logger  zerolog.Logger
}

// NewService creates the delivery service.
func NewService(database *gorm.DB, bus *events.Bus, channel Channel, config Config, logger zerolog.Logger) *Service {
	return &Service{
		db:      database,
		bus:     bus,
		channel: channel,
		config:  config,
		logger:  logger.With().Str("component", "delivery").Logger(),
	}
}

// Start runs the delivery loop until the context is cancelled.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	s.logger.Info().
		Str("channel", s.channel.Name()).
		Dur("interval", s.config.CheckInterval).
		Msg("delivery service started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("delivery service stopping")
			return
		case <-ticker.C:
			s.ProcessDue(ctx, time.Now())
		}
	}
}

// ProcessDue delivers every pending reminder whose fire instant has
// passed. Failures are retried on subsequent passes up to maxAttempts.
func (s *Service) ProcessDue(ctx context.Context, now time.Time) {
	var due []models.ScheduledReminder
	err := s.db.WithContext(ctx).
		Where("status = ?", models.DeliveryPending).
		Where("fire_at <= ?", now).
		Order("fire_at ASC").
		Find(&due).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load due reminders")
		return
	}

	for _, reminder := range due {
		s.deliver(ctx, reminder)
	}
}

func (s *Service) deliver(ctx context.Context, reminder models.ScheduledReminder) {
	err := s.channel.Deliver(ctx, reminder)
	if err == nil {
		telemetry.RemindersDeliveredTotal.WithLabelValues(s.channel.Name()).Inc()
		now := time.Now()
		if err := s.db.WithContext(ctx).Model(&reminder).Updates(map[string]any{
			"status":       models.DeliveryDelivered,
			"attempts":     reminder.Attempts + 1,
			"last_error":   "",
			"delivered_at": &now,
		}).Error; err != nil {
			// The row stays pending and will be retried; announcing a
			// delivery that was not recorded would double-notify.
			s.logger.Error().Err(err).Str("id", reminder.ID).Msg("persist delivered status")
			return
		}
		if s.bus != nil {
			s.bus.Publish(events.EventReminderDelivered, events.Payload{
				"scheduled_id": reminder.ID,
				"text":         reminder.Text,
				"channel":      s.channel.Name(),
			})
		}
		return
	}

	telemetry.ReminderDeliveryFailuresTotal.WithLabelValues(s.channel.Name()).Inc()
	attempts := reminder.Attempts + 1
	status := models.DeliveryPending
	if attempts >= maxAttempts {
		status = models.DeliveryFailed
	}

	s.logger.Warn().Err(err).
		Str("id", reminder.ID).
		Int("attempts", attempts).
		Str("status", string(status)).
		Msg("reminder delivery failed")

	if updateErr := s.db.WithContext(ctx).Model(&reminder).Updates(map[string]any{
		"status":     status,
		"attempts":   attempts,
		"last_error": err.Error(),
	}).Error; updateErr != nil {
		s.logger.Error().Err(updateErr).Str("id", reminder.ID).Msg("persist failure status")
		return
	}

	if status == models.DeliveryFailed && s.bus != nil {
		s.bus.Publish(events.EventReminderDeliveryFailed, events.Payload{
			"scheduled_id": reminder.ID,
			"text":         reminder.Text,
			"channel":      s.channel.Name(),
			"error":        err.Error(),
		})
	}
}
