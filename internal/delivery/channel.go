/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package delivery drains due reminders from the rolling buffer and
// hands them to a notification channel.
package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/models"
)

// Channel delivers a single reminder to the user.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, reminder models.ScheduledReminder) error
}

// LogChannel writes reminders to the process log. It is the default
// channel for development and for headless deployments where an
// external consumer watches the event stream instead.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log-backed delivery channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With().Str("channel", "log").Logger()}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Deliver(_ context.Context, reminder models.ScheduledReminder) error {
	c.logger.Info().
		Str("id", reminder.ID).
		Str("tag", reminder.Tag).
		Time("fire_at", reminder.FireAt).
		Msg(reminder.Text)
	return nil
}

// EmailChannel sends reminders over SMTP.
type EmailChannel struct {
	config Config
	logger zerolog.Logger
}

// NewEmailChannel creates an SMTP-backed delivery channel.
func NewEmailChannel(config Config, logger zerolog.Logger) *EmailChannel {
	return &EmailChannel{
		config: config,
		logger: logger.With().Str("channel", "email").Logger(),
	}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(_ context.Context, reminder models.ScheduledReminder) error {
	if c.config.SMTPHost == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if c.config.Recipient == "" {
		return fmt.Errorf("no recipient configured")
	}

	from := c.config.SMTPFrom
	if c.config.SMTPFromName != "" {
		from = fmt.Sprintf("%s <%s>", c.config.SMTPFromName, c.config.SMTPFrom)
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", c.config.Recipient))
	msg.WriteString("Subject: Mindfulness reminder\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(reminder.Text)

	addr := fmt.Sprintf("%s:%d", c.config.SMTPHost, c.config.SMTPPort)
	var auth smtp.Auth
	if c.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", c.config.SMTPUsername, c.config.SMTPPassword, c.config.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, c.config.SMTPFrom, []string{c.config.Recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}

	c.logger.Info().
		Str("id", reminder.ID).
		Str("to", c.config.Recipient).
		Msg("reminder email sent")
	return nil
}
