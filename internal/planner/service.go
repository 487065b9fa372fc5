/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package planner maintains the rolling buffer of upcoming reminders:
// it chains fire times off the schedule engine and fills each slot
// with a sampled reminder text.
package planner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/models"
	"github.com/friendsincode/muninn/internal/sampler"
	"github.com/friendsincode/muninn/internal/schedule"
	"github.com/friendsincode/muninn/internal/telemetry"
)

// Options tunes the planner loop.
type Options struct {
	// Interval between top-up passes.
	Interval time.Duration

	// BufferSize is how many pending reminders the rolling buffer holds.
	BufferSize int

	// BatchBias is the favourite bias applied to batch fills. It may
	// differ from the single-selection default.
	BatchBias float64
}

// Service orchestrates the rolling reminder plan.
type Service struct {
	db     *gorm.DB
	engine *schedule.Engine
	bus    *events.Bus
	rng    sampler.Source
	logger zerolog.Logger
	opts   Options

	warnMu     sync.Mutex
	warnedKeys map[string]struct{}

	mu          sync.Mutex
	lastCleanup time.Time
}

// New constructs the planner service.
func New(database *gorm.DB, engine *schedule.Engine, bus *events.Bus, rng sampler.Source, opts Options, logger zerolog.Logger) *Service {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 24
	}
	return &Service{
		db:         database,
		engine:     engine,
		bus:        bus,
		rng:        rng,
		logger:     logger,
		opts:       opts,
		warnedKeys: make(map[string]struct{}),
	}
}

// Run executes the planner loop until the context is cancelled. Quiet
// hours ending and explicit refresh events trigger an immediate pass.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	var refreshCh, wakeCh events.Subscriber
	if s.bus != nil {
		refreshCh = s.bus.Subscribe(events.EventScheduleRefresh)
		wakeCh = s.bus.Subscribe(events.EventQuietHoursEnded)
		defer s.bus.Unsubscribe(events.EventScheduleRefresh, refreshCh)
		defer s.bus.Unsubscribe(events.EventQuietHoursEnded, wakeCh)
	}

	s.logger.Info().
		Dur("interval", s.opts.Interval).
		Int("buffer_size", s.opts.BufferSize).
		Msg("planner loop started")

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.engine.Cancel()
			s.logger.Info().Msg("planner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		case <-refreshCh:
			s.tick(ctx)
		case <-wakeCh:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	telemetry.PlannerTicksTotal.Inc()

	ctx, span := telemetry.StartSpan(ctx, "planner", "tick")
	defer span.End()

	now := time.Now()

	pending, err := s.pendingCount(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("planner failed to count pending reminders")
		telemetry.PlannerErrorsTotal.WithLabelValues("count_pending").Inc()
		telemetry.RecordError(span, err)
		return
	}
	telemetry.ScheduledRemindersBuffered.Set(float64(pending))

	missing := s.opts.BufferSize - pending
	if missing > 0 {
		created, err := s.topUp(ctx, now, missing)
		if err != nil {
			s.logger.Warn().Err(err).Msg("planner top-up failed")
			telemetry.PlannerErrorsTotal.WithLabelValues("top_up").Inc()
			telemetry.RecordError(span, err)
		} else if created > 0 {
			telemetry.ScheduledRemindersBuffered.Set(float64(pending + created))
		}
	}

	s.maybeCleanupOldEntries(ctx)
}

func (s *Service) pendingCount(ctx context.Context, now time.Time) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ScheduledReminder{}).
		Where("status = ?", models.DeliveryPending).
		Where("fire_at > ?", now).
		Count(&count).Error
	return int(count), err
}

// topUp materializes up to missing reminders, chaining fire times from
// the latest pending entry so the buffer stays gapless.
func (s *Service) topUp(ctx context.Context, now time.Time, missing int) (int, error) {
	pool, err := s.poolEntries(ctx)
	if err != nil {
		return 0, err
	}

	picks, err := sampler.SelectBatch(missing, pool, s.opts.BatchBias, s.rng)
	if err != nil {
		if errors.Is(err, sampler.ErrEmptyPool) {
			s.warnOnce("empty_reminder_pool", func(e *zerolog.Event) {
				e.Msg("reminder pool is empty, nothing to schedule")
			})
			return 0, nil
		}
		return 0, err
	}

	from, err := s.lastPendingFireAt(ctx, now)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, pick := range picks {
		result := s.engine.NextFireTime(from)
		if result.PostQuietAdjustment {
			telemetry.QuietHoursAdjustmentsTotal.Inc()
		}
		telemetry.SamplerDrawsTotal.WithLabelValues(boolLabel(pick.Favourite)).Inc()

		row := models.ScheduledReminder{
			ID:        uuid.NewString(),
			Text:      pick.Text,
			Tag:       pick.Tag,
			FireAt:    result.At,
			PostQuiet: result.PostQuietAdjustment,
			Status:    models.DeliveryPending,
		}
		if id, ok := s.reminderID(ctx, pick.Text); ok {
			row.ReminderID = id
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return created, err
		}
		created++

		if s.bus != nil {
			s.bus.Publish(events.EventReminderScheduled, events.Payload{
				"scheduled_id": row.ID,
				"text":         row.Text,
				"fire_at":      row.FireAt,
				"post_quiet":   row.PostQuiet,
			})
		}

		from = result.At
	}

	s.logger.Debug().Int("created", created).Time("horizon", from).Msg("planner buffer topped up")
	return created, nil
}

func (s *Service) lastPendingFireAt(ctx context.Context, now time.Time) (time.Time, error) {
	var last models.ScheduledReminder
	err := s.db.WithContext(ctx).
		Where("status = ?", models.DeliveryPending).
		Where("fire_at > ?", now).
		Order("fire_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return now, nil
	}
	if err != nil {
		return now, err
	}
	return last.FireAt, nil
}

func (s *Service) poolEntries(ctx context.Context) ([]sampler.Entry, error) {
	var reminders []models.Reminder
	if err := s.db.WithContext(ctx).Find(&reminders).Error; err != nil {
		return nil, err
	}
	entries := make([]sampler.Entry, len(reminders))
	for i, r := range reminders {
		entries[i] = sampler.Entry{
			Text:      r.Text,
			Enabled:   r.Enabled,
			Tag:       r.Tag,
			Favourite: r.Favourite,
		}
	}
	return entries, nil
}

func (s *Service) reminderID(ctx context.Context, text string) (string, bool) {
	var reminder models.Reminder
	err := s.db.WithContext(ctx).
		Select("id").
		Where("text = ?", text).
		First(&reminder).Error
	if err != nil {
		return "", false
	}
	return reminder.ID, true
}

// maybeCleanupOldEntries deletes delivered and failed rows older than
// 7 days. Runs at most once per hour to avoid unnecessary DB churn.
func (s *Service) maybeCleanupOldEntries(ctx context.Context) {
	s.mu.Lock()
	if time.Since(s.lastCleanup) < time.Hour {
		s.mu.Unlock()
		return
	}
	s.lastCleanup = time.Now()
	s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)
	result := s.db.WithContext(ctx).
		Where("fire_at < ? AND status IN ?", cutoff, []models.DeliveryStatus{models.DeliveryDelivered, models.DeliveryFailed}).
		Delete(&models.ScheduledReminder{})
	if result.Error != nil {
		s.logger.Warn().Err(result.Error).Msg("failed to clean up old scheduled reminders")
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", result.RowsAffected).Msg("cleaned up old scheduled reminders")
	}
}

// RefreshNow triggers an immediate planning pass.
func (s *Service) RefreshNow(ctx context.Context) {
	s.tick(ctx)
}

// Upcoming returns pending reminders within horizon, soonest first.
func (s *Service) Upcoming(ctx context.Context, from time.Time, horizon time.Duration) ([]models.ScheduledReminder, error) {
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	var rows []models.ScheduledReminder
	err := s.db.WithContext(ctx).
		Where("status = ?", models.DeliveryPending).
		Where("fire_at >= ?", from).
		Where("fire_at <= ?", from.Add(horizon)).
		Order("fire_at ASC").
		Find(&rows).Error
	return rows, err
}

// PreviewItem is a simulated (fire instant, text) pair.
type PreviewItem struct {
	FireAt    time.Time `json:"fire_at"`
	Text      string    `json:"text"`
	Tag       string    `json:"tag,omitempty"`
	PostQuiet bool      `json:"post_quiet"`
}

// Preview simulates the next n reminders from the given instant
// without persisting anything.
func (s *Service) Preview(ctx context.Context, from time.Time, n int) ([]PreviewItem, error) {
	pool, err := s.poolEntries(ctx)
	if err != nil {
		return nil, err
	}
	picks, err := sampler.SelectBatch(n, pool, s.opts.BatchBias, s.rng)
	if err != nil {
		return nil, err
	}

	items := make([]PreviewItem, 0, len(picks))
	for _, pick := range picks {
		result := s.engine.NextFireTime(from)
		items = append(items, PreviewItem{
			FireAt:    result.At,
			Text:      pick.Text,
			Tag:       pick.Tag,
			PostQuiet: result.PostQuietAdjustment,
		})
		from = result.At
	}
	return items, nil
}

func (s *Service) warnOnce(key string, logFn func(e *zerolog.Event)) {
	s.warnMu.Lock()
	if s.warnedKeys == nil {
		s.warnedKeys = make(map[string]struct{})
	}
	if _, ok := s.warnedKeys[key]; ok {
		s.warnMu.Unlock()
		return
	}
	s.warnedKeys[key] = struct{}{}
	s.warnMu.Unlock()

	logFn(s.logger.Warn())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
