/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/models"
)

type stubChannel struct {
	fail      bool
	delivered []string
}

func (c *stubChannel) Name() string { return "stub" }

func (c *stubChannel) Deliver(_ context.Context, reminder models.ScheduledReminder) error {
	if c.fail {
		return errors.New("boom")
	}
	c.delivered = append(c.delivered, reminder.ID)
	return nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.ScheduledReminder{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func seedDue(t *testing.T, database *gorm.DB, fireAt time.Time) models.ScheduledReminder {
	t.Helper()
	row := models.ScheduledReminder{
		ID:     uuid.NewString(),
		Text:   "breathe",
		FireAt: fireAt,
		Status: models.DeliveryPending,
	}
	if err := database.Create(&row).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return row
}

func TestProcessDueDeliversAndMarks(t *testing.T) {
	database := testDB(t)
	now := time.Now()
	due := seedDue(t, database, now.Add(-time.Minute))
	future := seedDue(t, database, now.Add(time.Hour))

	bus := events.NewBus()
	sub := bus.Subscribe(events.EventReminderDelivered)
	defer bus.Unsubscribe(events.EventReminderDelivered, sub)

	channel := &stubChannel{}
	svc := NewService(database, bus, channel, Config{CheckInterval: time.Second}, zerolog.Nop())
	svc.ProcessDue(context.Background(), now)

	if len(channel.delivered) != 1 || channel.delivered[0] != due.ID {
		t.Fatalf("delivered = %v, want [%s]", channel.delivered, due.ID)
	}

	var updated models.ScheduledReminder
	if err := database.First(&updated, "id = ?", due.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if updated.Status != models.DeliveryDelivered {
		t.Errorf("status = %s, want delivered", updated.Status)
	}
	if updated.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", updated.Attempts)
	}
	if updated.DeliveredAt == nil {
		t.Error("delivered_at not recorded")
	}

	var untouched models.ScheduledReminder
	if err := database.First(&untouched, "id = ?", future.ID).Error; err != nil {
		t.Fatalf("reload future: %v", err)
	}
	if untouched.Status != models.DeliveryPending {
		t.Errorf("future reminder status = %s, want pending", untouched.Status)
	}

	select {
	case payload := <-sub:
		if payload["scheduled_id"] != due.ID {
			t.Errorf("event for %v, want %s", payload["scheduled_id"], due.ID)
		}
	default:
		t.Error("delivered event not published")
	}
}

func TestProcessDueRetriesThenFails(t *testing.T) {
	database := testDB(t)
	now := time.Now()
	due := seedDue(t, database, now.Add(-time.Minute))

	bus := events.NewBus()
	failSub := bus.Subscribe(events.EventReminderDeliveryFailed)
	defer bus.Unsubscribe(events.EventReminderDeliveryFailed, failSub)

	channel := &stubChannel{fail: true}
	svc := NewService(database, bus, channel, Config{CheckInterval: time.Second}, zerolog.Nop())

	for i := 1; i <= maxAttempts; i++ {
		svc.ProcessDue(context.Background(), now)

		var row models.ScheduledReminder
		if err := database.First(&row, "id = ?", due.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if row.Attempts != i {
			t.Fatalf("pass %d: attempts = %d", i, row.Attempts)
		}
		want := models.DeliveryPending
		if i == maxAttempts {
			want = models.DeliveryFailed
		}
		if row.Status != want {
			t.Fatalf("pass %d: status = %s, want %s", i, row.Status, want)
		}
		if row.LastError == "" {
			t.Fatalf("pass %d: last error not recorded", i)
		}
	}

	select {
	case <-failSub:
	default:
		t.Error("failure event not published")
	}
}

func TestDeliverSkipsEventWhenPersistFails(t *testing.T) {
	database := testDB(t)
	row := seedDue(t, database, time.Now().Add(-time.Minute))

	bus := events.NewBus()
	sub := bus.Subscribe(events.EventReminderDelivered)
	defer bus.Unsubscribe(events.EventReminderDelivered, sub)

	channel := &stubChannel{}
	svc := NewService(database, bus, channel, Config{}, zerolog.Nop())

	// Drop the table so the status write cannot persist.
	if err := database.Migrator().DropTable(&models.ScheduledReminder{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	svc.deliver(context.Background(), row)

	if len(channel.delivered) != 1 {
		t.Fatalf("channel deliveries = %d, want 1", len(channel.delivered))
	}
	select {
	case <-sub:
		t.Fatal("delivered event published although status write failed")
	case <-time.After(50 * time.Millisecond):
	}
}
