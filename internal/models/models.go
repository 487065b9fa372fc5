/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Reminder is one entry in the reminder pool. Pools are small and read
// in full on every planning pass.
type Reminder struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Text      string `gorm:"type:text"`
	Tag       string `gorm:"type:varchar(64);index"`
	Enabled   bool   `gorm:"index"`
	Favourite bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliveryStatus tracks a scheduled reminder through its lifecycle.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// ScheduledReminder is a materialized (fire instant, text) pair in the
// planner's rolling buffer.
type ScheduledReminder struct {
	ID          string         `gorm:"type:uuid;primaryKey"`
	ReminderID  string         `gorm:"type:uuid;index"`
	Text        string         `gorm:"type:text"`
	Tag         string         `gorm:"type:varchar(64)"`
	FireAt      time.Time      `gorm:"index"`
	PostQuiet   bool
	Status      DeliveryStatus `gorm:"type:varchar(16);index"`
	Attempts    int
	LastError   string         `gorm:"type:text"`
	DeliveredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
