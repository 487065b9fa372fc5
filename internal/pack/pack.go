/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pack loads reminder packs, YAML files that seed the reminder
// pool with a curated set of texts.
package pack

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn/internal/models"
)

// File is a parsed reminder pack.
type File struct {
	Name      string `yaml:"name"`
	Reminders []Item `yaml:"reminders"`
}

// Item is one reminder in a pack. Enabled defaults to true when the
// key is omitted.
type Item struct {
	Text      string `yaml:"text"`
	Tag       string `yaml:"tag"`
	Enabled   *bool  `yaml:"enabled"`
	Favourite bool   `yaml:"favourite"`
}

// Load reads and validates a pack file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pack: %w", err)
	}

	if len(file.Reminders) == 0 {
		return nil, fmt.Errorf("pack %q contains no reminders", path)
	}
	for i, item := range file.Reminders {
		if item.Text == "" {
			return nil, fmt.Errorf("pack %q: reminder %d has no text", path, i)
		}
	}

	return &file, nil
}

// Seed inserts the pack's reminders into the pool, skipping texts that
// already exist so re-seeding is idempotent. Returns how many rows
// were created.
func Seed(ctx context.Context, database *gorm.DB, file *File) (int, error) {
	created := 0
	for _, item := range file.Reminders {
		var count int64
		if err := database.WithContext(ctx).
			Model(&models.Reminder{}).
			Where("text = ?", item.Text).
			Count(&count).Error; err != nil {
			return created, fmt.Errorf("check existing reminder: %w", err)
		}
		if count > 0 {
			continue
		}

		enabled := true
		if item.Enabled != nil {
			enabled = *item.Enabled
		}

		reminder := models.Reminder{
			ID:        uuid.NewString(),
			Text:      item.Text,
			Tag:       item.Tag,
			Enabled:   enabled,
			Favourite: item.Favourite,
		}
		if err := database.WithContext(ctx).Create(&reminder).Error; err != nil {
			return created, fmt.Errorf("create reminder: %w", err)
		}
		created++
	}
	return created, nil
}
