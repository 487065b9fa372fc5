/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/muninn/internal/models"
)

const samplePack = `
name: starter
reminders:
  - text: Take three deep breaths
    tag: breath
    favourite: true
  - text: Relax your shoulders
    tag: body
  - text: Notice one sound around you
    tag: mind
    enabled: false
`

func writePack(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	file, err := Load(writePack(t, samplePack))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Name != "starter" {
		t.Errorf("name = %q", file.Name)
	}
	if len(file.Reminders) != 3 {
		t.Fatalf("reminders = %d, want 3", len(file.Reminders))
	}
	if !file.Reminders[0].Favourite {
		t.Error("first reminder should be favourite")
	}
	if file.Reminders[1].Enabled != nil {
		t.Error("omitted enabled should be nil")
	}
	if file.Reminders[2].Enabled == nil || *file.Reminders[2].Enabled {
		t.Error("third reminder should be explicitly disabled")
	}
}

func TestLoadRejectsEmptyAndInvalid(t *testing.T) {
	if _, err := Load(writePack(t, "name: empty\nreminders: []\n")); err == nil {
		t.Error("expected empty pack to fail")
	}
	if _, err := Load(writePack(t, "reminders:\n  - tag: no-text\n")); err == nil {
		t.Error("expected missing text to fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected missing file to fail")
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&models.Reminder{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	file, err := Load(writePack(t, samplePack))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	created, err := Seed(context.Background(), database, file)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	created, err = Seed(context.Background(), database, file)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if created != 0 {
		t.Fatalf("reseed created = %d, want 0", created)
	}

	var disabled models.Reminder
	if err := database.First(&disabled, "tag = ?", "mind").Error; err != nil {
		t.Fatalf("load disabled reminder: %v", err)
	}
	if disabled.Enabled {
		t.Error("disabled pack item seeded as enabled")
	}
}
