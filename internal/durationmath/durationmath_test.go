/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package durationmath

import (
	"testing"
	"time"
)

func TestDurationMilliseconds(t *testing.T) {
	tests := []struct {
		name     string
		d        Duration
		expected int64
	}{
		{"zero", Duration{}, 0},
		{"one minute", Duration{Minutes: 1}, 60_000},
		{"one hour", Duration{Hours: 1}, 3_600_000},
		{"one day", Duration{Days: 1}, 86_400_000},
		{"mixed", Duration{Days: 1, Hours: 2, Minutes: 3, Seconds: 4, Millis: 5}, 86_400_000 + 2*3_600_000 + 3*60_000 + 4_000 + 5},
		{"negative", Duration{Minutes: -90}, -5_400_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Milliseconds(); got != tt.expected {
				t.Errorf("Milliseconds() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestAddSubtractRoundTrip(t *testing.T) {
	base := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	d := Duration{Days: 2, Hours: 5, Minutes: 30}

	forward := Add(base, d)
	if got := forward.Sub(base); got != time.Duration(d.Milliseconds())*time.Millisecond {
		t.Fatalf("Add() shifted by %v, want %v", got, time.Duration(d.Milliseconds())*time.Millisecond)
	}
	if back := Subtract(forward, d); !back.Equal(base) {
		t.Fatalf("Subtract() = %v, want %v", back, base)
	}
}

func TestTimeOfDayGetters(t *testing.T) {
	tod := NewTimeOfDay(22, 15, 7)
	if tod.Hour() != 22 || tod.Minute() != 15 || tod.Second() != 7 {
		t.Fatalf("getters = %d:%d:%d, want 22:15:7", tod.Hour(), tod.Minute(), tod.Second())
	}
	if tod.String() != "22:15:07" {
		t.Fatalf("String() = %q", tod.String())
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		hour    int
		minute  int
	}{
		{"hh:mm", "08:30", false, 8, 30},
		{"hh:mm:ss", "23:59:59", false, 23, 59},
		{"padded", " 07:00 ", false, 7, 0},
		{"hour out of range", "24:00", true, 0, 0},
		{"garbage", "morning", true, 0, 0},
		{"empty", "", true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tod, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error: %v", tt.input, err)
			}
			if tod.Hour() != tt.hour || tod.Minute() != tt.minute {
				t.Errorf("ParseTimeOfDay(%q) = %s", tt.input, tod)
			}
		})
	}
}

func TestTimeOfDayProjections(t *testing.T) {
	loc := time.FixedZone("TST", 3*3600)
	ref := time.Date(2026, time.August, 10, 4, 45, 0, 0, loc)
	tod := NewTimeOfDay(9, 30, 0)

	today := tod.On(ref)
	if today.Year() != 2026 || today.Month() != time.August || today.Day() != 10 {
		t.Fatalf("On() date = %v", today)
	}
	if today.Hour() != 9 || today.Minute() != 30 {
		t.Fatalf("On() clock = %v", today)
	}
	if today.Location() != loc {
		t.Fatalf("On() zone = %v, want %v", today.Location(), loc)
	}

	if got := tod.Tomorrow(ref).Sub(today); got != 24*time.Hour {
		t.Errorf("Tomorrow() offset = %v, want 24h", got)
	}
	if got := today.Sub(tod.Yesterday(ref)); got != 24*time.Hour {
		t.Errorf("Yesterday() offset = %v, want 24h", got)
	}
}
