/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package quiethours

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/durationmath"
	"github.com/friendsincode/muninn/internal/events"
)

func at(hour, min int) time.Time {
	return time.Date(2026, time.June, 3, hour, min, 0, 0, time.Local)
}

func overnightWindow(t *testing.T) Window {
	t.Helper()
	return Window{
		Start:   durationmath.NewTimeOfDay(22, 0, 0),
		End:     durationmath.NewTimeOfDay(7, 0, 0),
		Enabled: true,
	}
}

func TestWindowContains(t *testing.T) {
	daytime := Window{
		Start:   durationmath.NewTimeOfDay(13, 0, 0),
		End:     durationmath.NewTimeOfDay(15, 0, 0),
		Enabled: true,
	}
	overnight := overnightWindow(t)

	tests := []struct {
		name   string
		window Window
		t      time.Time
		want   bool
	}{
		{"before daytime window", daytime, at(12, 59), false},
		{"start is inclusive", daytime, at(13, 0), true},
		{"inside daytime window", daytime, at(14, 30), true},
		{"end is exclusive", daytime, at(15, 0), false},
		{"overnight evening side", overnight, at(23, 45), true},
		{"overnight morning side", overnight, at(3, 0), true},
		{"overnight end is exclusive", overnight, at(7, 0), false},
		{"overnight midday outside", overnight, at(12, 0), false},
		{"disabled window never matches", Window{
			Start: durationmath.NewTimeOfDay(0, 0, 0),
			End:   durationmath.NewTimeOfDay(23, 59, 0),
		}, at(12, 0), false},
		{"zero-length window never matches", Window{
			Start:   durationmath.NewTimeOfDay(9, 0, 0),
			End:     durationmath.NewTimeOfDay(9, 0, 0),
			Enabled: true,
		}, at(9, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.window.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestWindowNextEnd(t *testing.T) {
	overnight := overnightWindow(t)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"evening side ends tomorrow morning", at(23, 30), time.Date(2026, time.June, 4, 7, 0, 0, 0, time.Local)},
		{"morning side ends same day", at(3, 0), at(7, 0)},
		{"after today's end rolls to tomorrow", at(8, 0), time.Date(2026, time.June, 4, 7, 0, 0, 0, time.Local)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overnight.NextEnd(tt.from)
			if !got.Equal(tt.want) {
				t.Errorf("NextEnd(%v) = %v, want %v", tt.from, got, tt.want)
			}
			if overnight.Contains(got) {
				t.Errorf("NextEnd(%v) = %v still inside window", tt.from, got)
			}
		})
	}
}

func TestServiceWakePublishesEvent(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventQuietHoursEnded)
	defer bus.Unsubscribe(events.EventQuietHoursEnded, sub)

	window := Window{
		Start:   durationmath.NewTimeOfDay(0, 0, 0),
		End:     durationmath.NewTimeOfDay(23, 59, 0),
		Enabled: true,
	}
	svc := NewService(window, bus, zerolog.Nop())

	// Force a short wake by arming directly.
	svc.armWake(time.Now().Add(20 * time.Millisecond))

	select {
	case payload := <-sub:
		if _, ok := payload["ended_at"]; !ok {
			t.Error("payload missing ended_at")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wake event never published")
	}
}

func TestServiceCancelTimers(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(events.EventQuietHoursEnded)
	defer bus.Unsubscribe(events.EventQuietHoursEnded, sub)

	svc := NewService(overnightWindow(t), bus, zerolog.Nop())
	svc.armWake(time.Now().Add(30 * time.Millisecond))
	svc.CancelTimers()
	svc.CancelTimers() // idempotent

	select {
	case <-sub:
		t.Fatal("cancelled wake still fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceNextQuietEndDelegates(t *testing.T) {
	svc := NewService(overnightWindow(t), nil, zerolog.Nop())
	from := at(23, 30)
	want := time.Date(2026, time.June, 4, 7, 0, 0, 0, time.Local)
	if got := svc.NextQuietEnd(from); !got.Equal(want) {
		t.Errorf("NextQuietEnd(%v) = %v, want %v", from, got, want)
	}
	if !svc.IsInQuietHours(at(23, 45)) {
		t.Error("IsInQuietHours(23:45) = false")
	}
}
