/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package quiethours suppresses reminder delivery inside a daily
// do-not-disturb window and wakes the scheduler when it ends.
package quiethours

import (
	"time"

	"github.com/friendsincode/muninn/internal/durationmath"
)

// Window is a daily quiet interval. Start and End are clock times;
// a Start later than End means the window spans midnight.
type Window struct {
	Start   durationmath.TimeOfDay
	End     durationmath.TimeOfDay
	Enabled bool
}

// Contains reports whether t falls inside the window. The interval is
// half-open: the start minute is quiet, the end minute is not.
func (w Window) Contains(t time.Time) bool {
	if !w.Enabled {
		return false
	}

	start := w.Start.On(t)
	end := w.End.On(t)

	if start.Equal(end) {
		return false
	}
	if start.Before(end) {
		return !t.Before(start) && t.Before(end)
	}
	// Overnight: quiet from start until midnight and from midnight
	// until end.
	return !t.Before(start) || t.Before(end)
}

// NextEnd returns the first moment at or after from that lies outside
// the window. For a moment already outside, the upcoming end is still
// returned so callers can schedule a wake ahead of time.
func (w Window) NextEnd(from time.Time) time.Time {
	end := w.End.On(from)
	if !end.After(from) {
		end = w.End.Tomorrow(from)
	}
	return end
}
