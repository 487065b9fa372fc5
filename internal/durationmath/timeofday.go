/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package durationmath

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is an hour/minute/second triple with no date component.
// Internally it is pinned to a neutral UTC calendar day so that its own
// getters never shift under daylight-saving transitions of the local zone.
type TimeOfDay struct {
	ref time.Time
}

// NewTimeOfDay builds a TimeOfDay. Out-of-range components wrap the way
// time.Date wraps them.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	ref := time.Date(2000, time.January, 1, hour, minute, second, 0, time.UTC)
	return TimeOfDay{ref: ref}
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
		nums[i] = n
	}
	if nums[0] < 0 || nums[0] > 23 || nums[1] < 0 || nums[1] > 59 || nums[2] < 0 || nums[2] > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return NewTimeOfDay(nums[0], nums[1], nums[2]), nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return t.ref.Hour() }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return t.ref.Minute() }

// Second returns the second component.
func (t TimeOfDay) Second() int { return t.ref.Second() }

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// On combines the time-of-day with the date portion of ref, in ref's zone.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), t.Second(), 0, ref.Location())
}

// Tomorrow is On(ref) plus exactly one day's worth of milliseconds.
func (t TimeOfDay) Tomorrow(ref time.Time) time.Time {
	return Add(t.On(ref), Duration{Days: 1})
}

// Yesterday is On(ref) minus exactly one day's worth of milliseconds.
func (t TimeOfDay) Yesterday(ref time.Time) time.Time {
	return Subtract(t.On(ref), Duration{Days: 1})
}
