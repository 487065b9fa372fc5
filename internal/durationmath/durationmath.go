/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package durationmath

import "time"

// Fixed conversion factors. Arithmetic is calendar-naive: days are always
// 24 hours, which is fine at the day/hour/minute granularity used here.
const (
	MillisPerSecond int64 = 1000
	MillisPerMinute int64 = 60_000
	MillisPerHour   int64 = 3_600_000
	MillisPerDay    int64 = 86_400_000
)

// Duration is a signed component offset. Zero components contribute nothing.
type Duration struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Millis  int
}

// Milliseconds sums all components into epoch-millisecond terms.
func (d Duration) Milliseconds() int64 {
	return int64(d.Days)*MillisPerDay +
		int64(d.Hours)*MillisPerHour +
		int64(d.Minutes)*MillisPerMinute +
		int64(d.Seconds)*MillisPerSecond +
		int64(d.Millis)
}

// Add shifts the instant forward by the duration's total milliseconds.
func Add(t time.Time, d Duration) time.Time {
	return t.Add(time.Duration(d.Milliseconds()) * time.Millisecond)
}

// Subtract shifts the instant backward by the duration's total milliseconds.
func Subtract(t time.Time, d Duration) time.Time {
	return t.Add(-time.Duration(d.Milliseconds()) * time.Millisecond)
}
