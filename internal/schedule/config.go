/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import "fmt"

// Kind selects the cadence algorithm.
type Kind string

const (
	KindPeriodic Kind = "periodic"
	KindRandom   Kind = "random"
)

// Config describes a reminder cadence. Exactly one variant applies,
// selected by Kind; the other variant's fields are ignored.
type Config struct {
	Kind Kind

	// Periodic: fire on midnight-aligned interval boundaries.
	Hours   int
	Minutes int

	// Random: fire a uniformly drawn number of minutes after the reference.
	// MinMinutes > MaxMinutes and MinMinutes == MaxMinutes are recognized
	// degenerate shapes, not errors (see Engine.nextRandom).
	MinMinutes int
	MaxMinutes int
}

// Validate rejects unknown kinds. Degenerate ranges pass: they carry
// defined behavior.
func (c Config) Validate() error {
	switch c.Kind {
	case KindPeriodic, KindRandom:
		return nil
	default:
		return fmt.Errorf("unknown schedule kind %q", c.Kind)
	}
}

// IntervalMillis returns the periodic interval length in milliseconds.
func (c Config) IntervalMillis() int64 {
	return int64(c.Hours*60+c.Minutes) * 60_000
}
