/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/durationmath"
)

// schedulePad is added to the reference moment before a first-pass
// periodic calculation so a boundary only milliseconds away is skipped.
const schedulePad = 2 * time.Minute

// minOffsetMinutes is the floor on random offsets. A draw of 0 or 1
// minutes would fire before the schedule is even persisted.
const minOffsetMinutes = 2

// QuietOracle answers whether a moment falls inside the user's quiet
// hours and when the current quiet window ends.
type QuietOracle interface {
	IsInQuietHours(t time.Time) bool
	NextQuietEnd(from time.Time) time.Time
	CancelTimers()
}

// Source is the subset of math/rand used by the engine. *rand.Rand
// satisfies it; tests substitute seeded instances.
type Source interface {
	Intn(n int) int
	Float64() float64
}

// NextFireResult is a computed fire time. PostQuietAdjustment is set
// when the first candidate landed inside quiet hours and the time was
// recomputed from the end of the window.
type NextFireResult struct {
	At                  time.Time
	PostQuietAdjustment bool
}

// Engine computes next fire times for a single cadence config.
type Engine struct {
	cfg    Config
	quiet  QuietOracle
	rng    Source
	logger zerolog.Logger
}

// New builds an engine. quiet may be nil, in which case no quiet-hours
// adjustment is applied.
func New(cfg Config, quiet QuietOracle, rng Source, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, quiet: quiet, rng: rng, logger: logger}
}

// Config returns the cadence the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// NextFireTime computes the next fire time strictly after from. A zero
// from means "now". When the candidate lands in quiet hours the engine
// recomputes once from the end of the window; the post-quiet pass uses
// relaxed rules (no pad, floor dropped for random draws) so the
// reminder lands shortly after waking.
func (e *Engine) NextFireTime(from time.Time) NextFireResult {
	if from.IsZero() {
		from = time.Now()
	}

	candidate := e.rawNext(from, false)
	if e.quiet != nil && e.quiet.IsInQuietHours(candidate) {
		quietEnd := e.quiet.NextQuietEnd(candidate)
		adjusted := e.rawNext(quietEnd, true)
		e.logger.Debug().
			Time("candidate", candidate).
			Time("quiet_end", quietEnd).
			Time("adjusted", adjusted).
			Msg("fire time moved past quiet hours")
		return NextFireResult{At: adjusted, PostQuietAdjustment: true}
	}
	return NextFireResult{At: candidate}
}

// Cancel tears down any pending quiet-hours wake timers.
func (e *Engine) Cancel() {
	if e.quiet != nil {
		e.quiet.CancelTimers()
	}
}

func (e *Engine) rawNext(from time.Time, postQuiet bool) time.Time {
	if e.cfg.Kind == KindRandom {
		return e.nextRandom(from, postQuiet)
	}
	return e.nextPeriodic(from, postQuiet)
}

// nextPeriodic aligns to interval boundaries counted from the local
// midnight of the reference day.
func (e *Engine) nextPeriodic(from time.Time, postQuiet bool) time.Time {
	interval := e.cfg.IntervalMillis()
	if interval <= 0 {
		interval = durationmath.MillisPerMinute
	}

	ref := from
	if !postQuiet {
		ref = ref.Add(schedulePad)
	}

	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	offset := ref.Sub(midnight).Milliseconds() % interval
	if offset == 0 {
		if postQuiet {
			// Exactly on a boundary at quiet end still waits a full
			// interval so the wake itself is not the reminder.
			return durationmath.Add(ref, durationmath.Duration{Millis: int(interval)})
		}
		return ref
	}
	return durationmath.Add(ref, durationmath.Duration{Millis: int(interval - offset)})
}

func (e *Engine) nextRandom(from time.Time, postQuiet bool) time.Time {
	minM, maxM := e.cfg.MinMinutes, e.cfg.MaxMinutes

	var offset int
	switch {
	case maxM <= minM:
		if postQuiet && maxM > 0 {
			offset = e.rng.Intn(maxM)
		} else {
			offset = maxM
		}
	case postQuiet:
		// Floor dropped past quiet hours: anywhere in the span is fine.
		offset = e.rng.Intn(maxM - minM + 1)
	default:
		offset = minM + e.rng.Intn(maxM-minM+1)
	}

	if offset <= 1 {
		offset = minOffsetMinutes
	}
	return durationmath.Add(from, durationmath.Duration{Minutes: offset})
}
