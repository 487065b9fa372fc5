/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package quiethours

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/events"
)

// Service answers quiet-hours queries for the schedule engine and arms
// a wake timer so the planner is nudged when the window ends.
type Service struct {
	window Window
	bus    *events.Bus
	logger zerolog.Logger

	mu   sync.Mutex
	wake *time.Timer
}

// NewService builds a quiet-hours service. bus may be nil when no wake
// notification is wanted.
func NewService(window Window, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{window: window, bus: bus, logger: logger}
}

// Window returns the configured quiet window.
func (s *Service) Window() Window {
	return s.window
}

// IsInQuietHours reports whether t falls inside the quiet window.
func (s *Service) IsInQuietHours(t time.Time) bool {
	return s.window.Contains(t)
}

// NextQuietEnd returns when the quiet window covering from ends, and
// arms the wake timer for that moment.
func (s *Service) NextQuietEnd(from time.Time) time.Time {
	end := s.window.NextEnd(from)
	s.armWake(end)
	return end
}

func (s *Service) armWake(end time.Time) {
	if s.bus == nil {
		return
	}
	wait := time.Until(end)
	if wait <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake != nil {
		s.wake.Stop()
	}
	s.wake = time.AfterFunc(wait, func() {
		s.logger.Debug().Time("quiet_end", end).Msg("quiet hours ended")
		s.bus.Publish(events.EventQuietHoursEnded, events.Payload{
			"ended_at": end,
		})
	})
}

// CancelTimers stops any pending wake timer. Safe to call repeatedly.
func (s *Service) CancelTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wake != nil {
		s.wake.Stop()
		s.wake = nil
	}
}
