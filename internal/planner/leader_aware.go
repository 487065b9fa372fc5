/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package planner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/leadership"
)

// LeaderAwarePlanner wraps a planner and only runs it while this
// instance holds the leadership lease.
type LeaderAwarePlanner struct {
	planner  *Service
	election *leadership.Election
	logger   zerolog.Logger

	ctx            context.Context
	cancelFunc     context.CancelFunc
	plannerRunning bool
}

// NewLeaderAware creates a leader-aware planner wrapper.
func NewLeaderAware(planner *Service, election *leadership.Election, logger zerolog.Logger) *LeaderAwarePlanner {
	return &LeaderAwarePlanner{
		planner:  planner,
		election: election,
		logger:   logger.With().Str("component", "leader_aware_planner").Logger(),
	}
}

// Start begins monitoring leadership status and manages the planner lifecycle.
func (lap *LeaderAwarePlanner) Start(ctx context.Context) error {
	lap.ctx = ctx

	lap.logger.Info().Msg("starting leader-aware planner")

	if err := lap.election.Start(ctx); err != nil {
		return err
	}

	go lap.monitorLeadership()

	return nil
}

// Stop stops the planner and releases leadership.
func (lap *LeaderAwarePlanner) Stop() error {
	lap.logger.Info().Msg("stopping leader-aware planner")

	if lap.plannerRunning && lap.cancelFunc != nil {
		lap.cancelFunc()
		lap.plannerRunning = false
	}

	return lap.election.Stop()
}

func (lap *LeaderAwarePlanner) monitorLeadership() {
	leaderCh := lap.election.LeaderCh()

	if lap.election.IsLeader() {
		lap.startPlanner()
	}

	for {
		select {
		case <-lap.ctx.Done():
			return
		case isLeader := <-leaderCh:
			if isLeader {
				lap.logger.Info().Msg("became leader, starting planner")
				lap.startPlanner()
			} else {
				lap.logger.Warn().Msg("lost leadership, stopping planner")
				lap.stopPlanner()
			}
		}
	}
}

func (lap *LeaderAwarePlanner) startPlanner() {
	if lap.plannerRunning {
		lap.logger.Warn().Msg("planner already running")
		return
	}

	ctx, cancel := context.WithCancel(lap.ctx)
	lap.cancelFunc = cancel
	lap.plannerRunning = true

	go func() {
		lap.logger.Info().Msg("planner started")
		if err := lap.planner.Run(ctx); err != nil && err != context.Canceled {
			lap.logger.Error().Err(err).Msg("planner error")
		}
		lap.plannerRunning = false
		lap.logger.Info().Msg("planner stopped")
	}()
}

func (lap *LeaderAwarePlanner) stopPlanner() {
	if !lap.plannerRunning {
		return
	}

	if lap.cancelFunc != nil {
		lap.cancelFunc()
		lap.cancelFunc = nil
	}

	// Give the loop a moment to observe cancellation.
	time.Sleep(100 * time.Millisecond)
	lap.plannerRunning = false
}

// IsLeader returns whether this instance is the leader.
func (lap *LeaderAwarePlanner) IsLeader() bool {
	return lap.election.IsLeader()
}
