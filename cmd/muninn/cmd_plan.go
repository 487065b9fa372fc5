/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/planner"
	"github.com/friendsincode/muninn/internal/quiethours"
	"github.com/friendsincode/muninn/internal/schedule"
)

var planCount int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the upcoming reminder plan",
	Long: `Simulate the planner against the current configuration and reminder
pool, printing the next fire times without persisting anything.

Examples:
  # Preview the next 10 reminders
  muninn plan

  # Preview the next 30
  muninn plan --count=30
`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().IntVar(&planCount, "count", 10, "Number of reminders to preview")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if planCount <= 0 {
		return fmt.Errorf("count must be positive")
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	var oracle schedule.QuietOracle
	if cfg.QuietHoursEnabled {
		window, err := cfg.QuietWindow()
		if err != nil {
			return fmt.Errorf("quiet hours window: %w", err)
		}
		svc := quiethours.NewService(window, nil, logger)
		defer svc.CancelTimers()
		oracle = svc
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := schedule.New(cfg.ScheduleConfig(), oracle, rng, logger)
	plannerSvc := planner.New(database, engine, events.NewBus(), rng, planner.Options{
		BufferSize: cfg.PlannerBufferSize,
		BatchBias:  cfg.BatchFavouriteBias,
	}, logger)

	items, err := plannerSvc.Preview(context.Background(), time.Now(), planCount)
	if err != nil {
		return fmt.Errorf("preview plan: %w", err)
	}

	adjusted := false
	for _, item := range items {
		marker := " "
		if item.PostQuiet {
			marker = "*"
			adjusted = true
		}
		fmt.Printf("%s %s  [%s] %s\n", marker, item.FireAt.Format("Mon 15:04"), item.Tag, item.Text)
	}
	if adjusted {
		fmt.Println("\n* adjusted past quiet hours")
	}
	return nil
}
