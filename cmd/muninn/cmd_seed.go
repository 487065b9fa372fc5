/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/muninn/internal/pack"
)

var seedCmd = &cobra.Command{
	Use:   "seed <pack.yaml>",
	Short: "Seed the reminder pool from a YAML pack",
	Long: `Load a reminder pack and insert its reminders into the pool.
Texts that already exist are skipped, so seeding is safe to repeat.

Examples:
  muninn seed packs/starter.yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	file, err := pack.Load(args[0])
	if err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	created, err := pack.Seed(context.Background(), database, file)
	if err != nil {
		return fmt.Errorf("seed reminders: %w", err)
	}

	logger.Info().
		Str("pack", file.Name).
		Int("created", created).
		Int("total", len(file.Reminders)).
		Msg("reminder pack seeded")
	return nil
}
