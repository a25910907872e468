// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Starfall CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "starfall",
		Short: "Starfall - tiered MMO server",
		Long: `Starfall runs the tiered MMO server topology: login, world, and
scene processes coordinating through a shared PostgreSQL database.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newWorldCmd())
	cmd.AddCommand(newSceneCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
