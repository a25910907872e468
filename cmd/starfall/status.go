// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/starfall-mmo/starfall/internal/auth/postgres"
	"github.com/starfall-mmo/starfall/internal/config"
)

// ServerStatus holds the registry entry for one tier process.
type ServerStatus struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Port      uint16    `json:"port"`
	LastPulse time.Time `json:"last_pulse"`
	Alive     bool      `json:"alive"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registered tier processes",
		Long:  `List the tier processes known to the shared server registry and whether each has pulsed recently.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, statusCfg *statusConfig) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	entries, err := postgres.NewServerRegistryRepository(pool).List(ctx)
	if err != nil {
		return err
	}

	// A server that has not pulsed for three intervals is presumed dead.
	cutoff := time.Now().UTC().Add(-3 * cfg.Heartbeat.Interval)
	statuses := make([]ServerStatus, 0, len(entries))
	for _, entry := range entries {
		statuses = append(statuses, ServerStatus{
			Name:      entry.Name,
			Address:   entry.Address,
			Port:      entry.Port,
			LastPulse: entry.LastPulse,
			Alive:     entry.LastPulse.After(cutoff),
		})
	}

	var output string
	if statusCfg.jsonOutput {
		output, err = formatStatusJSON(statuses)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(statuses)
	}

	cmd.Println(output)
	return nil
}

// formatStatusTable formats the registry entries as a human-readable table.
func formatStatusTable(statuses []ServerStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "SERVER\tADDRESS\tSTATE\tLAST PULSE")
	_, _ = fmt.Fprintln(w, "------\t-------\t-----\t----------")

	if len(statuses) == 0 {
		_, _ = fmt.Fprintln(w, "(none)\t-\t-\t-")
	}
	for _, status := range statuses {
		state := "alive"
		if !status.Alive {
			state = "stale"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s:%d\t%s\t%s\n",
			status.Name, status.Address, status.Port, state,
			status.LastPulse.UTC().Format(time.RFC3339))
	}

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the registry entries as JSON.
func formatStatusJSON(statuses []ServerStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
