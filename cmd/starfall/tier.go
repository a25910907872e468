// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/starfall-mmo/starfall/internal/auth"
	"github.com/starfall-mmo/starfall/internal/config"
	"github.com/starfall-mmo/starfall/internal/logging"
	"github.com/starfall-mmo/starfall/internal/tier"
	"github.com/starfall-mmo/starfall/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// tierHook builds the admission hook for one tier once configuration and
// the registry exist.
type tierHook func(cfg *config.Config, registry *auth.Registry) auth.TierLogin

func newLoginCmd() *cobra.Command {
	return newTierCmd("login", "Start the login tier (authentication entry point)",
		func(*config.Config, *auth.Registry) auth.TierLogin { return tier.LoginTier{} })
}

func newWorldCmd() *cobra.Command {
	return newTierCmd("world", "Start a world tier process",
		func(cfg *config.Config, registry *auth.Registry) auth.TierLogin {
			return tier.NewWorldTier(registry, cfg.Tier.MaxSessions)
		})
}

func newSceneCmd() *cobra.Command {
	return newTierCmd("scene", "Start a scene tier process",
		func(*config.Config, *auth.Registry) auth.TierLogin { return tier.SceneTier{} })
}

// newTierCmd builds one tier subcommand. The tiers share all wiring; only
// the admission hook and the registry name differ.
func newTierCmd(name, short string, hook tierHook) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Tier.Name == "" {
				cfg.Tier.Name = name + "-1"
			}
			return runTier(cmd.Context(), cfg, func(registry *auth.Registry) auth.TierLogin {
				return hook(cfg, registry)
			})
		},
	}

	// Flag defaults mirror config.Default so an untouched flag never
	// overrides a value from the config file.
	def := config.Default()
	cmd.Flags().String("database.url", def.Database.URL, "PostgreSQL connection URL")
	cmd.Flags().String("tier.name", def.Tier.Name, "name of this process in the server registry")
	cmd.Flags().String("tier.address", def.Tier.Address, "address announced to the server registry")
	cmd.Flags().Uint16("tier.port", def.Tier.Port, "port announced to the server registry")
	cmd.Flags().Int("tier.max_sessions", def.Tier.MaxSessions, "session cap (0 = unlimited)")
	cmd.Flags().Duration("kick.poll_interval", def.Kick.PollInterval, "kick table poll interval")
	cmd.Flags().String("observability.addr", def.Observability.Addr, "metrics and health listen address")
	cmd.Flags().String("log.format", def.Log.Format, "log format: json or text")
	cmd.Flags().String("log.level", def.Log.Level, "log level: debug, info, warn, error")

	return cmd
}

func runTier(ctx context.Context, cfg *config.Config, hook tier.HookFactory) error {
	logger := logging.Setup(cfg.Tier.Name, version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level), nil)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := tier.NewServer(ctx, cfg, hook, logger)
	if err != nil {
		errutil.LogError(logger, "tier startup failed", err)
		return err
	}

	if err := server.Start(ctx); err != nil {
		errutil.LogError(logger, "tier startup failed", err)
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(stopCtx)
}
