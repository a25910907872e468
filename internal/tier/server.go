// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package tier

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/starfall-mmo/starfall/internal/auth"
	"github.com/starfall-mmo/starfall/internal/auth/postgres"
	"github.com/starfall-mmo/starfall/internal/auth/srp"
	"github.com/starfall-mmo/starfall/internal/config"
	"github.com/starfall-mmo/starfall/internal/observability"
)

// HookFactory builds the tier-specific admission hook once the registry
// exists. WorldTier needs the registry for its session cap; the others
// ignore it.
type HookFactory func(*auth.Registry) auth.TierLogin

// Server owns everything one tier process runs: the shared database pool,
// the in-process registry, the authenticator the transport drives, the kick
// poller, the registry heartbeat, and the observability endpoints.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	pool          *pgxpool.Pool
	transactor    *postgres.Transactor
	accounts      *postgres.AccountRepository
	kicks         *postgres.KickRequestRepository
	servers       *postgres.ServerRegistryRepository
	registry      *auth.Registry
	events        *auth.Broadcaster
	authenticator *auth.Authenticator
	poller        *auth.KickPoller
	obs           *observability.Server

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	eventCh chan auth.Event
	ready   atomic.Bool
}

// NewServer connects to the database and wires a tier process.
func NewServer(ctx context.Context, cfg *config.Config, hook HookFactory, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, oops.Errorf("config is required")
	}
	if hook == nil {
		return nil, oops.Errorf("tier hook is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	accounts := postgres.NewAccountRepository(pool)
	kicks := postgres.NewKickRequestRepository(pool)
	servers := postgres.NewServerRegistryRepository(pool)
	registry := auth.NewRegistry(srp.DefaultParams())
	events := auth.NewBroadcaster()

	authenticator, err := auth.NewAuthenticatorWithLogger(
		registry, accounts, kicks, hook(registry), events, cfg.UsernamePolicy(), logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	poller, err := auth.NewKickPoller(
		kicks, accounts, registry, cfg.Kick.PollInterval, cfg.Kick.FetchBatch, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		pool:          pool,
		transactor:    postgres.NewTransactor(pool),
		accounts:      accounts,
		kicks:         kicks,
		servers:       servers,
		registry:      registry,
		events:        events,
		authenticator: authenticator,
		poller:        poller,
	}
	s.obs = observability.NewServer(cfg.Observability.Addr, s.ready.Load)
	return s, nil
}

// Authenticator returns the message handlers for the transport to drive.
func (s *Server) Authenticator() *auth.Authenticator { return s.authenticator }

// Registry returns the connection-account registry.
func (s *Server) Registry() *auth.Registry { return s.registry }

// Servers returns the shared server registry, used by the login tier to
// serve the world-server list after authentication.
func (s *Server) Servers() *postgres.ServerRegistryRepository { return s.servers }

// Start launches the poller, the heartbeat loop, and the observability
// server. It returns once everything is running.
func (s *Server) Start(ctx context.Context) error {
	obsErrs, err := s.obs.Start()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	metrics := s.obs.Metrics()
	s.poller.Hooks = auth.PollerHooks{
		OnProcessed:    metrics.KicksProcessedTotal.Inc,
		OnStaleSkipped: metrics.KicksStaleSkippedTotal.Inc,
		OnPollFailed:   metrics.KickPollFailuresTotal.Inc,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.poller.Run(runCtx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.heartbeatLoop(runCtx)
	}()

	s.eventCh = s.events.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for event := range s.eventCh {
			metrics.AuthResultsTotal.WithLabelValues(event.Result.String()).Inc()
			if event.Authenticated {
				metrics.ConnectionsTotal.WithLabelValues("authenticated").Inc()
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for err := range obsErrs {
			s.logger.Error("observability server failed", "error", err)
		}
	}()

	s.ready.Store(true)
	s.logger.Info("tier started",
		"tier", s.cfg.Tier.Name,
		"address", s.cfg.Tier.Address,
		"port", s.cfg.Tier.Port)

	// Announce immediately rather than waiting a full heartbeat interval.
	if err := s.heartbeat(ctx); err != nil {
		s.logger.Warn("initial heartbeat failed", "error", err)
	}
	return nil
}

// OnDisconnect is the transport's session-ended callback. The offline flag
// and the kick request cleanup commit atomically.
func (s *Server) OnDisconnect(ctx context.Context, id auth.SessionID) {
	metrics := s.obs.Metrics()
	metrics.ConnectionsTotal.WithLabelValues("disconnected").Inc()

	err := s.transactor.InTransaction(ctx, func(txCtx context.Context) error {
		s.authenticator.HandleDisconnect(txCtx, id)
		return nil
	})
	if err != nil {
		s.logger.Warn("disconnect cleanup failed",
			"session_id", id.String(),
			"error", err)
	}
}

// Stop shuts the tier down: background loops first, then the observability
// server, then the pool.
func (s *Server) Stop(ctx context.Context) error {
	s.ready.Store(false)
	if s.cancel != nil {
		s.cancel()
	}
	if s.eventCh != nil {
		s.events.Unsubscribe(s.eventCh)
	}

	if err := s.obs.Stop(ctx); err != nil {
		s.logger.Warn("observability shutdown failed", "error", err)
	}
	s.wg.Wait()
	s.pool.Close()

	s.logger.Info("tier stopped", "tier", s.cfg.Tier.Name)
	return nil
}

// heartbeatLoop pulses the server registry row on a fixed cadence.
func (s *Server) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Heartbeat.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.heartbeat(ctx); err != nil {
				s.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

func (s *Server) heartbeat(ctx context.Context) error {
	return s.servers.Heartbeat(ctx, s.cfg.Tier.Name, s.cfg.Tier.Address, s.cfg.Tier.Port)
}
