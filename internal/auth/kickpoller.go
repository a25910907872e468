// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Kick poller defaults.
const (
	DefaultKickPollInterval = 5 * time.Second
	DefaultKickFetchBatch   = 100
)

// KickPoller watches the kick request table and terminates local sessions
// named by it. Tiers never call each other directly; a kick decided on one
// process reaches the session's host process through this poller.
//
// Delivery is at most once: the watermark advances when rows are fetched,
// not when they finish processing, so a crash mid-batch can drop a kick.
// That trade-off is inherited from the original design and left as is.
type KickPoller struct {
	kicks    KickRequestRepository
	accounts AccountRepository
	registry *Registry
	interval time.Duration
	batch    int
	logger   *slog.Logger

	// Watermark over (time_created, id). Rows are fetched in that order, so
	// advancing to the last row of each batch visits every row exactly once
	// even with coincident timestamps.
	lastFetchTime time.Time
	lastPosition  int64

	// Hooks receive poller outcomes for metrics. Set before Run.
	Hooks PollerHooks
}

// PollerHooks are optional callbacks fired as the poller works through the
// kick table. Nil funcs are skipped.
type PollerHooks struct {
	OnProcessed    func()
	OnStaleSkipped func()
	OnPollFailed   func()
}

// NewKickPoller creates a poller. interval and batch fall back to defaults
// when zero or negative. Returns an error if any dependency is nil.
func NewKickPoller(kicks KickRequestRepository, accounts AccountRepository, registry *Registry, interval time.Duration, batch int, logger *slog.Logger) (*KickPoller, error) {
	if kicks == nil {
		return nil, oops.Errorf("kick request repository is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if registry == nil {
		return nil, oops.Errorf("registry is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if interval <= 0 {
		interval = DefaultKickPollInterval
	}
	if batch <= 0 {
		batch = DefaultKickFetchBatch
	}
	return &KickPoller{
		kicks:         kicks,
		accounts:      accounts,
		registry:      registry,
		interval:      interval,
		batch:         batch,
		logger:        logger,
		lastFetchTime: time.Now().UTC(),
	}, nil
}

// Run polls on a fixed cadence until the context is cancelled. A failed
// poll is logged and retried on the next tick; it never stops the loop.
func (p *KickPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("kick poller started",
		"interval", p.interval.String(),
		"batch", p.batch)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("kick poller stopped")
			return
		case <-ticker.C:
			if err := p.PollOnce(ctx); err != nil {
				if p.Hooks.OnPollFailed != nil {
					p.Hooks.OnPollFailed()
				}
				p.logger.Warn("kick poll failed", "error", err)
			}
		}
	}
}

// PollOnce runs one fetch-and-process cycle. Exposed so tests and manual
// triggers can drive the poller without the ticker.
func (p *KickPoller) PollOnce(ctx context.Context) error {
	requests, err := p.kicks.Fetch(ctx, p.lastFetchTime, p.lastPosition, p.batch)
	if err != nil {
		return oops.Code("KICK_FETCH_FAILED").
			With("since", p.lastFetchTime).
			With("after_id", p.lastPosition).
			Wrap(err)
	}
	if len(requests) == 0 {
		return nil
	}

	latest := requests[len(requests)-1]
	p.lastFetchTime = latest.TimeCreated
	p.lastPosition = latest.ID

	for _, request := range requests {
		p.process(ctx, request)
		if p.Hooks.OnProcessed != nil {
			p.Hooks.OnProcessed()
		}
	}
	return nil
}

// process handles one kick request. The account goes logically offline
// first so new-login checks on every tier see it immediately; the physical
// disconnect follows only if the session lives on this process.
func (p *KickPoller) process(ctx context.Context, request KickRequest) {
	if err := p.accounts.SetOnline(ctx, request.AccountName, false); err != nil && !errors.Is(err, ErrNotFound) {
		p.logger.Warn("failed to mark kicked account offline",
			"account", request.AccountName,
			"error", err)
	}

	// A login newer than the request supersedes it: kicking now would
	// punish a legitimate reconnect.
	lastLogin, err := p.accounts.LastLogin(ctx, request.AccountName)
	if err == nil && !lastLogin.Before(request.TimeCreated) {
		if p.Hooks.OnStaleSkipped != nil {
			p.Hooks.OnStaleSkipped()
		}
		p.logger.Info("skipping stale kick request",
			"account", request.AccountName,
			"request_id", request.ID,
			"last_login", lastLogin,
			"requested_at", request.TimeCreated)
		return
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		p.logger.Warn("failed to read last login for kick request",
			"account", request.AccountName,
			"error", err)
	}

	conn, ok := p.registry.Connection(request.AccountName)
	if !ok {
		// Not hosted here; another tier's poller owns it, or the session
		// is already gone.
		return
	}

	p.logger.Info("kicking account",
		"account", request.AccountName,
		"request_id", request.ID)
	conn.Kick(KickReasonForced)
}
