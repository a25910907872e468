// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/starfall-mmo/starfall/internal/observability"
)

// TierLogin supplies the tier-specific terminal outcome of an otherwise
// successful SRP exchange. The login tier returns ResultLoginSuccess
// unconditionally; world and scene tiers add their own admission checks.
type TierLogin interface {
	Login(ctx context.Context, accountName string) Result
}

// Authenticator turns one client-initiated login attempt into a terminal
// Result and a consistent registry state. It is driven by the transport,
// one handler per wire message.
type Authenticator struct {
	registry *Registry
	accounts AccountRepository
	kicks    KickRequestRepository
	tier     TierLogin
	events   *Broadcaster
	policy   UsernamePolicy
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator with a no-op logger.
// Returns an error if any required dependency is nil.
func NewAuthenticator(registry *Registry, accounts AccountRepository, kicks KickRequestRepository, tier TierLogin, events *Broadcaster, policy UsernamePolicy) (*Authenticator, error) {
	return NewAuthenticatorWithLogger(registry, accounts, kicks, tier, events, policy, slog.New(slog.DiscardHandler))
}

// NewAuthenticatorWithLogger creates an Authenticator with the provided
// logger. Returns an error if any required dependency is nil.
func NewAuthenticatorWithLogger(registry *Registry, accounts AccountRepository, kicks KickRequestRepository, tier TierLogin, events *Broadcaster, policy UsernamePolicy, logger *slog.Logger) (*Authenticator, error) {
	if registry == nil {
		return nil, oops.Errorf("registry is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if kicks == nil {
		return nil, oops.Errorf("kick request repository is required")
	}
	if tier == nil {
		return nil, oops.Errorf("tier login is required")
	}
	if events == nil {
		return nil, oops.Errorf("event broadcaster is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Authenticator{
		registry: registry,
		accounts: accounts,
		kicks:    kicks,
		tier:     tier,
		events:   events,
		policy:   policy,
		logger:   logger,
	}, nil
}

// HandleVerify processes the opening message of a login attempt. On the SRP
// path it binds the connection to the account and sends the challenge; every
// other classification is terminal and answered with a ResultMessage.
func (a *Authenticator) HandleVerify(ctx context.Context, conn Conn, msg VerifyRequest) {
	// An already-authenticated connection has no business re-authing.
	// Possible replay or attack: drop it without a response.
	if conn.Authenticated() {
		a.logger.Warn("verify on authenticated connection",
			"session_id", conn.SessionID().String())
		conn.Kick(KickReasonProtocolViolation)
		return
	}

	if err := a.policy.Validate(msg.AccountName); err != nil {
		a.sendResult(conn, ResultInvalidCredentials)
		return
	}

	if msg.Register {
		a.register(ctx, conn, msg)
		return
	}

	result, creds := a.classify(ctx, msg.AccountName)
	if result != ResultSrpVerify {
		a.sendResult(conn, result)
		return
	}

	if err := a.registry.AddConnectionAccount(conn, msg.AccountName, msg.PublicEphemeral, creds.Salt, creds.Verifier, creds.AccessLevel); err != nil {
		a.logger.Debug("rejecting malformed srp opening",
			"account", msg.AccountName,
			"error", err)
		a.sendResult(conn, ResultInvalidCredentials)
		conn.Kick(KickReasonAuthFailed)
		return
	}

	ok := a.registry.TryUpdateSrpState(conn.SessionID(), StateSrpVerify, StateSrpVerify, func(data *AccountData) bool {
		a.sendMessage(conn, ChallengeMessage{
			Salt:            data.SRP.Session.Salt(),
			PublicEphemeral: data.SRP.Session.PublicEphemeral(),
		})
		return true
	})
	if !ok {
		a.sendResult(conn, ResultInvalidCredentials)
	}
}

// HandleProof verifies the client evidence message and answers with the
// server proof. Any failure, cryptographic or protocol-order, is terminal.
func (a *Authenticator) HandleProof(_ context.Context, conn Conn, msg ProofRequest) {
	ok := !conn.Authenticated() && a.registry.TryUpdateSrpState(conn.SessionID(), StateSrpVerify, StateSrpProof, func(data *AccountData) bool {
		proof, err := data.SRP.Session.VerifyProof(msg.Proof)
		if err != nil {
			a.logger.Info("srp proof rejected",
				"account", data.SRP.Session.Username(),
				"error", err)
			return false
		}
		a.sendMessage(conn, ProofResponse{Proof: proof})
		return true
	})
	if !ok {
		// Result goes out before the socket closes.
		a.sendResult(conn, ResultInvalidCredentials)
		conn.Kick(KickReasonAuthFailed)
	}
}

// HandleComplete finishes authentication after the client has verified the
// server proof. The tier hook decides the terminal success code.
func (a *Authenticator) HandleComplete(ctx context.Context, conn Conn, _ CompleteRequest) {
	ok := !conn.Authenticated() && a.registry.TryUpdateSrpState(conn.SessionID(), StateSrpProof, StateSrpSuccess, func(data *AccountData) bool {
		accountName := data.SRP.Session.Username()
		result := a.tier.Login(ctx, accountName)
		authenticated := result.Authenticated()

		// The client always learns the outcome before any disconnect.
		a.sendResult(conn, result)

		if authenticated {
			conn.SetAuthenticated(true)
			if err := a.accounts.SetOnline(ctx, accountName, true); err != nil {
				a.logger.Warn("failed to mark account online",
					"account", accountName,
					"error", err)
			}
		}

		a.events.Publish(Event{
			SessionID:     conn.SessionID(),
			AccountName:   accountName,
			Result:        result,
			Authenticated: authenticated,
			At:            time.Now().UTC(),
		})

		if !authenticated {
			a.registry.RemoveConnectionAccount(conn.SessionID())
			conn.Kick(KickReasonAuthFailed)
		}
		return true
	})
	if !ok {
		conn.Kick(KickReasonProtocolViolation)
	}
}

// HandleDisconnect cleans up after a connection ends naturally: the mapping
// is removed, the account is marked offline, and any outstanding kick
// request for it is deleted so pollers do not reprocess a moot row.
func (a *Authenticator) HandleDisconnect(ctx context.Context, id SessionID) {
	accountName, ok := a.registry.AccountName(id)
	if !ok {
		return
	}
	a.registry.RemoveConnectionAccount(id)

	if err := a.accounts.SetOnline(ctx, accountName, false); err != nil {
		a.logger.Warn("failed to mark account offline on disconnect",
			"account", accountName,
			"error", err)
	}
	if err := a.kicks.DeleteForAccount(ctx, accountName); err != nil {
		a.logger.Warn("failed to delete kick requests on disconnect",
			"account", accountName,
			"error", err)
	}
}

// classify runs the persistence-backed checks for a login attempt and
// returns the credentials when the attempt may proceed to the SRP exchange.
func (a *Authenticator) classify(ctx context.Context, accountName string) (Result, *Credentials) {
	online, err := a.accounts.IsOnline(ctx, accountName)
	switch {
	case err == nil && online:
		return ResultAlreadyOnline, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		a.logger.Error("online check failed", "account", accountName, "error", err)
		return ResultServerFull, nil
	}

	creds, err := a.accounts.GetCredentials(ctx, accountName)
	switch {
	case errors.Is(err, ErrNotFound):
		return ResultInvalidCredentials, nil
	case err != nil:
		a.logger.Error("credential fetch failed", "account", accountName, "error", err)
		return ResultServerFull, nil
	case creds.Banned || creds.AccessLevel == AccessBanned:
		return ResultBanned, nil
	}
	return ResultSrpVerify, creds
}

// register handles the account creation path. The client derived the salt
// and verifier locally; a taken name reads as bad credentials so the
// response does not leak which names exist.
func (a *Authenticator) register(ctx context.Context, conn Conn, msg VerifyRequest) {
	if msg.Salt == "" || msg.Verifier == "" {
		a.sendResult(conn, ResultInvalidCredentials)
		return
	}

	err := a.accounts.Create(ctx, msg.AccountName, msg.Salt, msg.Verifier)
	switch {
	case err == nil:
		a.logger.Info("account created", "account", msg.AccountName)
		a.sendResult(conn, ResultAccountCreated)
	case errors.Is(err, ErrAlreadyExists):
		a.sendResult(conn, ResultInvalidCredentials)
	default:
		a.logger.Error("account creation failed", "account", msg.AccountName, "error", err)
		a.sendResult(conn, ResultServerFull)
	}
}

func (a *Authenticator) sendResult(conn Conn, code Result) {
	a.sendMessage(conn, ResultMessage{Code: code})
}

func (a *Authenticator) sendMessage(conn Conn, msg any) {
	if err := conn.Send(msg); err != nil {
		observability.RecordSendFailure(fmt.Sprintf("%T", msg))
		a.logger.Warn("send failed",
			"session_id", conn.SessionID().String(),
			"error", err)
	}
}
