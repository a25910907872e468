// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

// Package auth implements account authentication for the tiered server
// topology: the SRP handshake orchestration, the per-process mapping between
// live connections and account names, and cross-process kick propagation.
//
// # Components
//
//   - Registry - per-process source of truth for connection/account mappings
//     and the SRP handshake state of each connection
//   - Authenticator - drives one login attempt from the first client message
//     to a terminal Result
//   - KickPoller - background loop that turns persisted kick requests into
//     local disconnects
//   - Broadcaster - local fan-out of authentication events to subsystems
//     that track online state
//
// Persistence is consumed through the repository interfaces declared here;
// the postgres subpackage provides the production implementations.
package auth
