// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Starfall Contributors

package auth

// Result is the terminal classification of a login attempt, sent to the
// client as the payload of ResultMessage.
type Result uint8

const (
	// ResultInvalidCredentials covers malformed names, unknown accounts,
	// and failed proofs. Deliberately indistinguishable to the client.
	ResultInvalidCredentials Result = iota
	// ResultBanned means the account exists and is banned.
	ResultBanned
	// ResultAccountCreated means the registration path created the account.
	ResultAccountCreated
	// ResultSrpVerify means credentials were found and the SRP challenge
	// follows; not a terminal outcome.
	ResultSrpVerify
	// ResultLoginSuccess is the login tier's terminal success.
	ResultLoginSuccess
	// ResultWorldLoginSuccess is the world tier's terminal success.
	ResultWorldLoginSuccess
	// ResultSceneLoginSuccess is the scene tier's terminal success.
	ResultSceneLoginSuccess
	// ResultAlreadyOnline means another live session holds this account,
	// possibly on a different process.
	ResultAlreadyOnline
	// ResultServerFull means the tier refused admission. Also used when
	// persistence is unavailable, matching the original protocol.
	ResultServerFull
)

func (r Result) String() string {
	switch r {
	case ResultInvalidCredentials:
		return "invalid_username_or_password"
	case ResultBanned:
		return "banned"
	case ResultAccountCreated:
		return "account_created"
	case ResultSrpVerify:
		return "srp_verify"
	case ResultLoginSuccess:
		return "login_success"
	case ResultWorldLoginSuccess:
		return "world_login_success"
	case ResultSceneLoginSuccess:
		return "scene_login_success"
	case ResultAlreadyOnline:
		return "already_online"
	case ResultServerFull:
		return "server_full"
	default:
		return "unknown"
	}
}

// Authenticated reports whether the result completes authentication.
func (r Result) Authenticated() bool {
	switch r {
	case ResultLoginSuccess, ResultWorldLoginSuccess, ResultSceneLoginSuccess:
		return true
	default:
		return false
	}
}
