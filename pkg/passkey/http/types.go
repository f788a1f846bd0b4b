// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package http

import "encoding/json"

// OptionsRequest is the request body for /register/options and /login/options.
type OptionsRequest struct {
	// Username is the account's human-readable handle (required).
	Username string `json:"username"`
}

// VerifyRequest is the request body for /register/verify and /login/verify.
type VerifyRequest struct {
	// Username is the account's human-readable handle (required).
	Username string `json:"username"`

	// Response is the raw authenticator response produced by the client
	// ceremony API.
	Response json.RawMessage `json:"response"`
}

// VerifyResponse is the success body for the verify endpoints.
type VerifyResponse struct {
	Verified bool `json:"verified"`
}

// LogoutResponse is the body for /logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// MeResponse is the body for /me.
type MeResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	Username string `json:"username,omitempty"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeUserNotFound        = "user_not_found"
	ErrorCodeChallengeMissing    = "challenge_expired_or_missing"
	ErrorCodeDeviceNotFound      = "authenticator_not_found"
	ErrorCodeNoDevices           = "no_registered_devices"
	ErrorCodeDuplicateCredential = "duplicate_credential"
	ErrorCodeVerificationFailed  = "verification_failed"
	ErrorCodeInternalError       = "internal_error"
)
