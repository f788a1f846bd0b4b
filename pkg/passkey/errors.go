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

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for Relying Party operations.
var (
	// ErrInvalidInput is returned when a request field is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrDeviceNotFound is returned when no registered device matches the
	// credential presented in an assertion.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrChallengeNotFound is returned when no live challenge exists for a
	// user, either because none was issued, it expired, or it was already
	// consumed by a prior verification attempt.
	ErrChallengeNotFound = errors.New("challenge expired or missing")

	// ErrDuplicateCredential is returned when a credential ID is already
	// registered, for this or any other user.
	ErrDuplicateCredential = errors.New("credential already registered")

	// ErrNoDevices is returned when a user has no registered devices.
	ErrNoDevices = errors.New("user has no registered devices")

	// ErrVerificationFailed is returned when the ceremony verifier rejects an
	// attestation or assertion response.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrClonedAuthenticator is returned when an assertion carries a signature
	// counter at or below the stored value, indicating a replayed response or
	// a cloned authenticator.
	ErrClonedAuthenticator = errors.New("cloned authenticator detected")

	// ErrStoreUnavailable is returned when a backing store cannot be reached.
	// The in-memory stores never return it, but implementations backed by
	// external storage may.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotConfigured is returned when the service is used before it has
	// been constructed through NewService.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with the given operation and error.
func NewError(op string, err error) error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsDeviceNotFound returns true if the error indicates a device was not found.
func IsDeviceNotFound(err error) bool {
	return errors.Is(err, ErrDeviceNotFound)
}

// IsChallengeNotFound returns true if the error indicates a missing, expired,
// or already-consumed challenge.
func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

// IsDuplicateCredential returns true if the error indicates a credential ID
// collision.
func IsDuplicateCredential(err error) bool {
	return errors.Is(err, ErrDuplicateCredential)
}

// IsVerificationFailed returns true if the error indicates the ceremony
// verifier rejected the response.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}
