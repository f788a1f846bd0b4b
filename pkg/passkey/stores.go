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
	"context"

	"github.com/go-webauthn/webauthn/webauthn"
)

// UserStore is the credential store: users and their registered devices.
// Implementations must make each method atomic with respect to concurrent
// calls on the same username or credential ID, and must return users as
// snapshots rather than shared mutable state.
type UserStore interface {
	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetOrCreate retrieves a user by username, creating the account with a
	// fresh user handle if it has never been seen. The lookup-then-create is
	// atomic: two concurrent calls for the same username observe the same
	// user ID.
	GetOrCreate(ctx context.Context, username string) (*User, error)

	// AddDevice appends a newly registered device to the user. Returns
	// ErrDuplicateCredential if the credential ID is already registered for
	// this or any other user, ErrUserNotFound if the user does not exist.
	AddDevice(ctx context.Context, username string, device *Device) error

	// UpdateDeviceCounter persists the signature counter reported by a
	// successful authentication, so the store always reflects the highest
	// counter seen. Returns ErrUserNotFound or ErrDeviceNotFound.
	UpdateDeviceCounter(ctx context.Context, username string, credentialID []byte, signCount uint32) error
}

// ChallengeStore holds the short-lived, single-use ceremony challenges, keyed
// by user handle. At most one challenge is live per user: issuing a new one
// overwrites any unconsumed predecessor. Entries expire after a fixed TTL
// independent of explicit consumption.
type ChallengeStore interface {
	// Put stores the ceremony session data for the owner, overwriting any
	// existing entry.
	Put(ctx context.Context, userID []byte, data *webauthn.SessionData, purpose Purpose) error

	// TakeAndInvalidate atomically retrieves and deletes the owner's
	// challenge. It never returns the same challenge twice. Returns
	// ErrChallengeNotFound if no entry exists, the entry expired, or the
	// stored purpose does not match.
	TakeAndInvalidate(ctx context.Context, userID []byte, purpose Purpose) (*webauthn.SessionData, error)
}
