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
	"bytes"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// Purpose identifies which ceremony a challenge was issued for. A challenge
// issued for one purpose can never complete the other ceremony.
type Purpose string

const (
	// PurposeRegistration marks a challenge issued by BeginRegistration.
	PurposeRegistration Purpose = "registration"

	// PurposeAuthentication marks a challenge issued by BeginLogin.
	PurposeAuthentication Purpose = "authentication"
)

// User is a Relying Party account. The ID is the WebAuthn user handle: opaque,
// generated once at creation, and never derived from the username.
type User struct {
	// ID is the stable user handle presented to authenticators.
	ID []byte `json:"id"`

	// Username is the unique human-readable handle.
	Username string `json:"username"`

	// Devices are the user's registered authenticators, in registration order.
	Devices []*Device `json:"devices"`

	// CreatedAt is when the account was first seen.
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a User with a freshly generated handle.
func NewUser(username string) *User {
	id := uuid.New()
	return &User{
		ID:        id[:],
		Username:  username,
		Devices:   make([]*Device, 0),
		CreatedAt: time.Now().UTC(),
	}
}

// WebAuthnID returns the user handle.
func (u *User) WebAuthnID() []byte {
	return u.ID
}

// WebAuthnName returns the username.
func (u *User) WebAuthnName() string {
	return u.Username
}

// WebAuthnDisplayName returns the name shown in authenticator prompts.
func (u *User) WebAuthnDisplayName() string {
	return u.Username
}

// WebAuthnCredentials returns the user's devices in the verifier's credential
// format.
func (u *User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.Devices))
	for i, d := range u.Devices {
		creds[i] = d.ToWebAuthn()
	}
	return creds
}

// Device returns the registered device with the given credential ID, or nil.
func (u *User) Device(credentialID []byte) *Device {
	for _, d := range u.Devices {
		if bytes.Equal(d.ID, credentialID) {
			return d
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so callers never share
// mutable state with concurrent requests.
func (u *User) Clone() *User {
	devices := make([]*Device, len(u.Devices))
	for i, d := range u.Devices {
		dc := *d
		devices[i] = &dc
	}
	return &User{
		ID:        append([]byte(nil), u.ID...),
		Username:  u.Username,
		Devices:   devices,
		CreatedAt: u.CreatedAt,
	}
}

// Device is a registered authenticator: one passkey-capable credential bound
// to a user.
type Device struct {
	// ID is the credential identifier assigned by the authenticator. It is
	// unique across all users.
	ID []byte `json:"id"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// AttestationType indicates the attestation format used at registration.
	AttestationType string `json:"attestation_type"`

	// Transports lists the transports reported by the authenticator.
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`

	// Flags contains authenticator capability flags.
	Flags DeviceFlags `json:"flags"`

	// AAGUID is the authenticator model identifier.
	AAGUID []byte `json:"aaguid"`

	// SignCount is the signature counter used for clone detection. It is
	// strictly non-decreasing across successful authentications, except for
	// authenticators that do not implement counters and report zero forever.
	SignCount uint32 `json:"sign_count"`

	// CloneWarning records that a stale counter was observed for this device.
	CloneWarning bool `json:"clone_warning"`

	// CreatedAt is when the device was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the device last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// DeviceFlags contains authenticator capability flags observed at
// registration.
type DeviceFlags struct {
	// UserPresent indicates the user was present during the operation.
	UserPresent bool `json:"user_present"`

	// UserVerified indicates the user was verified (biometric, PIN).
	UserVerified bool `json:"user_verified"`

	// BackupEligible indicates the credential can be backed up.
	BackupEligible bool `json:"backup_eligible"`

	// BackupState indicates the credential is currently backed up.
	BackupState bool `json:"backup_state"`
}

// ToWebAuthn converts a Device to the go-webauthn credential type.
func (d *Device) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              d.ID,
		PublicKey:       d.PublicKey,
		AttestationType: d.AttestationType,
		Transport:       d.Transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    d.Flags.UserPresent,
			UserVerified:   d.Flags.UserVerified,
			BackupEligible: d.Flags.BackupEligible,
			BackupState:    d.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:       d.AAGUID,
			SignCount:    d.SignCount,
			CloneWarning: d.CloneWarning,
		},
	}
}

// DeviceFromCredential creates a Device from a verifier-produced credential.
func DeviceFromCredential(wc *webauthn.Credential) *Device {
	return &Device{
		ID:              wc.ID,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transports:      wc.Transport,
		Flags: DeviceFlags{
			UserPresent:    wc.Flags.UserPresent,
			UserVerified:   wc.Flags.UserVerified,
			BackupEligible: wc.Flags.BackupEligible,
			BackupState:    wc.Flags.BackupState,
		},
		AAGUID:    wc.Authenticator.AAGUID,
		SignCount: wc.Authenticator.SignCount,
		CreatedAt: time.Now().UTC(),
	}
}
