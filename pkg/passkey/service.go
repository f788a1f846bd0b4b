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
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Service orchestrates the registration and authentication ceremonies.
type Service struct {
	webauthn   *webauthn.WebAuthn
	config     *Config
	users      UserStore
	challenges ChallengeStore
	logger     *slog.Logger
	configured bool
}

// ServiceParams contains dependencies for creating a Service.
type ServiceParams struct {
	// Config is the Relying Party configuration (required).
	Config *Config

	// UserStore is the credential persistence layer (required).
	UserStore UserStore

	// ChallengeStore is the challenge persistence layer (required).
	ChallengeStore ChallengeStore

	// Logger is an optional structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a Service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.ChallengeStore == nil {
		return nil, fmt.Errorf("challenge store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	wa, err := webauthn.New(params.Config.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		webauthn:   wa,
		config:     params.Config,
		users:      params.UserStore,
		challenges: params.ChallengeStore,
		logger:     logger,
		configured: true,
	}, nil
}

// BeginRegistration starts the registration ceremony for a username, creating
// the account on first sight. The returned options must be forwarded to the
// client ceremony API unmodified; the embedded challenge is the one
// FinishRegistration will require.
func (s *Service) BeginRegistration(ctx context.Context, username string) (*protocol.CredentialCreation, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if username == "" {
		return nil, NewError("begin registration", fmt.Errorf("%w: username is required", ErrInvalidInput))
	}

	user, err := s.users.GetOrCreate(ctx, username)
	if err != nil {
		return nil, WrapError("get or create user", err)
	}

	excludeList := make([]protocol.CredentialDescriptor, len(user.Devices))
	for i, d := range user.Devices {
		excludeList[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: d.ID,
			Transport:    d.Transports,
		}
	}

	options, session, err := s.webauthn.BeginRegistration(user,
		webauthn.WithExclusions(excludeList),
	)
	if err != nil {
		return nil, WrapError("begin registration", err)
	}

	if err := s.challenges.Put(ctx, user.ID, session, PurposeRegistration); err != nil {
		return nil, WrapError("store challenge", err)
	}

	s.logger.Debug("registration options issued", "username", username)
	return options, nil
}

// FinishRegistration completes the registration ceremony. The user's live
// challenge is consumed whether or not verification succeeds, so a failed
// attempt can never be retried against the same challenge. On success the
// extracted credential is appended to the user's devices.
func (s *Service) FinishRegistration(ctx context.Context, username string, response *protocol.ParsedCredentialCreationData) (*Device, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, WrapError("get user", err)
	}

	session, err := s.challenges.TakeAndInvalidate(ctx, user.ID, PurposeRegistration)
	if err != nil {
		return nil, WrapError("take challenge", err)
	}

	credential, err := s.webauthn.CreateCredential(user, *session, response)
	if err != nil {
		s.logger.Warn("registration verification failed",
			"username", username,
			"error", err)
		return nil, NewError("create credential", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	device := DeviceFromCredential(credential)
	if err := s.users.AddDevice(ctx, username, device); err != nil {
		return nil, WrapError("add device", err)
	}

	s.logger.Info("device registered",
		"username", username,
		"attestation", device.AttestationType)
	return device, nil
}

// BeginLogin starts the authentication ceremony for a known username. Unknown
// usernames fail with ErrUserNotFound; login never creates accounts.
func (s *Service) BeginLogin(ctx context.Context, username string) (*protocol.CredentialAssertion, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if username == "" {
		return nil, NewError("begin login", fmt.Errorf("%w: username is required", ErrInvalidInput))
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, WrapError("get user", err)
	}
	if len(user.Devices) == 0 {
		return nil, NewError("begin login", ErrNoDevices)
	}

	options, session, err := s.webauthn.BeginLogin(user)
	if err != nil {
		return nil, WrapError("begin login", err)
	}

	if err := s.challenges.Put(ctx, user.ID, session, PurposeAuthentication); err != nil {
		return nil, WrapError("store challenge", err)
	}

	s.logger.Debug("login options issued",
		"username", username,
		"devices", len(user.Devices))
	return options, nil
}

// FinishLogin completes the authentication ceremony. The challenge is consumed
// on entry regardless of the outcome. The device is matched against the
// assertion's credential ID before the verifier runs, since verification needs
// the stored public key and counter. A signature counter at or below the
// stored value is rejected as a cloned authenticator and nothing is persisted;
// otherwise the new counter is stored before returning, so a replayed
// assertion can never verify against stale state.
func (s *Service) FinishLogin(ctx context.Context, username string, response *protocol.ParsedCredentialAssertionData) (*Device, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, WrapError("get user", err)
	}

	session, err := s.challenges.TakeAndInvalidate(ctx, user.ID, PurposeAuthentication)
	if err != nil {
		return nil, WrapError("take challenge", err)
	}

	device := user.Device(response.RawID)
	if device == nil {
		return nil, NewError("find device", ErrDeviceNotFound)
	}

	credential, err := s.webauthn.ValidateLogin(user, *session, response)
	if err != nil {
		s.logger.Warn("login verification failed",
			"username", username,
			"error", err)
		return nil, NewError("validate login", fmt.Errorf("%w: %v", ErrVerificationFailed, err))
	}

	if credential.Authenticator.CloneWarning {
		s.logger.Warn("stale signature counter",
			"username", username,
			"stored", device.SignCount,
			"presented", credential.Authenticator.SignCount)
		return nil, NewError("validate login", ErrClonedAuthenticator)
	}

	if err := s.users.UpdateDeviceCounter(ctx, username, credential.ID, credential.Authenticator.SignCount); err != nil {
		return nil, WrapError("update device counter", err)
	}

	device.SignCount = credential.Authenticator.SignCount
	s.logger.Info("login verified",
		"username", username,
		"sign_count", device.SignCount)
	return device, nil
}

// GetUser retrieves a user by username.
func (s *Service) GetUser(ctx context.Context, username string) (*User, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.users.GetByUsername(ctx, username)
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}
