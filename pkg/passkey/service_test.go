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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:         validConfig(),
		UserStore:      NewMemoryUserStore(),
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)
	return svc
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  ServiceParams
		wantErr string
	}{
		{
			name:    "missing config",
			params:  ServiceParams{UserStore: NewMemoryUserStore(), ChallengeStore: NewMemoryChallengeStore()},
			wantErr: "config is required",
		},
		{
			name:    "missing user store",
			params:  ServiceParams{Config: validConfig(), ChallengeStore: NewMemoryChallengeStore()},
			wantErr: "user store is required",
		},
		{
			name:    "missing challenge store",
			params:  ServiceParams{Config: validConfig(), UserStore: NewMemoryUserStore()},
			wantErr: "challenge store is required",
		},
		{
			name: "invalid config",
			params: ServiceParams{
				Config:         &Config{RPDisplayName: "No ID"},
				UserStore:      NewMemoryUserStore(),
				ChallengeStore: NewMemoryChallengeStore(),
			},
			wantErr: "invalid config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewService_AppliesDefaults(t *testing.T) {
	svc := newTestService(t)
	cfg := svc.Config()

	assert.Equal(t, "preferred", cfg.UserVerification)
	assert.Equal(t, "none", cfg.AttestationPreference)
}

func TestBeginRegistration_EmptyUsername(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.BeginRegistration(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBeginRegistration_CreatesAccountAndChallenge(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserStore()
	challenges := NewMemoryChallengeStore()
	svc, err := NewService(ServiceParams{
		Config:         validConfig(),
		UserStore:      users,
		ChallengeStore: challenges,
	})
	require.NoError(t, err)

	options, err := svc.BeginRegistration(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, options)

	assert.Equal(t, "example.com", options.Response.RelyingParty.ID)
	assert.Equal(t, "alice", options.Response.User.Name)
	assert.NotEmpty(t, options.Response.Challenge)

	assert.Equal(t, 1, users.Count())
	assert.Equal(t, 1, challenges.Count())
}

func TestBeginRegistration_FreshChallengeEachCall(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.BeginRegistration(ctx, "alice")
	require.NoError(t, err)
	second, err := svc.BeginRegistration(ctx, "alice")
	require.NoError(t, err)

	assert.NotEqual(t, first.Response.Challenge, second.Response.Challenge)
}

func TestFinishRegistration_UnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.FinishRegistration(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFinishRegistration_NoChallenge(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserStore()
	svc, err := NewService(ServiceParams{
		Config:         validConfig(),
		UserStore:      users,
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	_, err = users.GetOrCreate(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.FinishRegistration(ctx, "alice", nil)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestBeginLogin_EmptyUsername(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.BeginLogin(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBeginLogin_NeverCreatesAccounts(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserStore()
	svc, err := NewService(ServiceParams{
		Config:         validConfig(),
		UserStore:      users,
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	_, err = svc.BeginLogin(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 0, users.Count())
}

func TestBeginLogin_NoDevices(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	// Account exists (created by a registration that never finished) but
	// holds no devices
	_, err := svc.BeginRegistration(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.BeginLogin(ctx, "alice")
	assert.ErrorIs(t, err, ErrNoDevices)
}

func TestFinishLogin_UnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.FinishLogin(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.BeginRegistration(ctx, "alice")
	require.NoError(t, err)

	user, err := svc.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestService_NotConfigured(t *testing.T) {
	ctx := context.Background()
	var svc Service

	_, err := svc.BeginRegistration(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.FinishRegistration(ctx, "alice", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.BeginLogin(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.FinishLogin(ctx, "alice", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.GetUser(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
