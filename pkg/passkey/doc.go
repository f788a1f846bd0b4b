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

// Package passkey implements the WebAuthn Relying Party core: challenge
// issuance and consumption, registration and authentication ceremony
// orchestration, and the per-user credential data model.
//
// Cryptographic verification of attestation and assertion responses is
// delegated to github.com/go-webauthn/webauthn; this package defines how that
// verifier is invoked and how its results are applied to stored state.
//
// The Service is the entry point. It is backed by two stores:
//
//   - UserStore holds users and their registered devices (credentials).
//   - ChallengeStore holds the short-lived, single-use ceremony challenges.
//
// Both ship with in-memory implementations suitable for development and
// testing. The in-memory user store is bounded and evicts idle users together
// with their devices; production deployments should implement the interfaces
// against durable storage.
//
// Basic usage:
//
//	svc, err := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:          "example.com",
//	        RPDisplayName: "Example Corp",
//	        RPOrigins:     []string{"https://example.com"},
//	    },
//	    UserStore:      passkey.NewMemoryUserStore(),
//	    ChallengeStore: passkey.NewMemoryChallengeStore(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	options, err := svc.BeginRegistration(ctx, "alice")
//	// send options to the browser, post the attestation response back
//	device, err := svc.FinishRegistration(ctx, "alice", parsedResponse)
package passkey
