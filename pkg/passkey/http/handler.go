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

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/jeremyhahn/go-passkey/pkg/session"
)

// Handler provides the HTTP handlers for the passkey ceremonies and the
// session endpoints.
type Handler struct {
	service  *passkey.Service
	sessions *session.Manager
	logger   *slog.Logger
}

// NewHandler creates a passkey HTTP handler.
func NewHandler(service *passkey.Service, sessions *session.Manager) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		logger:   slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// RegisterOptions handles POST /register/options.
func (h *Handler) RegisterOptions(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, err := h.service.BeginRegistration(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// RegisterVerify handles POST /register/verify.
func (h *Handler) RegisterVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid attestation response")
		return
	}

	defer metrics.TimeCeremony(metrics.CeremonyRegistration)()
	if _, err := h.service.FinishRegistration(r.Context(), req.Username, response); err != nil {
		metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.StatusRejected)
		h.handleServiceError(w, err)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistration, metrics.StatusVerified)
	h.writeJSON(w, http.StatusOK, VerifyResponse{Verified: true})
}

// LoginOptions handles POST /login/options.
func (h *Handler) LoginOptions(w http.ResponseWriter, r *http.Request) {
	var req OptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	options, err := h.service.BeginLogin(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, options)
}

// LoginVerify handles POST /login/verify. On success the session marker
// cookie is set alongside the verified response.
func (h *Handler) LoginVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion response")
		return
	}

	defer metrics.TimeCeremony(metrics.CeremonyAuthentication)()
	if _, err := h.service.FinishLogin(r.Context(), req.Username, response); err != nil {
		metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.StatusRejected)
		h.handleServiceError(w, err)
		return
	}

	if err := h.sessions.Issue(w, req.Username); err != nil {
		h.logger.Error("failed to issue session marker",
			"username", req.Username,
			"error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
		return
	}

	metrics.RecordCeremony(metrics.CeremonyAuthentication, metrics.StatusVerified)
	h.writeJSON(w, http.StatusOK, VerifyResponse{Verified: true})
}

// Logout handles POST /logout. Unconditionally idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	h.writeJSON(w, http.StatusOK, LogoutResponse{Success: true})
}

// Me handles GET /me. A marker naming a user that has since been evicted from
// the credential store reads as logged out.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	username, err := h.sessions.Resolve(r)
	if err != nil {
		h.writeJSON(w, http.StatusOK, MeResponse{LoggedIn: false})
		return
	}

	if _, err := h.service.GetUser(r.Context(), username); err != nil {
		h.writeJSON(w, http.StatusOK, MeResponse{LoggedIn: false})
		return
	}

	h.writeJSON(w, http.StatusOK, MeResponse{LoggedIn: true, Username: username})
}

// handleServiceError maps service errors to HTTP responses. All ceremony
// failures are 400s with a generic category; the underlying verifier detail
// never reaches the client.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkey.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request")
	case errors.Is(err, passkey.ErrUserNotFound):
		h.writeError(w, http.StatusBadRequest, ErrorCodeUserNotFound, "user not found")
	case errors.Is(err, passkey.ErrChallengeNotFound):
		h.writeError(w, http.StatusBadRequest, ErrorCodeChallengeMissing, "challenge expired or missing")
	case errors.Is(err, passkey.ErrDeviceNotFound):
		h.writeError(w, http.StatusBadRequest, ErrorCodeDeviceNotFound, "authenticator not found")
	case errors.Is(err, passkey.ErrNoDevices):
		h.writeError(w, http.StatusBadRequest, ErrorCodeNoDevices, "no registered devices")
	case errors.Is(err, passkey.ErrDuplicateCredential):
		h.writeError(w, http.StatusBadRequest, ErrorCodeDuplicateCredential, "credential already registered")
	case errors.Is(err, passkey.ErrVerificationFailed), errors.Is(err, passkey.ErrClonedAuthenticator):
		h.writeError(w, http.StatusBadRequest, ErrorCodeVerificationFailed, "verification failed")
	default:
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
