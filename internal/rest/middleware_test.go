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

package rest

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggedServer(t *testing.T, buf *bytes.Buffer) *Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	server, err := NewServer(&Config{
		Service:  newTestService(t),
		Sessions: newTestSessions(t),
		Logger:   logger,
	})
	require.NoError(t, err)
	return server
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	server := newLoggedServer(t, &buf)

	handler := server.LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/logged", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	logs := buf.String()
	assert.Contains(t, logs, "request started")
	assert.Contains(t, logs, "request completed")
	assert.Contains(t, logs, "/logged")
	assert.Contains(t, logs, "204")
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	server := newLoggedServer(t, &buf)

	handler := server.RecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/panics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"internal_error","message":"internal server error"}`, rec.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestResponseWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	_, err := rw.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.True(t, rw.written)
}

func TestResponseWriterIgnoresSecondStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := newResponseWriter(rec)

	rw.WriteHeader(http.StatusBadRequest)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusBadRequest, rw.statusCode)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
