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
	"github.com/go-chi/chi/v5"
)

// Mount mounts the passkey routes on a chi router.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(svc, sessions)
//	r := chi.NewRouter()
//	passkeyhttp.Mount(r, handler)
func Mount(r chi.Router, h *Handler) {
	r.Post("/register/options", h.RegisterOptions)
	r.Post("/register/verify", h.RegisterVerify)
	r.Post("/login/options", h.LoginOptions)
	r.Post("/login/verify", h.LoginVerify)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}
