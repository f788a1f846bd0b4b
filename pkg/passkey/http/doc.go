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

// Package http exposes the passkey ceremonies over HTTP.
//
// Six endpoints make up the surface:
//
//	POST /register/options  {username}            -> credential creation options
//	POST /register/verify   {username, response}  -> {verified: true}
//	POST /login/options     {username}            -> credential request options
//	POST /login/verify      {username, response}  -> {verified: true} + session cookie
//	POST /logout                                  -> {success: true}, cookie cleared
//	GET  /me                                      -> {loggedIn, username?}
//
// Options responses must be forwarded to navigator.credentials.create/get
// unmodified; verify requests carry the authenticator's JSON response under
// the "response" key. Ceremony failures surface as 400 with a generic error
// category — the handler never explains why a specific authenticator was
// rejected.
package http
