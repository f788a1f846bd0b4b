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

// Package rest assembles the passkey HTTP server: it mounts the ceremony
// endpoints from pkg/passkey/http onto a chi router together with health
// probes, the Prometheus endpoint, and logging, recovery, and metrics
// middleware.
package rest
