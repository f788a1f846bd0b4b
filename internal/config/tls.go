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

package config

import (
	"crypto/tls"
	"fmt"
)

// TLSConfig holds the HTTPS listener settings. Browsers require a secure
// context for WebAuthn, so production deployments either terminate TLS here
// or behind a reverse proxy.
type TLSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	CertFile     string   `yaml:"cert_file"`
	KeyFile      string   `yaml:"key_file"`
	MinVersion   string   `yaml:"min_version"`
	MaxVersion   string   `yaml:"max_version"`
	CipherSuites []string `yaml:"cipher_suites"`
}

// LoadTLSConfig builds a tls.Config from the settings. Returns nil when TLS
// is disabled.
func (cfg *TLSConfig) LoadTLSConfig() (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	minVersion := uint16(tls.VersionTLS12)
	if cfg.MinVersion != "" {
		minVersion = parseTLSVersion(cfg.MinVersion)
	}

	// #nosec G402 - MinVersion is set via variable with TLS 1.2 default, gosec cannot detect this pattern
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}

	if cfg.MaxVersion != "" {
		tlsConfig.MaxVersion = parseTLSVersion(cfg.MaxVersion)
	}

	if len(cfg.CipherSuites) > 0 {
		suites, err := parseCipherSuites(cfg.CipherSuites)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cipher suites: %w", err)
		}
		tlsConfig.CipherSuites = suites
	}

	return tlsConfig, nil
}

// parseTLSVersion converts a string to a tls version constant
func parseTLSVersion(version string) uint16 {
	switch version {
	case "TLS1.0":
		return tls.VersionTLS10
	case "TLS1.1":
		return tls.VersionTLS11
	case "TLS1.2":
		return tls.VersionTLS12
	case "TLS1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12 // Default
	}
}

// parseCipherSuites converts cipher suite names to IDs
func parseCipherSuites(suites []string) ([]uint16, error) {
	cipherSuiteMap := map[string]uint16{
		// TLS 1.3
		"TLS_AES_128_GCM_SHA256":       tls.TLS_AES_128_GCM_SHA256,
		"TLS_AES_256_GCM_SHA384":       tls.TLS_AES_256_GCM_SHA384,
		"TLS_CHACHA20_POLY1305_SHA256": tls.TLS_CHACHA20_POLY1305_SHA256,

		// TLS 1.2
		"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
		"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	}

	result := make([]uint16, 0, len(suites))
	for _, name := range suites {
		id, ok := cipherSuiteMap[name]
		if !ok {
			return nil, fmt.Errorf("unknown cipher suite: %s", name)
		}
		result = append(result, id)
	}

	return result, nil
}
