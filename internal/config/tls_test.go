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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestCert generates a self-signed certificate and writes the PEM
// encoded cert and key into the test temp dir.
func writeTestCert(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	tmpDir := t.TempDir()
	certFile = filepath.Join(tmpDir, "cert.pem")
	keyFile = filepath.Join(tmpDir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0600))
	return certFile, keyFile
}

func TestLoadTLSConfig_Disabled(t *testing.T) {
	cfg := &TLSConfig{Enabled: false}

	tlsConfig, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)
}

func TestLoadTLSConfig_ValidConfig(t *testing.T) {
	certFile, keyFile := writeTestCert(t)

	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: certFile,
		KeyFile:  keyFile,
	}

	tlsConfig, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	require.NotNil(t, tlsConfig)
	assert.Len(t, tlsConfig.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
	assert.Zero(t, tlsConfig.MaxVersion)
}

func TestLoadTLSConfig_MissingCertFile(t *testing.T) {
	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
	}

	_, err := cfg.LoadTLSConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load server certificate")
}

func TestLoadTLSConfig_VersionBounds(t *testing.T) {
	certFile, keyFile := writeTestCert(t)

	cfg := &TLSConfig{
		Enabled:    true,
		CertFile:   certFile,
		KeyFile:    keyFile,
		MinVersion: "TLS1.3",
		MaxVersion: "TLS1.3",
	}

	tlsConfig, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
	assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MaxVersion)
}

func TestLoadTLSConfig_CipherSuites(t *testing.T) {
	certFile, keyFile := writeTestCert(t)

	cfg := &TLSConfig{
		Enabled:  true,
		CertFile: certFile,
		KeyFile:  keyFile,
		CipherSuites: []string{
			"TLS_AES_128_GCM_SHA256",
			"TLS_AES_256_GCM_SHA384",
		},
	}

	tlsConfig, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.Len(t, tlsConfig.CipherSuites, 2)
}

func TestLoadTLSConfig_InvalidCipherSuite(t *testing.T) {
	certFile, keyFile := writeTestCert(t)

	cfg := &TLSConfig{
		Enabled:      true,
		CertFile:     certFile,
		KeyFile:      keyFile,
		CipherSuites: []string{"INVALID_CIPHER_SUITE"},
	}

	_, err := cfg.LoadTLSConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cipher suite")
}

func TestParseTLSVersion(t *testing.T) {
	tests := []struct {
		version  string
		expected uint16
	}{
		{"TLS1.0", tls.VersionTLS10},
		{"TLS1.1", tls.VersionTLS11},
		{"TLS1.2", tls.VersionTLS12},
		{"TLS1.3", tls.VersionTLS13},
		{"unknown", tls.VersionTLS12},
		{"", tls.VersionTLS12},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTLSVersion(tt.version))
		})
	}
}

func TestValidate_TLSRequiresCertAndKey(t *testing.T) {
	cfg := Default()
	cfg.Server.TLS.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.tls.cert_file")
}
