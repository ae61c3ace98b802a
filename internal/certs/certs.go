// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package certs provisions the TLS pair for the conversion server,
// generating a self-signed ECDSA certificate when none exists.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultCertPath = "certs/markitdown-web.crt"
	DefaultKeyPath  = "certs/markitdown-web.key"

	validity = 2 * 365 * 24 * time.Hour
)

// Config selects where the pair lives and which extra names the
// certificate covers besides localhost.
type Config struct {
	CertPath string
	KeyPath  string
	Hosts    []string // DNS names or IP literals
	Logger   zerolog.Logger
}

// Ensure returns paths to a usable certificate and key. When either file
// is missing, a new self-signed pair replaces both.
func Ensure(cfg Config) (certPath, keyPath string, err error) {
	certPath, keyPath = cfg.CertPath, cfg.KeyPath
	if certPath == "" {
		certPath = DefaultCertPath
	}
	if keyPath == "" {
		keyPath = DefaultKeyPath
	}

	certOK, keyOK := isFile(certPath), isFile(keyPath)
	if certOK && keyOK {
		cfg.Logger.Debug().Str("cert", certPath).Str("key", keyPath).Msg("using existing TLS pair")
		return certPath, keyPath, nil
	}
	if certOK || keyOK {
		cfg.Logger.Warn().Bool("cert_exists", certOK).Bool("key_exists", keyOK).
			Msg("incomplete TLS pair, regenerating both")
	}

	if err := Generate(certPath, keyPath, cfg.Hosts, time.Now()); err != nil {
		return "", "", err
	}
	cfg.Logger.Info().Str("cert", certPath).Str("key", keyPath).Strs("hosts", cfg.Hosts).
		Msg("generated self-signed TLS certificate; clients must trust it or pass --ca-cert")
	return certPath, keyPath, nil
}

// Generate writes a self-signed P-256 certificate valid from now for
// localhost, 127.0.0.1, ::1 and hosts.
func Generate(certPath, keyPath string, hosts []string, now time.Time) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generating private key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("generating serial number: %w", err)
	}

	tmpl := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"markitdown-web self-signed"}, CommonName: "localhost"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	seen := map[string]bool{"localhost": true, "127.0.0.1": true, "::1": true}
	for _, h := range hosts {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		if ip := net.ParseIP(h); ip != nil {
			tmpl.IPAddresses = append(tmpl.IPAddresses, ip)
		} else {
			tmpl.DNSNames = append(tmpl.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("creating certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}

	for _, p := range []string{certPath, keyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return fmt.Errorf("creating cert directory: %w", err)
		}
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := renameio.WriteFile(certPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("writing certificate: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := renameio.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("writing private key: %w", err)
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
