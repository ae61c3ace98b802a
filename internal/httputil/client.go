// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the client commands.
package httputil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/pdiddy/markitdown-web/pkg/types"
)

// DefaultTimeout bounds a whole upload, including reading the response.
const DefaultTimeout = 60 * time.Second

// NewClient builds an HTTP client for the conversion server. It has no
// cookie jar, so no cookies are ever sent. When cfg.CACertFile is set, the
// PEM certificates in it are trusted in addition to the system roots.
func NewClient(cfg types.ClientConfig) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.Insecure {
		tlsCfg.InsecureSkipVerify = true //nolint:gosec // opt-in for self-signed servers
	}
	if cfg.CACertFile != "" {
		pool, err := loadCertPool(cfg.CACertFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA certificate %s: %w", path, err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no PEM certificates found in %s", path)
	}
	return pool, nil
}

// dispositionFilename matches a quoted or unquoted filename parameter.
var dispositionFilename = regexp.MustCompile(`filename="?([^";]+)"?`)

// DispositionFilename extracts the filename from a Content-Disposition
// header value. It returns "" when the header carries no filename.
func DispositionFilename(header string) string {
	m := dispositionFilename.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}
