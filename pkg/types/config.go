// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by commands that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "markitdown-web/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ClientConfig holds settings for the conversion client.
type ClientConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL selects the conversion server (e.g. "https://localhost").
	// Empty means a relative request, which cannot be sent from a CLI.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Token is an optional bearer token attached to each request.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// CACertFile is an optional PEM bundle trusted in addition to the
	// system roots, typically the server's self-signed certificate.
	CACertFile string `json:"ca_cert,omitempty" yaml:"ca_cert,omitempty"`

	// Insecure disables TLS certificate verification.
	Insecure bool `json:"insecure" yaml:"insecure"`

	// OutputDir is where converted Markdown files are saved.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// HistoryConfig holds settings for the local conversion history.
type HistoryConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// MaxResults is the default number of entries listed (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServerConfig holds settings for the reference conversion server.
type ServerConfig struct {
	// Addr is the listen address (default ":8443").
	Addr string `json:"addr" yaml:"addr"`

	// CertFile and KeyFile locate the TLS pair. A self-signed pair is
	// generated when both are missing.
	CertFile string `json:"cert" yaml:"cert"`
	KeyFile  string `json:"key" yaml:"key"`

	// PlainHTTP serves without TLS.
	PlainHTTP bool `json:"plain_http" yaml:"plain_http"`

	// RateLimit is the number of conversions allowed per client IP per
	// minute. Zero disables limiting.
	RateLimit int `json:"rate_limit" yaml:"rate_limit"`

	// Token, when set, must accompany conversions as a bearer token.
	Token string `json:"-" yaml:"-"`

	// AllowedOrigins lists browser origins permitted by CORS. Empty sends
	// no CORS headers.
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`

	// Image is the markitdown container image.
	Image string `json:"image" yaml:"image"`
}
