// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/markitdown-web/internal/httputil"
	"github.com/pdiddy/markitdown-web/internal/secrets"
	"github.com/pdiddy/markitdown-web/internal/server"
	"github.com/pdiddy/markitdown-web/pkg/types"
)

// Config keys. Each is settable in markitdown-web.yaml, as a flag, or as
// MARKITDOWN_WEB_<KEY> with dots replaced by underscores.
const (
	keyBaseURL    = "base_url"
	keyTimeout    = "timeout"
	keyToken      = "token"
	keyCACert     = "ca_cert"
	keyInsecure   = "insecure"
	keyOutputDir  = "output_dir"
	keyHistoryDB  = "history_db"
	keyLogLevel   = "log_level"
	keyLogJSON    = "log_json"
	keySecretsDir = "secrets_dir"

	keyServeAddr      = "serve.addr"
	keyServeCert      = "serve.cert"
	keyServeKey       = "serve.key"
	keyServePlainHTTP = "serve.insecure_http"
	keyServeRateLimit = "serve.rate_limit"
	keyServeImage     = "serve.image"
	keyServeToken     = "serve.token"
	keyServeOrigins   = "serve.allowed_origins"
)

const (
	defaultBaseURL   = "https://localhost:8443"
	defaultUserAgent = "markitdown-web/0.1"
)

func init() {
	viper.SetDefault(keyBaseURL, defaultBaseURL)
	viper.SetDefault(keyOutputDir, ".")
	viper.SetDefault(keyServeAddr, server.DefaultAddr)
	viper.SetDefault(keyServeRateLimit, server.DefaultRateLimit)
}

// bindFlags binds each viper key to the named flag in fs.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

// clientConfig assembles the client settings. An explicit token wins over
// the secrets file.
func clientConfig() types.ClientConfig {
	timeout := viper.GetDuration(keyTimeout)
	if timeout <= 0 {
		timeout = httputil.DefaultTimeout
	}
	token := viper.GetString(keyToken)
	if token == "" {
		token = loadedSecrets[secrets.KeyAPIToken]
	}
	return types.ClientConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		BaseURL:    viper.GetString(keyBaseURL),
		Token:      token,
		CACertFile: viper.GetString(keyCACert),
		Insecure:   viper.GetBool(keyInsecure),
		OutputDir:  viper.GetString(keyOutputDir),
	}
}

func historyConfig() types.HistoryConfig {
	path := viper.GetString(keyHistoryDB)
	if path == "" {
		path = defaultHistoryPath()
	}
	return types.HistoryConfig{DBPath: path}
}

// defaultHistoryPath is under the user's config directory, falling back to
// the working directory.
func defaultHistoryPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "markitdown-web", "history.db")
	}
	return filepath.Join(".markitdown-web", "history.db")
}

func serverConfig() types.ServerConfig {
	return types.ServerConfig{
		Addr:           viper.GetString(keyServeAddr),
		CertFile:       viper.GetString(keyServeCert),
		KeyFile:        viper.GetString(keyServeKey),
		PlainHTTP:      viper.GetBool(keyServePlainHTTP),
		RateLimit:      viper.GetInt(keyServeRateLimit),
		Image:          viper.GetString(keyServeImage),
		Token:          viper.GetString(keyServeToken),
		AllowedOrigins: viper.GetStringSlice(keyServeOrigins),
	}
}
