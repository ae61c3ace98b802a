// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the markitdown-web CLI. It uploads
// documents to a conversion server, saves the Markdown it returns, and can
// run the reference server itself.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/markitdown-web/internal/logging"
	"github.com/pdiddy/markitdown-web/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets map[string]string

var rootCmd = &cobra.Command{
	Use:   "markitdown-web",
	Short: "Convert office documents and PDFs to Markdown through a conversion server",
	Long: `markitdown-web uploads a document (.pptx, .docx, .xlsx, .xls, .pdf, .md,
up to 30MB) to a conversion server and saves the Markdown it returns.

Use "serve" to run the reference conversion server, which converts with the
markitdown container image through docker or podman.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Configure(logging.Config{
			Level:   viper.GetString(keyLogLevel),
			Console: !viper.GetBool(keyLogJSON),
		})
		log := logging.WithComponent("cli")

		s, err := secrets.Load(viper.GetString(keySecretsDir))
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug().Str("file", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./markitdown-web.yaml or ~/.config/markitdown-web/config.yaml)")
	pf.String("base-url", "", "conversion server base URL (e.g. https://localhost:8443)")
	pf.Duration("timeout", 0, "request timeout (default 60s)")
	pf.String("token", "", "bearer token sent to the server (default: secrets file "+secrets.KeyAPIToken+")")
	pf.String("ca-cert", "", "PEM file with extra CA certificates to trust, e.g. the server's self-signed cert")
	pf.Bool("insecure", false, "skip TLS certificate verification")
	pf.String("log-level", "", "log level: debug, info, warn, error (default info)")
	pf.Bool("log-json", false, "emit JSON logs instead of console output")
	pf.String("secrets-dir", secrets.DefaultDir, "directory of secret files")

	bindFlags(pf, map[string]string{
		keyBaseURL:    "base-url",
		keyTimeout:    "timeout",
		keyToken:      "token",
		keyCACert:     "ca-cert",
		keyInsecure:   "insecure",
		keyLogLevel:   "log-level",
		keyLogJSON:    "log-json",
		keySecretsDir: "secrets-dir",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("markitdown-web")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "markitdown-web"))
		}
	}

	viper.SetEnvPrefix("MARKITDOWN_WEB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
