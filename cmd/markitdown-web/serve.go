// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/markitdown-web/internal/container"
	"github.com/pdiddy/markitdown-web/internal/convert"
	"github.com/pdiddy/markitdown-web/internal/logging"
	"github.com/pdiddy/markitdown-web/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference conversion server",
	Long: `Serve runs the conversion API (GET /api/health, POST /api/convert) and
Prometheus metrics on /metrics. Documents are converted with the markitdown
container image through docker or podman.

Without --cert and --key, a self-signed certificate is generated under
certs/. Clients must trust it (--ca-cert) or skip verification.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "", "listen address (default \""+server.DefaultAddr+"\")")
	f.String("cert", "", "TLS certificate file")
	f.String("key", "", "TLS key file")
	f.Bool("insecure-http", false, "serve plain HTTP without TLS")
	f.Int("rate-limit", 0, "conversions per client IP per minute; 0 keeps the configured value")
	f.String("image", convert.DefaultImage, "markitdown container image")
	f.StringSlice("allowed-origin", nil, "browser origin allowed by CORS (repeatable)")

	bindFlags(f, map[string]string{
		keyServeAddr:      "addr",
		keyServeCert:      "cert",
		keyServeKey:       "key",
		keyServePlainHTTP: "insecure-http",
		keyServeImage:     "image",
		keyServeOrigins:   "allowed-origin",
	})
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := serverConfig()
	if n, _ := cmd.Flags().GetInt("rate-limit"); n > 0 {
		cfg.RateLimit = n
	}
	log := logging.WithComponent("server")

	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	conv, err := convert.NewMarkitdownConverter(rt, cfg.Image)
	if err != nil {
		return err
	}
	log.Info().Str("runtime", rt.Name()).Str("image", cfg.Image).Msg("converter ready")
	if cfg.Token == "" {
		log.Warn().Msg("no serve.token configured; conversions are unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(cfg, conv, log).ListenAndServe(ctx)
}
