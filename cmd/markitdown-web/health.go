// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/markitdown-web/internal/httputil"
	"github.com/pdiddy/markitdown-web/internal/logging"
	"github.com/pdiddy/markitdown-web/internal/transport"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the conversion server is reachable",
	Long: `Health calls the server's health endpoint. A TLS error usually means the
server uses a self-signed certificate: pass it with --ca-cert, or open the
server URL in a browser and accept it.

With --wait, health keeps polling with backoff until the server answers,
which is useful right after "markitdown-web serve" starts.`,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().Duration("wait", 0, "keep polling until the server is healthy or this long has passed")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	client, err := transport.New(cfg, nil, logging.WithComponent("transport"))
	if err != nil {
		return err
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	msg, err := checkHealth(cmd.Context(), client, wait)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.BaseURL, msg)
	return nil
}

// checkHealth asks the server once, or polls for up to wait.
func checkHealth(ctx context.Context, client *transport.Client, wait time.Duration) (string, error) {
	probe := func(ctx context.Context) (string, error) {
		msg, fail := client.Health(ctx)
		if fail != nil {
			return "", fail
		}
		return msg, nil
	}
	if wait <= 0 {
		return probe(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	var msg string
	err := httputil.Retry(ctx, func(ctx context.Context) error {
		var err error
		msg, err = probe(ctx)
		return err
	})
	return msg, err
}
