// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/AleutianRisk/services/riskapi"
	"github.com/spf13/cobra"
)

func newServeCmd(app *cli) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the risk HTTP API",
		Long: `Run the risk HTTP API until interrupted.

Routes:
  POST /v1/risk/assess   Assess one event
  GET  /health           Liveness
  GET  /metrics          Prometheus metrics (server.enable_metrics)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := toServiceConfig(app.cfg)
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			logger := app.logger.Slog()
			logger.Info("Starting riskengine",
				"port", cfg.Port,
				"llm_backend", cfg.LLM.Backend,
				"weaviate_url", cfg.Vector.WeaviateURL,
				"influx_url", cfg.Prices.URL,
				"cache", cfg.Cache.Backend,
			)

			svc, err := riskapi.New(cfg, logger, nil)
			if err != nil {
				return &exitError{code: ExitError, err: fmt.Errorf("failed to create service: %w", err)}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := svc.Run(ctx); err != nil {
				return &exitError{code: ExitError, err: err}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", riskapi.DefaultPort, "HTTP listen port (overrides server.port)")
	return cmd
}
