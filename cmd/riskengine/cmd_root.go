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

	"github.com/AleutianAI/AleutianRisk/cmd/riskengine/config"
	"github.com/AleutianAI/AleutianRisk/pkg/logging"
	"github.com/AleutianAI/AleutianRisk/pkg/ux"
	"github.com/spf13/cobra"
)

// annotationSkipConfig marks commands that run before a config exists.
const annotationSkipConfig = "skip-config"

// cli is the state shared by every subcommand of one invocation.
type cli struct {
	configPath  string
	personality string

	cfg    *config.AppConfig
	logger *logging.Logger
}

// resolveConfigPath returns --config or the default location.
func (c *cli) resolveConfigPath() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.DefaultPath()
}

// outputLevel returns --personality, or the level detected for stdout.
func (c *cli) outputLevel() ux.Level {
	if c.personality != "" {
		return ux.ParseLevel(c.personality)
	}
	return ux.DetectLevel(os.Stdout)
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	root := &cobra.Command{
		Use:   "riskengine",
		Short: "Score the short-term risk of financial news events",
		Long: `Score the short-term risk of a financial news event.

Each assessment combines four factors into a 0-100 score:
  - Sentiment severity from an LLM reading of the headline
  - Analog severity from similar historical events
  - Price reaction of the ticker after those analogs
  - Realized volatility over the same windows

Any collaborator may be missing or down. The assessment is then marked
degraded and the affected factor's weight is redistributed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationSkipConfig] == "true" {
				return nil
			}
			return app.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.logger != nil {
				return app.logger.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", "",
		"Config file (default ~/.aleutian/riskengine.yaml)")
	root.PersistentFlags().StringVar(&app.personality, "personality", "",
		"Output style: full, minimal, machine (default: detect)")

	root.AddCommand(newAssessCmd(app))
	root.AddCommand(newServeCmd(app))
	root.AddCommand(newConfigCmd(app))
	root.AddCommand(newPricesCmd(app))
	return root
}

// setup loads the config and installs the process logger.
func (c *cli) setup() error {
	path, err := c.resolveConfigPath()
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}
	c.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return &exitError{code: ExitError, err: fmt.Errorf("logging.level: %w", err)}
	}
	c.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "riskengine",
		Format:  logging.Format(cfg.Logging.Format),
	})
	c.logger.SetDefault()
	return nil
}
