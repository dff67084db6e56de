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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AleutianAI/AleutianRisk/cmd/riskengine/config"
	"github.com/spf13/cobra"
)

const redacted = "********"

func newConfigCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			return writeConfig(cmd.OutOrStdout(), redact(*app.cfg), f)
		},
	}
	show.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or toml")

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.resolveConfigPath()
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &exitError{code: ExitError, err: fmt.Errorf("%s already exists (use --force to overwrite)", path)}
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return &exitError{code: ExitError, err: err}
			}
			if err := config.CreateDefault(path); err != nil {
				return &exitError{code: ExitError, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	path := &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.resolveConfigPath()
			if err != nil {
				return &exitError{code: ExitError, err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.AddCommand(show, initCmd, path)
	return cmd
}

func parseFormat(s string) (config.Format, error) {
	switch config.Format(s) {
	case config.FormatYAML, config.FormatTOML:
		return config.Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q: want yaml or toml", s)
	}
}

func writeConfig(w io.Writer, cfg config.AppConfig, f config.Format) error {
	data, err := config.Encode(&cfg, f)
	if err != nil {
		return &exitError{code: ExitError, err: err}
	}
	_, err = w.Write(data)
	return err
}

// redact blanks credentials. cfg is a copy.
func redact(cfg config.AppConfig) config.AppConfig {
	if cfg.LLM.APIKey != "" {
		cfg.LLM.APIKey = redacted
	}
	if cfg.Prices.Token != "" {
		cfg.Prices.Token = redacted
	}
	if cfg.Cache.Password != "" {
		cfg.Cache.Password = redacted
	}
	if len(cfg.Server.APITokens) > 0 {
		tokens := make([]string, len(cfg.Server.APITokens))
		for i := range tokens {
			tokens[i] = redacted
		}
		cfg.Server.APITokens = tokens
	}
	return cfg
}
