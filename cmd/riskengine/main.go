// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command riskengine scores the short-term risk of financial news events.
//
// # Usage
//
//	riskengine assess --ticker AAPL --title "Apple faces recall" --date 2024-01-15
//	riskengine serve --port 12220
//	riskengine config show
//
// Configuration is read from ~/.aleutian/riskengine.yaml (created on first
// run) or the file given by --config. A .toml path is read as TOML.
//
// # Exit Codes
//
//	0 = success, or risk below --fail-on
//	1 = risk at or above --fail-on
//	2 = error
package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	ExitSuccess   = 0
	ExitRiskFound = 1
	ExitError     = 2
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode reports err (if it has a message) and returns the code to exit
// with.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return ExitError
}
