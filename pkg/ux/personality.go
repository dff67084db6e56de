// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Level controls how much styling output carries.
type Level string

const (
	// LevelFull renders boxes, colors, and icons.
	LevelFull Level = "full"

	// LevelMinimal renders icons and plain text without boxes.
	LevelMinimal Level = "minimal"

	// LevelMachine renders tab-separated key/value lines for scripts.
	LevelMachine Level = "machine"
)

// ParseLevel maps a user string onto a Level. Unknown values mean full.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return LevelMinimal
	case "machine", "quiet", "q":
		return LevelMachine
	default:
		return LevelFull
	}
}

// DetectLevel picks a level from ALEUTIAN_PERSONALITY, falling back to
// machine output when f is not a terminal.
func DetectLevel(f *os.File) Level {
	if env := os.Getenv("ALEUTIAN_PERSONALITY"); env != "" {
		return ParseLevel(env)
	}
	if f == nil || !isTerminal(f) {
		return LevelMachine
	}
	return LevelFull
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
