// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmd implements the scanwall subcommands.
package cmd

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Printer formats operator-facing CLI output.
var Printer = message.NewPrinter(language.English)
