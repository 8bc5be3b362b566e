// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"io"

	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/errors"
)

// RunConfigValidate loads path, reports every problem found and prints the
// effective settings on success.
func RunConfigValidate(path string, w io.Writer) error {
	if path == "" {
		return errors.New(errors.KindValidation, "config file path is required")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		Printer.Fprintf(w, "Configuration %s is invalid:\n%v\n", path, err)
		return errors.Wrap(err, errors.KindValidation, "validation failed")
	}

	Printer.Fprintf(w, "Configuration %s is valid.\n", path)
	Printer.Fprintf(w, "  interval:      %s\n", cfg.PollInterval())
	Printer.Fprintf(w, "  window size:   %d\n", cfg.WindowSize)
	Printer.Fprintf(w, "  threshold:     %d\n", cfg.FanoutThreshold())
	Printer.Fprintf(w, "  source:        %s\n", cfg.ProcFile)
	Printer.Fprintf(w, "  backend:       %s\n", cfg.Blocker.Backend)
	if cfg.DryRun {
		Printer.Fprintf(w, "  dry run:       yes\n")
	}
	Printer.Fprintf(w, "  allowlist:     %d entries\n", len(cfg.Allowlist))
	if cfg.Metrics.Enabled {
		Printer.Fprintf(w, "  metrics:       %s\n", cfg.Metrics.Listen)
	} else {
		Printer.Fprintf(w, "  metrics:       disabled\n")
	}
	enabled := 0
	if cfg.Notifications.Enabled {
		for _, ch := range cfg.Notifications.Channels {
			if ch.Enabled {
				enabled++
			}
		}
	}
	Printer.Fprintf(w, "  notifications: %d active channel(s)\n", enabled)
	return nil
}

// RunConfigSample writes an annotated default config.
func RunConfigSample(w io.Writer) error {
	_, err := io.WriteString(w, config.Sample())
	return err
}
