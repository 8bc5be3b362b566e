// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"grimm.is/scanwall/internal/brand"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/install"
)

// RunStart launches "run" as a detached background process logging to the
// log directory. The child owns the PID file.
func RunStart(opts RunOptions) error {
	// Validate before forking so config errors reach the terminal.
	if _, err := loadConfig(opts.ConfigFile); err != nil {
		return errors.Wrap(err, errors.KindValidation, "configuration error")
	}

	pidFile := install.GetPIDFile()
	if pid, err := readPIDFile(pidFile); err == nil {
		if processAlive(pid) {
			return errors.Errorf(errors.KindConflict, "process already running (PID: %d)", pid)
		}
		Printer.Printf("Warning: Removing stale PID file %s\n", pidFile)
		_ = os.Remove(pidFile)
	}

	exe, err := os.Executable()
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to get executable path")
	}

	logDir := install.GetLogDir()
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return errors.Wrap(err, errors.KindPermission, "failed to create log directory")
	}
	logFile := filepath.Join(logDir, brand.LowerName+".log")
	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, errors.KindPermission, "failed to open log file")
	}
	defer logF.Close()

	cmd := exec.Command(exe, childArgs(opts)...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "failed to start monitor")
	}
	pid := cmd.Process.Pid
	Printer.Printf("Started %s (PID: %d)\n", brand.Name, pid)
	Printer.Printf("Logs: %s\n", logFile)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		Printer.Fprintf(os.Stderr, "\nError: monitor exited immediately.\n")
		if lines := tailLogFile(logFile, 10); len(lines) > 0 {
			Printer.Fprintf(os.Stderr, "Log output:\n")
			for _, line := range lines {
				Printer.Fprintf(os.Stderr, "  %s\n", line)
			}
		}
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "monitor failed to start")
		}
		return errors.New(errors.KindInternal, "monitor exited unexpectedly")
	case <-time.After(500 * time.Millisecond):
		if !processAlive(pid) {
			return errors.Errorf(errors.KindInternal, "monitor died during startup (check logs: %s)", logFile)
		}
		return nil
	}
}

// childArgs rebuilds the run flags for the background process.
func childArgs(o RunOptions) []string {
	args := []string{"run", "-pidfile"}
	if o.ConfigFile != "" {
		abs, err := filepath.Abs(o.ConfigFile)
		if err == nil {
			o.ConfigFile = abs
		}
		args = append(args, "-config", o.ConfigFile)
	}
	if o.ProcFile != "" {
		args = append(args, "-proc", o.ProcFile)
	}
	if o.Interval > 0 {
		args = append(args, "-interval", o.Interval.String())
	}
	if o.WindowSize > 0 {
		args = append(args, "-window", strconv.Itoa(o.WindowSize))
	}
	if o.Threshold != nil {
		args = append(args, "-threshold", strconv.Itoa(*o.Threshold))
	}
	if o.Backend != "" {
		args = append(args, "-backend", o.Backend)
	}
	if o.LogLevel != "" {
		args = append(args, "-log-level", o.LogLevel)
	}
	if o.MetricsListen != "" {
		args = append(args, "-metrics-listen", o.MetricsListen)
	}
	if o.DryRun {
		args = append(args, "-dry-run")
	}
	if o.NoMetrics {
		args = append(args, "-no-metrics")
	}
	// Output goes to a log file.
	return append(args, "-no-color")
}

// tailLogFile returns the last n non-empty lines of path.
func tailLogFile(path string, n int) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(string(content), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
