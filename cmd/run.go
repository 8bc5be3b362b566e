// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grimm.is/scanwall/internal/brand"
	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/detector"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/firewall"
	"grimm.is/scanwall/internal/install"
	"grimm.is/scanwall/internal/logging"
	"grimm.is/scanwall/internal/metrics"
	"grimm.is/scanwall/internal/monitor"
	"grimm.is/scanwall/internal/notification"
	"grimm.is/scanwall/internal/procnet"
	"grimm.is/scanwall/internal/render"
)

// RunOptions carries command-line overrides for the monitor. Zero values
// and a nil Threshold leave the config file setting alone.
type RunOptions struct {
	ConfigFile    string
	ProcFile      string
	Interval      time.Duration
	WindowSize    int
	Threshold     *int
	Backend       string
	LogLevel      string
	MetricsListen string
	DryRun        bool
	NoColor       bool
	NoMetrics     bool
	WritePID      bool
}

// loadConfig reads path. With no path the default location is tried and a
// missing file falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	path = install.DefaultConfigFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.DefaultConfig(), nil
	}
	return config.LoadFile(path)
}

func (o RunOptions) apply(cfg *config.Config) {
	if o.ProcFile != "" {
		cfg.ProcFile = o.ProcFile
	}
	if o.Interval > 0 {
		cfg.Interval = o.Interval.String()
	}
	if o.WindowSize > 0 {
		cfg.WindowSize = o.WindowSize
	}
	if o.Threshold != nil {
		t := *o.Threshold
		cfg.Threshold = &t
	}
	if o.Backend != "" {
		cfg.Blocker.Backend = o.Backend
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.MetricsListen != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Listen = o.MetricsListen
	}
	if o.NoMetrics {
		cfg.Metrics.Enabled = false
	}
	if o.DryRun {
		cfg.DryRun = true
	}
	if o.NoColor {
		cfg.NoColor = true
	}
}

// RunMonitor runs the detector in the foreground until SIGINT or SIGTERM.
func RunMonitor(opts RunOptions) error {
	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.LoggingConfig())
	logging.SetDefault(logger)
	if err := SetProcessName(brand.LowerName); err != nil {
		logger.Debug("could not set process name", "error", err)
	}

	blockerCfg := *cfg.Blocker
	if cfg.DryRun {
		blockerCfg.Backend = firewall.BackendMemory
		logger.Warn("dry run: scans are reported but no firewall rules are written")
	}
	if blockerCfg.Backend != firewall.BackendMemory && !IsRoot() {
		return errors.Attr(errors.Errorf(errors.KindPermission,
			"%s backend needs root; rerun with sudo or use -dry-run", blockerCfg.Backend), "backend", blockerCfg.Backend)
	}
	blocker, err := firewall.New(blockerCfg, logger.WithComponent("firewall"))
	if err != nil {
		return err
	}

	registry := detector.NewBlockRegistry()
	m := metrics.NewMetrics(registry.Len)
	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, metrics.NewRegistry(m), logger.WithComponent("metrics"))
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	var notifier monitor.Notifier
	if d := notification.NewDispatcher(cfg.Notifications, logger.WithComponent("notification")); d.Enabled() {
		notifier = d
	}
	host, _ := os.Hostname()

	svc, err := monitor.NewService(monitor.Options{
		Source:     procnet.NewFileSource(cfg.ProcFile),
		Blocker:    blocker,
		Registry:   registry,
		Interval:   cfg.PollInterval(),
		WindowSize: cfg.WindowSize,
		Threshold:  cfg.FanoutThreshold(),
		Allowlist:  cfg.Allowlist,
		Console:    render.NewConsole(os.Stdout, !cfg.NoColor && render.ColorEnabled(os.Stdout)),
		Metrics:    m,
		Notifier:   notifier,
		Hostname:   host,
		Logger:     logger.WithComponent("monitor"),
	})
	if err != nil {
		return err
	}

	if opts.WritePID {
		pidFile := install.GetPIDFile()
		if err := writePIDFile(pidFile); err != nil {
			return err
		}
		defer removePIDFile(pidFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.Run(ctx)
}
