// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config defines the scanwall configuration schema and loaders.
package config

import (
	"time"

	"grimm.is/scanwall/internal/logging"
)

// Defaults applied to zero-valued fields.
const (
	DefaultInterval      = "10s"
	DefaultWindowSize    = 6
	DefaultThreshold     = 3
	DefaultProcFile      = "/proc/net/tcp"
	DefaultLogLevel      = "info"
	DefaultBackend       = "iptables"
	DefaultMetricsListen = ":8000"

	CurrentSchemaVersion = "1"
)

// Config is the top-level configuration.
type Config struct {
	SchemaVersion string `hcl:"schema_version,optional" json:"schema_version,omitempty" yaml:"schema_version,omitempty"`

	// Poll interval as a Go duration string.
	Interval   string `hcl:"interval,optional" json:"interval,omitempty" yaml:"interval,omitempty"`
	WindowSize int    `hcl:"window_size,optional" json:"window_size,omitempty" yaml:"window_size,omitempty"`
	// Threshold is unset when nil; an explicit 0 flags any peer.
	Threshold *int   `hcl:"threshold,optional" json:"threshold,omitempty" yaml:"threshold,omitempty"`
	ProcFile  string `hcl:"proc_file,optional" json:"proc_file,omitempty" yaml:"proc_file,omitempty"`

	LogLevel string `hcl:"log_level,optional" json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogJSON  bool   `hcl:"log_json,optional" json:"log_json,omitempty" yaml:"log_json,omitempty"`
	NoColor  bool   `hcl:"no_color,optional" json:"no_color,omitempty" yaml:"no_color,omitempty"`

	// DryRun detects and reports scans but blocks only in memory.
	DryRun bool `hcl:"dry_run,optional" json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	// Allowlist holds CIDRs or single addresses never counted toward a scan.
	Allowlist []string `hcl:"allowlist,optional" json:"allowlist,omitempty" yaml:"allowlist,omitempty"`

	Blocker       *BlockerConfig        `hcl:"blocker,block" json:"blocker,omitempty" yaml:"blocker,omitempty"`
	Metrics       *MetricsConfig        `hcl:"metrics,block" json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Notifications *NotificationsConfig  `hcl:"notifications,block" json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Syslog        *logging.SyslogConfig `hcl:"syslog,block" json:"syslog,omitempty" yaml:"syslog,omitempty"`
}

// BlockerConfig selects the firewall backend.
type BlockerConfig struct {
	Backend string `hcl:"backend,optional" json:"backend,omitempty" yaml:"backend,omitempty"` // iptables, nftables, memory
	Table   string `hcl:"table,optional" json:"table,omitempty" yaml:"table,omitempty"`
	Chain   string `hcl:"chain,optional" json:"chain,omitempty" yaml:"chain,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `hcl:"enabled,optional" json:"enabled" yaml:"enabled"`
	Listen  string `hcl:"listen,optional" json:"listen,omitempty" yaml:"listen,omitempty"`
}

// NotificationsConfig configures where scan events are sent.
type NotificationsConfig struct {
	Enabled  bool                  `hcl:"enabled,optional" json:"enabled" yaml:"enabled"`
	Channels []NotificationChannel `hcl:"channel,block" json:"channel,omitempty" yaml:"channel,omitempty"`
}

// NotificationChannel is one delivery target.
type NotificationChannel struct {
	Name    string `hcl:"name,label" json:"name" yaml:"name"`
	Type    string `hcl:"type" json:"type" yaml:"type"`                                 // webhook, slack, discord, ntfy, email
	Level   string `hcl:"level,optional" json:"level,omitempty" yaml:"level,omitempty"` // info, warning, critical
	Enabled bool   `hcl:"enabled,optional" json:"enabled" yaml:"enabled"`

	// Email
	SMTPHost     string       `hcl:"smtp_host,optional" json:"smtp_host,omitempty" yaml:"smtp_host,omitempty"`
	SMTPPort     int          `hcl:"smtp_port,optional" json:"smtp_port,omitempty" yaml:"smtp_port,omitempty"`
	SMTPUser     string       `hcl:"smtp_user,optional" json:"smtp_user,omitempty" yaml:"smtp_user,omitempty"`
	SMTPPassword SecureString `hcl:"smtp_password,optional" json:"smtp_password,omitempty" yaml:"smtp_password,omitempty"`
	From         string       `hcl:"from,optional" json:"from,omitempty" yaml:"from,omitempty"`
	To           []string     `hcl:"to,optional" json:"to,omitempty" yaml:"to,omitempty"`

	// Webhook, Slack, Discord
	WebhookURL string `hcl:"webhook_url,optional" json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`

	// ntfy
	Server string       `hcl:"server,optional" json:"server,omitempty" yaml:"server,omitempty"`
	Topic  string       `hcl:"topic,optional" json:"topic,omitempty" yaml:"topic,omitempty"`
	Token  SecureString `hcl:"token,optional" json:"token,omitempty" yaml:"token,omitempty"`

	Headers map[string]string `hcl:"headers,optional" json:"headers,omitempty" yaml:"headers,omitempty"`
}

// DefaultConfig returns a config with every default filled in.
func DefaultConfig() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields. Absent blocks get their defaults;
// metrics are enabled only when the block is absent or says enabled = true.
func (c *Config) ApplyDefaults() {
	if c.SchemaVersion == "" {
		c.SchemaVersion = CurrentSchemaVersion
	}
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.Threshold == nil {
		t := DefaultThreshold
		c.Threshold = &t
	}
	if c.ProcFile == "" {
		c.ProcFile = DefaultProcFile
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Blocker == nil {
		c.Blocker = &BlockerConfig{}
	}
	if c.Blocker.Backend == "" {
		c.Blocker.Backend = DefaultBackend
	}
	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{Enabled: true}
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
	if c.Notifications == nil {
		c.Notifications = &NotificationsConfig{}
	}
	if c.Syslog == nil {
		s := logging.DefaultSyslogConfig()
		c.Syslog = &s
	}
}

// FanoutThreshold returns the configured threshold or DefaultThreshold.
func (c *Config) FanoutThreshold() int {
	if c.Threshold == nil {
		return DefaultThreshold
	}
	return *c.Threshold
}

// PollInterval parses Interval. Call Validate first.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0
	}
	return d
}

// LoggingConfig derives the logger settings.
func (c *Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	if lvl, err := logging.ParseLevel(c.LogLevel); err == nil {
		lc.Level = lvl
	}
	lc.JSON = c.LogJSON
	lc.NoColor = c.NoColor
	if c.Syslog != nil {
		lc.Syslog = *c.Syslog
	}
	return lc
}
