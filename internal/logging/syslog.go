// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"fmt"
	"io"
	"log/syslog"
	"net"
	"strconv"

	"grimm.is/scanwall/internal/brand"
)

// SyslogConfig configures remote syslog forwarding.
type SyslogConfig struct {
	Enabled  bool   `hcl:"enabled,optional" json:"enabled" yaml:"enabled"`
	Host     string `hcl:"host,optional" json:"host" yaml:"host"`
	Port     int    `hcl:"port,optional" json:"port" yaml:"port"`
	Protocol string `hcl:"protocol,optional" json:"protocol" yaml:"protocol"`
	Tag      string `hcl:"tag,optional" json:"tag" yaml:"tag"`
	Facility int    `hcl:"facility,optional" json:"facility" yaml:"facility"`
}

// DefaultSyslogConfig returns a disabled UDP/514 config in the user facility.
func DefaultSyslogConfig() SyslogConfig {
	return SyslogConfig{
		Port:     514,
		Protocol: "udp",
		Tag:      brand.LowerName,
		Facility: 1,
	}
}

// NewSyslogWriter dials the configured syslog server.
func NewSyslogWriter(cfg SyslogConfig) (io.Writer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("syslog host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 514
	}
	if cfg.Protocol == "" {
		cfg.Protocol = "udp"
	}
	if cfg.Tag == "" {
		cfg.Tag = brand.LowerName
	}
	if cfg.Facility < 0 || cfg.Facility > 23 {
		return nil, fmt.Errorf("syslog facility %d out of range", cfg.Facility)
	}

	priority := syslog.Priority(cfg.Facility<<3) | syslog.LOG_INFO
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	w, err := syslog.Dial(cfg.Protocol, addr, priority, cfg.Tag)
	if err != nil {
		return nil, fmt.Errorf("dial syslog %s: %w", addr, err)
	}
	return w, nil
}
