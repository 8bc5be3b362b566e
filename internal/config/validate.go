// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package config

import (
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/logging"
)

var validBackends = map[string]bool{"iptables": true, "nftables": true, "memory": true}

var validChannelTypes = map[string]bool{
	"webhook": true, "slack": true, "discord": true, "ntfy": true, "email": true,
}

var validLevels = map[string]bool{"": true, "info": true, "warning": true, "critical": true}

// Validate reports every problem found, combined into one error.
func (c *Config) Validate() error {
	var errs error
	add := func(field, format string, args ...any) {
		errs = errors.Append(errs, errors.Attr(errors.Errorf(errors.KindValidation, field+": "+format, args...), "field", field))
	}

	if d, err := time.ParseDuration(c.Interval); err != nil {
		add("interval", "invalid duration %q", c.Interval)
	} else if d < 100*time.Millisecond {
		add("interval", "must be at least 100ms, got %s", d)
	}
	if c.WindowSize < 1 {
		add("window_size", "must be positive, got %d", c.WindowSize)
	}
	if c.Threshold != nil && *c.Threshold < 0 {
		add("threshold", "must not be negative, got %d", *c.Threshold)
	}
	if c.ProcFile == "" {
		add("proc_file", "must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		add("log_level", "%v", err)
	}

	for _, entry := range c.Allowlist {
		if _, err := ParseAllowEntry(entry); err != nil {
			add("allowlist", "invalid entry %q", entry)
		}
	}

	if c.Blocker != nil && !validBackends[strings.ToLower(c.Blocker.Backend)] {
		add("blocker.backend", "unknown backend %q", c.Blocker.Backend)
	}

	if c.Metrics != nil && c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			add("metrics.listen", "invalid address %q", c.Metrics.Listen)
		}
	}

	if c.Notifications != nil {
		seen := make(map[string]bool)
		for _, ch := range c.Notifications.Channels {
			prefix := "notifications.channel." + ch.Name
			if seen[ch.Name] {
				add(prefix, "duplicate channel name")
			}
			seen[ch.Name] = true

			typ := strings.ToLower(ch.Type)
			if !validChannelTypes[typ] {
				add(prefix+".type", "unknown type %q", ch.Type)
			}
			if !validLevels[strings.ToLower(ch.Level)] {
				add(prefix+".level", "unknown level %q", ch.Level)
			}
			if !c.Notifications.Enabled || !ch.Enabled {
				continue
			}
			switch typ {
			case "webhook", "slack", "discord":
				if u, err := url.Parse(ch.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
					add(prefix+".webhook_url", "must be an absolute URL")
				}
			case "ntfy":
				if ch.Topic == "" {
					add(prefix+".topic", "required for ntfy")
				}
			case "email":
				if ch.SMTPHost == "" || len(ch.To) == 0 {
					add(prefix, "email requires smtp_host and to")
				}
			}
		}
	}

	return errs
}

// ParseAllowEntry accepts a CIDR or a bare IPv4 address.
func ParseAllowEntry(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(a, a.BitLen()), nil
}
