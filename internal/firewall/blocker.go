// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package firewall applies drop rules for flagged peers.
//
// Three backends implement Blocker: iptables (the classic INPUT chain rule),
// nftables (a dedicated table with a set of blocked addresses) and an
// in-memory backend used for dry runs.
package firewall

import (
	"net"
	"strings"

	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/logging"
)

// Outcome is the result of a single block attempt.
type Outcome int

const (
	// OutcomeApplied means a new drop rule now covers the peer.
	OutcomeApplied Outcome = iota
	// OutcomeAlready means a matching rule existed before the call.
	OutcomeAlready
	// OutcomeToolMissing means the firewall backend is not available on this host.
	OutcomeToolMissing
	// OutcomeExecFailed means the backend was reached but rejected the change.
	OutcomeExecFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlready:
		return "already"
	case OutcomeToolMissing:
		return "tool_missing"
	case OutcomeExecFailed:
		return "exec_failed"
	default:
		return "unknown"
	}
}

// Blocked reports whether the peer is covered by a drop rule after the call.
func (o Outcome) Blocked() bool {
	return o == OutcomeApplied || o == OutcomeAlready
}

// Outcomes lists every outcome, in declaration order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeApplied, OutcomeAlready, OutcomeToolMissing, OutcomeExecFailed}
}

// Blocker drops all inbound traffic from an IPv4 address.
// The error is non-nil exactly when the outcome is ToolMissing or ExecFailed.
type Blocker interface {
	Block(ip string) (Outcome, error)
}

var (
	ErrToolMissing = errors.New(errors.KindUnavailable, "firewall tool unavailable")
	ErrExecFailed  = errors.New(errors.KindInternal, "firewall update failed")
	ErrInvalidIP   = errors.New(errors.KindValidation, "invalid IPv4 address")
)

// Backend names accepted in configuration.
const (
	BackendIPTables = "iptables"
	BackendNFTables = "nftables"
	BackendMemory   = "memory"
)

// New builds the backend named in cfg.
func New(cfg config.BlockerConfig, logger *logging.Logger) (Blocker, error) {
	if logger == nil {
		logger = logging.WithComponent("firewall")
	}
	switch strings.ToLower(cfg.Backend) {
	case "", BackendIPTables:
		return NewIPTables(cfg.Table, cfg.Chain, logger), nil
	case BackendNFTables:
		return NewNFTables(cfg.Table, logger), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Attr(errors.Errorf(errors.KindValidation, "unknown blocker backend %q", cfg.Backend), "backend", cfg.Backend)
	}
}

func parseIPv4(ip string) (net.IP, error) {
	parsed := net.ParseIP(ip).To4()
	if parsed == nil {
		return nil, errors.Attr(errors.Wrapf(ErrInvalidIP, errors.KindValidation, "block %q", ip), "ip", ip)
	}
	return parsed, nil
}

func toolMissing(backend string, err error) (Outcome, error) {
	return OutcomeToolMissing, errors.Attr(errors.Wrapf(ErrToolMissing, errors.KindUnavailable, "%s: %v", backend, err), "backend", backend)
}

func execFailed(backend, ip string, err error) (Outcome, error) {
	wrapped := errors.Wrapf(ErrExecFailed, errors.KindInternal, "%s: block %s: %v", backend, ip, err)
	return OutcomeExecFailed, errors.Attr(errors.Attr(wrapped, "backend", backend), "ip", ip)
}
