// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"sync"

	"github.com/coreos/go-iptables/iptables"

	"grimm.is/scanwall/internal/logging"
)

const (
	defaultIPTablesTable = "filter"
	defaultIPTablesChain = "INPUT"
)

// ruleRunner is the subset of *iptables.IPTables the blocker needs.
type ruleRunner interface {
	Exists(table, chain string, rulespec ...string) (bool, error)
	Insert(table, chain string, pos int, rulespec ...string) error
}

// IPTables inserts "-s <ip>/32 -j DROP" at the top of a chain.
type IPTables struct {
	table  string
	chain  string
	logger *logging.Logger

	mu        sync.Mutex
	runner    ruleRunner
	newRunner func() (ruleRunner, error)
}

// NewIPTables returns an iptables blocker. Empty table or chain select filter/INPUT.
// The iptables binary is looked up lazily on the first Block call.
func NewIPTables(table, chain string, logger *logging.Logger) *IPTables {
	if table == "" {
		table = defaultIPTablesTable
	}
	if chain == "" {
		chain = defaultIPTablesChain
	}
	if logger == nil {
		logger = logging.WithComponent("firewall")
	}
	return &IPTables{
		table:  table,
		chain:  chain,
		logger: logger.With("backend", BackendIPTables),
		newRunner: func() (ruleRunner, error) {
			return iptables.NewWithProtocol(iptables.ProtocolIPv4)
		},
	}
}

func (t *IPTables) getRunner() (ruleRunner, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runner != nil {
		return t.runner, nil
	}
	r, err := t.newRunner()
	if err != nil {
		return nil, err
	}
	t.runner = r
	return r, nil
}

func (t *IPTables) Block(ip string) (Outcome, error) {
	addr, err := parseIPv4(ip)
	if err != nil {
		return execFailed(BackendIPTables, ip, err)
	}

	r, err := t.getRunner()
	if err != nil {
		return toolMissing(BackendIPTables, err)
	}

	rule := []string{"-s", addr.String() + "/32", "-j", "DROP"}

	exists, err := r.Exists(t.table, t.chain, rule...)
	if err != nil {
		return execFailed(BackendIPTables, ip, err)
	}
	if exists {
		t.logger.Debug("drop rule already present", "ip", ip, "chain", t.chain)
		return OutcomeAlready, nil
	}

	if err := r.Insert(t.table, t.chain, 1, rule...); err != nil {
		return execFailed(BackendIPTables, ip, err)
	}
	t.logger.Info("drop rule inserted", "ip", ip, "table", t.table, "chain", t.chain)
	return OutcomeApplied, nil
}
