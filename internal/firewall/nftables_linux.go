// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package firewall

import (
	"net"
	"sync"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"grimm.is/scanwall/internal/brand"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/logging"
)

const (
	nftSetName   = "blocked"
	nftChainName = "input"
)

// NFTables keeps blocked peers in a set matched by one drop rule:
//
//	table ip scanwall {
//		set blocked { type ipv4_addr; }
//		chain input { type filter hook input priority filter; ip saddr @blocked drop }
//	}
type NFTables struct {
	tableName string
	logger    *logging.Logger

	mu      sync.Mutex
	dial    func() (*nftables.Conn, error)
	table   *nftables.Table
	set     *nftables.Set
	prepped bool
}

// NewNFTables returns an nftables blocker owning tableName (default "scanwall").
func NewNFTables(tableName string, logger *logging.Logger) *NFTables {
	if tableName == "" {
		tableName = brand.LowerName
	}
	if logger == nil {
		logger = logging.WithComponent("firewall")
	}
	return &NFTables{
		tableName: tableName,
		logger:    logger.With("backend", BackendNFTables),
		dial:      func() (*nftables.Conn, error) { return nftables.New() },
	}
}

// prepare creates the table, set, chain and drop rule if missing.
func (n *NFTables) prepare(conn *nftables.Conn) error {
	table := conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   n.tableName,
	})
	set := &nftables.Set{
		Table:   table,
		Name:    nftSetName,
		KeyType: nftables.TypeIPAddr,
	}
	if err := conn.AddSet(set, nil); err != nil {
		return err
	}
	policy := nftables.ChainPolicyAccept
	chain := conn.AddChain(&nftables.Chain{
		Name:     nftChainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
		Policy:   &policy,
	})
	if err := conn.Flush(); err != nil {
		return err
	}

	rules, err := conn.GetRules(table, chain)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		conn.AddRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: []expr.Any{
				// ip saddr
				&expr.Payload{
					DestRegister: 1,
					Base:         expr.PayloadBaseNetworkHeader,
					Offset:       12,
					Len:          4,
				},
				&expr.Lookup{
					SourceRegister: 1,
					SetName:        set.Name,
					SetID:          set.ID,
				},
				&expr.Verdict{Kind: expr.VerdictDrop},
			},
		})
		if err := conn.Flush(); err != nil {
			return err
		}
		n.logger.Info("nftables drop chain installed", "table", n.tableName)
	}

	n.table = table
	n.set = set
	n.prepped = true
	return nil
}

func (n *NFTables) contains(conn *nftables.Conn, addr net.IP) (bool, error) {
	elems, err := conn.GetSetElements(n.set)
	if err != nil {
		return false, err
	}
	for _, e := range elems {
		if net.IP(e.Key).Equal(addr) {
			return true, nil
		}
	}
	return false, nil
}

func (n *NFTables) Block(ip string) (Outcome, error) {
	addr, err := parseIPv4(ip)
	if err != nil {
		return execFailed(BackendNFTables, ip, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	conn, err := n.dial()
	if err != nil {
		return toolMissing(BackendNFTables, err)
	}

	if !n.prepped {
		if err := n.prepare(conn); err != nil {
			if unsupported(err) {
				return toolMissing(BackendNFTables, err)
			}
			return execFailed(BackendNFTables, ip, err)
		}
	}

	present, err := n.contains(conn, addr)
	if err != nil {
		// The table may have been removed behind our back.
		n.prepped = false
		return execFailed(BackendNFTables, ip, err)
	}
	if present {
		return OutcomeAlready, nil
	}

	if err := conn.SetAddElements(n.set, []nftables.SetElement{{Key: addr}}); err != nil {
		return execFailed(BackendNFTables, ip, err)
	}
	if err := conn.Flush(); err != nil {
		n.prepped = false
		return execFailed(BackendNFTables, ip, err)
	}
	n.logger.Info("address added to nftables set", "ip", ip, "table", n.tableName, "set", nftSetName)
	return OutcomeApplied, nil
}

// unsupported reports netlink errors meaning nf_tables is not usable at all.
func unsupported(err error) bool {
	return errors.Is(err, unix.EPROTONOSUPPORT) || errors.Is(err, unix.EAFNOSUPPORT) || errors.Is(err, unix.ENOENT)
}
