// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package detector flags peers whose fan-out across a window of
// connection snapshots exceeds a threshold, and blocks them once.
package detector

import (
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"grimm.is/scanwall/internal/clock"
	"grimm.is/scanwall/internal/firewall"
	"grimm.is/scanwall/internal/logging"
)

// DefaultThreshold flags a peer on its fourth distinct local socket.
const DefaultThreshold = 3

// ScanEvent describes one flagged peer.
type ScanEvent struct {
	ID         string
	Peer       string
	Ports      []uint16 // distinct local ports, ascending
	Sockets    []string // distinct local sockets, sorted
	LocalIP    string   // IP of the first socket in Sockets
	Outcome    firewall.Outcome
	BlockErr   error
	DetectedAt time.Time
}

// PeerPortMap maps a peer IP to the set of local sockets it reached.
type PeerPortMap map[string]map[string]struct{}

// Aggregate folds every retained snapshot into a PeerPortMap.
func Aggregate(snaps []Snapshot) PeerPortMap {
	peers := make(PeerPortMap)
	for _, s := range snaps {
		for p := range s.Pairs {
			set, ok := peers[p.PeerIP]
			if !ok {
				set = make(map[string]struct{})
				peers[p.PeerIP] = set
			}
			set[p.Local] = struct{}{}
		}
	}
	return peers
}

// Detector evaluates a WindowStore against a fan-out threshold.
// A zero Threshold flags any peer with at least one socket. Clock, Logger
// and Blocker may be left nil.
type Detector struct {
	Threshold int
	Registry  *BlockRegistry
	Blocker   firewall.Blocker
	Clock     clock.Clock
	Logger    *logging.Logger
}

// New returns a Detector. A nil logger uses the default component logger.
func New(threshold int, registry *BlockRegistry, blocker firewall.Blocker, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.WithComponent("detector")
	}
	return &Detector{
		Threshold: threshold,
		Registry:  registry,
		Blocker:   blocker,
		Clock:     clock.Default(),
		Logger:    logger,
	}
}

// Evaluate flags every peer with more than Threshold distinct local sockets
// that is not yet in the registry. Each flagged peer is added to the registry
// before its block is attempted, so a failed block is never retried.
// Peers are visited in sorted order.
func (d *Detector) Evaluate(store *WindowStore) []ScanEvent {
	peers := Aggregate(store.Snapshots())

	ips := make([]string, 0, len(peers))
	for ip, sockets := range peers {
		if len(sockets) > d.Threshold {
			ips = append(ips, ip)
		}
	}
	sort.Strings(ips)

	var events []ScanEvent
	for _, ip := range ips {
		if !d.Registry.Add(ip) {
			continue
		}

		ev := newEvent(ip, peers[ip], d.now())
		if d.Blocker != nil {
			ev.Outcome, ev.BlockErr = d.Blocker.Block(ip)
		} else {
			ev.Outcome = firewall.OutcomeToolMissing
		}
		d.logOutcome(ev)
		events = append(events, ev)
	}
	return events
}

func (d *Detector) now() time.Time {
	if d.Clock == nil {
		return clock.Now()
	}
	return d.Clock.Now()
}

func (d *Detector) logger() *logging.Logger {
	if d.Logger == nil {
		return logging.WithComponent("detector")
	}
	return d.Logger
}

func (d *Detector) logOutcome(ev ScanEvent) {
	l := d.logger().With("peer", ev.Peer, "ports", len(ev.Ports), "outcome", ev.Outcome.String())
	switch ev.Outcome {
	case firewall.OutcomeApplied, firewall.OutcomeAlready:
		l.Info("port scan blocked")
	default:
		l.WithError(ev.BlockErr).Warn("port scan detected, block not applied")
	}
}

func newEvent(ip string, sockets map[string]struct{}, at time.Time) ScanEvent {
	ev := ScanEvent{
		ID:         uuid.NewString(),
		Peer:       ip,
		DetectedAt: at,
	}
	ports := make(map[uint16]struct{}, len(sockets))
	for s := range sockets {
		ev.Sockets = append(ev.Sockets, s)
		if _, p, err := net.SplitHostPort(s); err == nil {
			if n, err := strconv.ParseUint(p, 10, 16); err == nil {
				ports[uint16(n)] = struct{}{}
			}
		}
	}
	sort.Strings(ev.Sockets)
	for p := range ports {
		ev.Ports = append(ev.Ports, p)
	}
	sort.Slice(ev.Ports, func(i, j int) bool { return ev.Ports[i] < ev.Ports[j] })
	if len(ev.Sockets) > 0 {
		ev.LocalIP, _, _ = net.SplitHostPort(ev.Sockets[0])
	}
	return ev
}
