// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package procnet

import (
	"strconv"
	"strings"

	"grimm.is/scanwall/internal/errors"
)

// ErrInvalidTimer marks an ESTABLISHED row whose timer column is unreadable.
var ErrInvalidTimer = errors.New(errors.KindValidation, "invalid timer field")

const (
	// minFields is the number of columns a /proc/net/tcp data row carries
	// up to and including the inode-related tail we never read but require.
	minFields = 15

	fieldLocal = 1
	fieldPeer  = 2
	fieldState = 3
	fieldTimer = 5

	stateEstablished = "01"

	// Local ports above this are treated as ephemeral.
	ephemeralFloor = 1024
)

// Direction is the inferred initiator side of a connection.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Arrow renders the direction the way console lines show it.
func (d Direction) Arrow() string {
	if d == Inbound {
		return "<-"
	}
	return "->"
}

// ConnectionRecord is one established, non-loopback, non-blocked connection.
type ConnectionRecord struct {
	Local     Endpoint
	Peer      Endpoint
	Direction Direction
}

// Lookup answers whether a peer IP has already been flagged. A nil
// *detector.BlockRegistry is a valid, empty Lookup.
type Lookup interface {
	Contains(ip string) bool
}

// Decode turns raw table rows into connection records, preserving order.
//
// Rows with too few columns or a state other than ESTABLISHED are skipped.
// Loopback peers and peers in blocked are dropped. Any other malformed
// field (local or peer address, timer) aborts the whole call.
// blocked may be nil.
func Decode(lines []string, blocked Lookup) ([]ConnectionRecord, error) {
	var records []ConnectionRecord
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < minFields || fields[fieldState] != stateEstablished {
			continue
		}

		local, err := DecodeNetAddr(fields[fieldLocal])
		if err != nil {
			return nil, err
		}
		peer, err := DecodeNetAddr(fields[fieldPeer])
		if err != nil {
			return nil, err
		}

		if isLoopbackIP(peer.IP) {
			continue
		}
		if blocked != nil && blocked.Contains(peer.IP) {
			continue
		}

		active, ok := timerActive(fields[fieldTimer])
		if !ok {
			return nil, invalid(ErrInvalidTimer, fields[fieldTimer])
		}

		dir := Outbound
		if local.Port > ephemeralFloor && active {
			dir = Inbound
		}
		records = append(records, ConnectionRecord{Local: local, Peer: peer, Direction: dir})
	}
	return records, nil
}

// timerActive reads the "tr:tm->when" column; ok is false when it is malformed.
func timerActive(field string) (active bool, ok bool) {
	tr, _, found := strings.Cut(field, ":")
	if !found {
		return false, false
	}
	v, err := strconv.ParseUint(tr, 16, 8)
	if err != nil {
		return false, false
	}
	return v != 0, true
}
