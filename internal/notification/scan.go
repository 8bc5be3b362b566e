// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package notification

import (
	"fmt"
	"strconv"
	"strings"

	"grimm.is/scanwall/internal/detector"
)

// ForScan builds the alert for a flagged peer. host names the reporting machine.
func ForScan(ev detector.ScanEvent, host string) Notification {
	level := LevelWarning
	if ev.Outcome.Blocked() {
		level = LevelCritical
	}

	ports := make([]string, len(ev.Ports))
	for i, p := range ev.Ports {
		ports[i] = strconv.Itoa(int(p))
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "%s reached %d ports on %s (%s).\n", ev.Peer, len(ev.Ports), ev.LocalIP, strings.Join(ports, ","))
	fmt.Fprintf(&msg, "Block: %s", ev.Outcome)
	if ev.BlockErr != nil {
		fmt.Fprintf(&msg, " (%v)", ev.BlockErr)
	}

	data := map[string]any{
		"id":       ev.ID,
		"peer":     ev.Peer,
		"local_ip": ev.LocalIP,
		"ports":    ev.Ports,
		"outcome":  ev.Outcome.String(),
		"host":     host,
	}
	return Notification{
		Title:     fmt.Sprintf("Port scan from %s on %s", ev.Peer, host),
		Message:   msg.String(),
		Level:     level,
		Timestamp: ev.DetectedAt,
		Data:      data,
	}
}
