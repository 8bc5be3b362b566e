// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detector

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/scanwall/internal/clock"
	"grimm.is/scanwall/internal/firewall"
	"grimm.is/scanwall/internal/logging"
	"grimm.is/scanwall/internal/procnet"
)

type recordingBlocker struct {
	calls   []string
	outcome firewall.Outcome
	err     error
}

func (b *recordingBlocker) Block(ip string) (firewall.Outcome, error) {
	b.calls = append(b.calls, ip)
	return b.outcome, b.err
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError})
}

func newTestDetector(threshold int, b firewall.Blocker) *Detector {
	d := New(threshold, NewBlockRegistry(), b, quietLogger())
	d.Clock = clock.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	return d
}

func scanRecords(peer string, ports ...uint16) []procnet.ConnectionRecord {
	var out []procnet.ConnectionRecord
	for _, p := range ports {
		out = append(out, rec(peer, p, procnet.Outbound))
	}
	return out
}

func TestThresholdIsStrict(t *testing.T) {
	b := &recordingBlocker{}
	d := newTestDetector(3, b)
	w := NewWindowStore(6, nil)

	w.Insert(scanRecords("10.0.0.5", 22, 80, 443), false)
	assert.Empty(t, d.Evaluate(w))
	assert.Empty(t, b.calls)
	assert.False(t, d.Registry.Contains("10.0.0.5"))

	w.Insert(scanRecords("10.0.0.5", 8080), false)
	events := d.Evaluate(w)
	require.Len(t, events, 1)
	assert.Equal(t, "10.0.0.5", events[0].Peer)
	assert.Equal(t, []uint16{22, 80, 443, 8080}, events[0].Ports)

	// Flagged is terminal.
	w.Insert(scanRecords("10.0.0.5", 9000, 9001), false)
	assert.Empty(t, d.Evaluate(w))
	assert.Equal(t, []string{"10.0.0.5"}, b.calls)
}

func TestEventFields(t *testing.T) {
	b := &recordingBlocker{outcome: firewall.OutcomeApplied}
	d := newTestDetector(3, b)
	w := NewWindowStore(6, nil)
	w.Insert(scanRecords("10.0.0.5", 8080, 22, 443, 80), false)

	events := d.Evaluate(w)
	require.Len(t, events, 1)
	ev := events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, []uint16{22, 80, 443, 8080}, ev.Ports)
	assert.Equal(t, []string{
		"172.31.59.87:22",
		"172.31.59.87:443",
		"172.31.59.87:80",
		"172.31.59.87:8080",
	}, ev.Sockets)
	assert.Equal(t, "172.31.59.87", ev.LocalIP)
	assert.Equal(t, firewall.OutcomeApplied, ev.Outcome)
	assert.NoError(t, ev.BlockErr)
	assert.Equal(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), ev.DetectedAt)
}

func TestFanOutAcrossSnapshots(t *testing.T) {
	b := &recordingBlocker{}
	d := newTestDetector(3, b)
	w := NewWindowStore(6, nil)

	for _, p := range []uint16{22, 80, 443} {
		w.Insert(scanRecords("10.0.0.7", p), false)
		assert.Empty(t, d.Evaluate(w))
	}
	w.Insert(scanRecords("10.0.0.7", 25), false)
	require.Len(t, d.Evaluate(w), 1)
}

func TestDetectorStructLiteral(t *testing.T) {
	d := &Detector{Threshold: 3, Registry: NewBlockRegistry()}
	w := NewWindowStore(6, nil)
	w.Insert(scanRecords("10.0.0.5", 22, 80, 443, 8080), false)

	var events []ScanEvent
	require.NotPanics(t, func() { events = d.Evaluate(w) })
	require.Len(t, events, 1)
	assert.Equal(t, firewall.OutcomeToolMissing, events[0].Outcome)
	assert.False(t, events[0].DetectedAt.IsZero())
	assert.True(t, d.Registry.Contains("10.0.0.5"))
}

func TestZeroThresholdFlagsSingleSocket(t *testing.T) {
	b := &recordingBlocker{}
	d := newTestDetector(0, b)
	w := NewWindowStore(6, nil)
	w.Insert(scanRecords("10.0.0.9", 22), false)

	events := d.Evaluate(w)
	require.Len(t, events, 1)
	assert.Equal(t, "10.0.0.9", events[0].Peer)
	assert.Equal(t, []uint16{22}, events[0].Ports)
}

func TestEvictedSocketsStopCounting(t *testing.T) {
	b := &recordingBlocker{}
	d := newTestDetector(3, b)
	w := NewWindowStore(2, nil)

	w.Insert(scanRecords("10.0.0.8", 22, 80), false)
	w.Insert(scanRecords("10.0.0.8", 443), false)
	w.Insert(scanRecords("10.0.0.8", 25), w.Full()) // drops 22, 80
	assert.Empty(t, d.Evaluate(w))
}

func TestBlockFailureStillFlagsOnce(t *testing.T) {
	b := &recordingBlocker{outcome: firewall.OutcomeExecFailed, err: fmt.Errorf("exit status 1")}
	d := newTestDetector(3, b)
	w := NewWindowStore(6, nil)
	w.Insert(scanRecords("10.0.0.5", 1, 2, 3, 4), false)

	events := d.Evaluate(w)
	require.Len(t, events, 1)
	assert.Equal(t, firewall.OutcomeExecFailed, events[0].Outcome)
	assert.Error(t, events[0].BlockErr)
	assert.True(t, d.Registry.Contains("10.0.0.5"))

	assert.Empty(t, d.Evaluate(w))
	assert.Len(t, b.calls, 1)
}

func TestRegistryUpdatedBeforeBlock(t *testing.T) {
	reg := NewBlockRegistry()
	var sawFlagged bool
	b := blockFunc(func(ip string) (firewall.Outcome, error) {
		sawFlagged = reg.Contains(ip)
		return firewall.OutcomeApplied, nil
	})
	d := New(3, reg, b, quietLogger())
	w := NewWindowStore(6, nil)
	w.Insert(scanRecords("10.0.0.5", 1, 2, 3, 4), false)

	require.Len(t, d.Evaluate(w), 1)
	assert.True(t, sawFlagged)
}

func TestPreflaggedPeerIgnored(t *testing.T) {
	b := &recordingBlocker{}
	d := newTestDetector(3, b)
	d.Registry.Add("10.0.0.5")
	w := NewWindowStore(6, nil)
	w.Insert(scanRecords("10.0.0.5", 1, 2, 3, 4), false)

	assert.Empty(t, d.Evaluate(w))
	assert.Empty(t, b.calls)
}

func TestPeersVisitedInSortedOrder(t *testing.T) {
	b := &recordingBlocker{}
	d := newTestDetector(1, b)
	w := NewWindowStore(6, nil)
	var recs []procnet.ConnectionRecord
	for _, peer := range []string{"10.0.0.9", "10.0.0.10", "10.0.0.1"} {
		recs = append(recs, scanRecords(peer, 22, 80)...)
	}
	w.Insert(recs, false)

	events := d.Evaluate(w)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.10", "10.0.0.9"}, b.calls)
}

func TestNilBlocker(t *testing.T) {
	d := newTestDetector(0, nil)
	w := NewWindowStore(1, nil)
	w.Insert(scanRecords("10.0.0.5", 22), false)

	events := d.Evaluate(w)
	require.Len(t, events, 1)
	assert.Equal(t, firewall.OutcomeToolMissing, events[0].Outcome)
}

func TestEndToEndScanScenario(t *testing.T) {
	b := &recordingBlocker{outcome: firewall.OutcomeApplied}
	d := newTestDetector(DefaultThreshold, b)
	w := NewWindowStore(DefaultWindowSize, nil)

	var all []ScanEvent
	for cycle := 0; cycle < 6; cycle++ {
		lines := []string{
			procLine("0500000A:9C41", "573B1FAC:0016"),
			procLine("0500000A:9C42", "573B1FAC:0050"),
			procLine("0500000A:9C43", "573B1FAC:01BB"),
			procLine("0500000A:9C44", "573B1FAC:1F90"),
		}
		records, err := procnet.Decode(lines, d.Registry)
		require.NoError(t, err)
		if cycle == 0 {
			require.Len(t, records, 4)
		} else {
			assert.Empty(t, records, "blocked peer must be filtered by the decoder")
		}

		w.Insert(records, w.Len() >= w.Capacity())
		events := d.Evaluate(w)
		if cycle == 0 {
			require.Len(t, events, 1)
			assert.Equal(t, "10.0.0.5", events[0].Peer)
			assert.Equal(t, []uint16{22, 80, 443, 8080}, events[0].Ports)
		}
		all = append(all, events...)
	}
	assert.Len(t, all, 1)
	assert.Equal(t, []string{"10.0.0.5"}, b.calls)
}

type blockFunc func(ip string) (firewall.Outcome, error)

func (f blockFunc) Block(ip string) (firewall.Outcome, error) { return f(ip) }

func procLine(peer, local string) string {
	return "  1: " + local + " " + peer + " 01 00000000:00000000 00:00000000 00000000     0        0 1 1 ffff 20 4 29 10 -1"
}
