// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/scanwall/internal/firewall"
	"grimm.is/scanwall/internal/logging"
)

func TestObserveCycle(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveCycle(5, 2, 1, 3*time.Millisecond)
	m.ObserveCycle(4, 0, 2, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Established))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NewConnections))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Snapshots))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PollDuration))
}

func TestObserveBlock(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveBlock(firewall.OutcomeApplied)
	m.ObserveBlock(firewall.OutcomeToolMissing)
	m.ObserveBlock(firewall.OutcomeToolMissing)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ScansDetected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Blocks.WithLabelValues("applied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Blocks.WithLabelValues("tool_missing")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Blocks.WithLabelValues("exec_failed")))
	assert.Equal(t, 4, testutil.CollectAndCount(m.Blocks))
}

func TestBlockedPeersGauge(t *testing.T) {
	n := 0
	m := NewMetrics(func() int { return n })
	n = 7
	assert.Equal(t, 7.0, testutil.ToFloat64(m.BlockedPeers))
}

func TestRegistryExposition(t *testing.T) {
	m := NewMetrics(func() int { return 1 })
	m.DecodeErrors.Inc()
	reg := NewRegistry(m)

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP scanwall_decode_errors_total Poll cycles aborted by a malformed connection table
# TYPE scanwall_decode_errors_total counter
scanwall_decode_errors_total 1
# HELP scanwall_blocked_peers Peers flagged since process start
# TYPE scanwall_blocked_peers gauge
scanwall_blocked_peers 1
`), "scanwall_decode_errors_total", "scanwall_blocked_peers")
	require.NoError(t, err)
}

func TestServer(t *testing.T) {
	m := NewMetrics(nil)
	m.ScansDetected.Inc()
	s := NewServer("127.0.0.1:0", NewRegistry(m), logging.New(logging.Config{Level: logging.LevelError}))
	require.NoError(t, s.Start())
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "scanwall_scans_detected_total 1")

	health, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestServerBadAddress(t *testing.T) {
	s := NewServer("256.0.0.1:99999", NewRegistry(NewMetrics(nil)), nil)
	assert.Error(t, s.Start())
}
