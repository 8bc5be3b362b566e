// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/errors"
	"grimm.is/scanwall/internal/render"
)

const sampleTable = "../internal/procnet/testdata/tcp.txt"

func TestRunDecodeJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunDecode(context.Background(), sampleTable, &out, true))

	var got []recordView
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 5)
	assert.Equal(t, recordView{Local: "172.31.59.87:22", Peer: "172.31.52.219:51362", Direction: "outbound"}, got[0])
	assert.Equal(t, "inbound", got[4].Direction)
}

func TestRunDecodeConsole(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunDecode(context.Background(), sampleTable, &out, false))
	assert.Contains(t, out.String(), render.ReasonNewConnection)
	assert.Contains(t, out.String(), "5 established connection(s)")
}

func TestRunDecodeMissingFile(t *testing.T) {
	err := RunDecode(context.Background(), filepath.Join(t.TempDir(), "tcp"), &bytes.Buffer{}, false)
	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunConfigValidate(t *testing.T) {
	path := writeConfig(t, "scanwall.hcl", `
interval  = "5s"
threshold = 4
blocker {
  backend = "memory"
}
`)
	var out bytes.Buffer
	require.NoError(t, RunConfigValidate(path, &out))
	assert.Contains(t, out.String(), "is valid")
	assert.Contains(t, out.String(), "5s")
	assert.Contains(t, out.String(), "memory")
}

func TestRunConfigValidateReportsErrors(t *testing.T) {
	path := writeConfig(t, "scanwall.hcl", `
interval  = "soon"
threshold = -1
`)
	var out bytes.Buffer
	err := RunConfigValidate(path, &out)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
	assert.Contains(t, out.String(), "is invalid")
}

func TestRunConfigSampleLoads(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunConfigSample(&out))

	path := writeConfig(t, "sample.hcl", out.String())
	require.NoError(t, RunConfigValidate(path, &bytes.Buffer{}))
}

func intPtr(v int) *int { return &v }

func TestRunOptionsApply(t *testing.T) {
	cfg := config.DefaultConfig()
	RunOptions{
		ProcFile:      "/tmp/tcp",
		Interval:      2 * time.Second,
		WindowSize:    4,
		Threshold:     intPtr(9),
		Backend:       "nftables",
		MetricsListen: "127.0.0.1:9100",
		DryRun:        true,
	}.apply(cfg)

	assert.Equal(t, "/tmp/tcp", cfg.ProcFile)
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 4, cfg.WindowSize)
	assert.Equal(t, 9, cfg.FanoutThreshold())
	assert.Equal(t, "nftables", cfg.Blocker.Backend)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Listen)
	assert.True(t, cfg.DryRun)
	require.NoError(t, cfg.Validate())

	RunOptions{NoMetrics: true}.apply(cfg)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9, cfg.FanoutThreshold())

	RunOptions{Threshold: intPtr(0)}.apply(cfg)
	assert.Equal(t, 0, cfg.FanoutThreshold())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv("SCANWALL_CONFIG_DIR", t.TempDir())
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultThreshold, cfg.FanoutThreshold())

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestChildArgs(t *testing.T) {
	args := childArgs(RunOptions{Threshold: intPtr(5), DryRun: true, Interval: time.Minute})
	assert.Equal(t, []string{"run", "-pidfile", "-interval", "1m0s", "-threshold", "5", "-dry-run", "-no-color"}, args)
}

func TestPIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "scanwall.pid")

	require.NoError(t, writePIDFile(path))
	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	removePIDFile(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = readPIDFile(path)
	assert.Equal(t, errors.KindNotFound, errors.GetKind(err))
}

func TestPIDFileStaleAndGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanwall.pid")

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err := readPIDFile(path)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	// A garbage file does not block a fresh start.
	require.NoError(t, writePIDFile(path))
	pid, err := readPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strconv.Itoa(pid))
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	RunVersion(&out)
	assert.Contains(t, out.String(), "scanwall")
}
