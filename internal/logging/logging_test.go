// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, JSON: true})

	l.WithComponent("detector").
		WithError(errors.New("iptables missing")).
		WithFields(map[string]any{"peer": "10.0.0.5"}).
		Warn("block failed")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "block failed", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "detector", rec["component"])
	assert.Equal(t, "iptables missing", rec["error"])
	assert.Equal(t, "10.0.0.5", rec["peer"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf, JSON: true})

	l.Info("dropped")
	assert.Zero(t, buf.Len())
	assert.False(t, l.Enabled(LevelInfo))
	assert.True(t, l.Enabled(LevelError))

	l.Error("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestTextLoggerNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})
	l.Info("cycle complete", "records", 4)

	out := buf.String()
	assert.Contains(t, out, "cycle complete")
	assert.Contains(t, out, "records=4")
	assert.NotContains(t, out, "\x1b[")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(Config{Level: LevelInfo, Output: &buf, JSON: true}))
	WithComponent("monitor").Info("started")
	assert.Contains(t, buf.String(), `"component":"monitor"`)

	SetDefault(nil)
	assert.NotNil(t, Default())
}
