// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/scanwall/internal/config"
	"grimm.is/scanwall/internal/errors"
)

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "applied", OutcomeApplied.String())
	assert.Equal(t, "already", OutcomeAlready.String())
	assert.Equal(t, "tool_missing", OutcomeToolMissing.String())
	assert.Equal(t, "exec_failed", OutcomeExecFailed.String())
	assert.Len(t, Outcomes(), 4)

	assert.True(t, OutcomeApplied.Blocked())
	assert.True(t, OutcomeAlready.Blocked())
	assert.False(t, OutcomeToolMissing.Blocked())
	assert.False(t, OutcomeExecFailed.Blocked())
}

func TestNewBackends(t *testing.T) {
	b, err := New(config.BlockerConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = New(config.BlockerConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &IPTables{}, b)

	b, err = New(config.BlockerConfig{Backend: "NFTables"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &NFTables{}, b)

	_, err = New(config.BlockerConfig{Backend: "pf"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestMemoryBlocker(t *testing.T) {
	m := NewMemory()

	out, err := m.Block("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, out)

	out, err = m.Block("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlready, out)

	_, _ = m.Block("10.0.0.1")
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.5"}, m.Blocked())
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.5", "10.0.0.1"}, m.Calls())
	assert.True(t, m.IsBlocked("10.0.0.5"))
	assert.False(t, m.IsBlocked("10.0.0.9"))
}

func TestMemoryBlockerRejectsInvalid(t *testing.T) {
	m := NewMemory()
	out, err := m.Block("fe80::1")
	assert.Equal(t, OutcomeExecFailed, out)
	assert.True(t, errors.Is(err, ErrExecFailed))
	assert.Empty(t, m.Calls())
}
