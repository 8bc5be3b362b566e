// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/scanwall/internal/errors"
)

func TestParseRunFlags(t *testing.T) {
	o, err := parseRunFlags("run", []string{"-interval", "3s", "-threshold", "5", "-dry-run", "-pidfile", "/etc/scanwall.hcl"}, true)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, o.Interval)
	require.NotNil(t, o.Threshold)
	assert.Equal(t, 5, *o.Threshold)
	assert.True(t, o.DryRun)
	assert.True(t, o.WritePID)
	assert.Equal(t, "/etc/scanwall.hcl", o.ConfigFile)
}

func TestParseRunFlagsThreshold(t *testing.T) {
	o, err := parseRunFlags("run", nil, true)
	require.NoError(t, err)
	assert.Nil(t, o.Threshold)

	o, err = parseRunFlags("run", []string{"-threshold", "0"}, true)
	require.NoError(t, err)
	require.NotNil(t, o.Threshold)
	assert.Equal(t, 0, *o.Threshold)
}

func TestParseStartRejectsPidfile(t *testing.T) {
	_, err := parseRunFlags("start", []string{"-pidfile"}, false)
	assert.Error(t, err)
}

func TestDispatchUnknown(t *testing.T) {
	err := dispatch("frobnicate", nil)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Equal(t, 77, exitCode(errors.New(errors.KindPermission, "root")))
	assert.Equal(t, 1, exitCode(errors.New(errors.KindInternal, "boom")))
}
