// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package testutil

import (
	"os"
	"testing"
)

// RequireVM skips the test unless SCANWALL_VM_TEST is set.
// Tests that touch the real iptables or nftables ruleset must call this.
func RequireVM(t *testing.T) {
	t.Helper()
	if os.Getenv("SCANWALL_VM_TEST") == "" {
		t.Skip("Skipping test: requires SCANWALL_VM_TEST environment")
	}
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
}
