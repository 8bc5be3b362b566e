// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package firewall

import (
	"sort"
	"sync"
)

// Memory records blocks without touching the host firewall.
type Memory struct {
	mu      sync.RWMutex
	blocked map[string]bool
	calls   []string
}

func NewMemory() *Memory {
	return &Memory{blocked: make(map[string]bool)}
}

func (m *Memory) Block(ip string) (Outcome, error) {
	if _, err := parseIPv4(ip); err != nil {
		return execFailed(BackendMemory, ip, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ip)
	if m.blocked[ip] {
		return OutcomeAlready, nil
	}
	m.blocked[ip] = true
	return OutcomeApplied, nil
}

// IsBlocked reports whether ip was blocked.
func (m *Memory) IsBlocked(ip string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blocked[ip]
}

// Blocked returns the blocked addresses, sorted.
func (m *Memory) Blocked() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.blocked))
	for ip := range m.blocked {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}

// Calls returns every Block argument in call order.
func (m *Memory) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}
