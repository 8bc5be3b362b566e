// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detector

import (
	"sort"
	"sync"
)

// BlockRegistry is the set of peers flagged during this process lifetime.
// Entries are never removed.
type BlockRegistry struct {
	mu    sync.RWMutex
	peers map[string]struct{}
}

func NewBlockRegistry() *BlockRegistry {
	return &BlockRegistry{peers: make(map[string]struct{})}
}

// Contains reports whether ip has been flagged. A nil registry holds nothing.
func (r *BlockRegistry) Contains(ip string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.peers[ip]
	return ok
}

// Add flags ip and reports whether it was newly added.
func (r *BlockRegistry) Add(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.peers[ip]; ok {
		return false
	}
	r.peers[ip] = struct{}{}
	return true
}

func (r *BlockRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// List returns the flagged peers in sorted order.
func (r *BlockRegistry) List() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.peers))
	for ip := range r.peers {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}
