package server

import (
	"strings"
	"sync"
)

// KeySet is the set of accepted gateway API keys. Keys can be swapped at
// runtime when Vault rotates them.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewKeySet builds a set from keys, skipping blanks
func NewKeySet(keys []string) *KeySet {
	ks := &KeySet{}
	ks.Replace(keys)
	return ks
}

// Replace swaps the whole set
func (ks *KeySet) Replace(keys []string) {
	// Convert API keys slice to map for O(1) lookup
	next := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			next[key] = true
		}
	}

	ks.mu.Lock()
	ks.keys = next
	ks.mu.Unlock()
}

// Valid reports whether key is accepted
func (ks *KeySet) Valid(key string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.keys[key]
}

func (ks *KeySet) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}
