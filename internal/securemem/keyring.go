package securemem

import (
	"sort"
	"sync"
)

// Keyring maps provider names to their API keys.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]*String
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]*String)}
}

// Set stores key for provider, wiping any previous value. An empty key removes the entry.
func (k *Keyring) Set(provider, key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if old, ok := k.keys[provider]; ok {
		old.Destroy()
		delete(k.keys, provider)
	}
	if key != "" {
		k.keys[provider] = NewString(key)
	}
}

// Get returns a plaintext copy of the key, or "" when none is stored.
func (k *Keyring) Get(provider string) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[provider].String()
}

func (k *Keyring) Has(provider string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	s, ok := k.keys[provider]
	return ok && !s.IsEmpty()
}

// Providers lists providers with a stored key, sorted.
func (k *Keyring) Providers() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	names := make([]string, 0, len(k.keys))
	for name := range k.keys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear wipes all keys.
func (k *Keyring) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()

	for name, s := range k.keys {
		s.Destroy()
		delete(k.keys, name)
	}
}
