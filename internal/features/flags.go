// Package features holds per-tool switches read from the configuration.
package features

import (
	"sort"
	"strings"
	"sync"
)

// ToolFlags records which tools may be offered to the model. Tools are
// enabled unless disabled by name.
type ToolFlags struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

// NewToolFlags creates flags with the named tools disabled.
func NewToolFlags(disabled []string) *ToolFlags {
	f := &ToolFlags{disabled: make(map[string]bool)}
	for _, name := range disabled {
		if name = normalize(name); name != "" {
			f.disabled[name] = true
		}
	}
	return f
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsToolEnabled reports whether the tool may be offered.
func (f *ToolFlags) IsToolEnabled(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return !f.disabled[normalize(name)]
}

// EnableTool enables a specific tool
func (f *ToolFlags) EnableTool(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.disabled, normalize(name))
}

// DisableTool disables a specific tool
func (f *ToolFlags) DisableTool(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled[normalize(name)] = true
}

// Disabled returns the disabled tool names, sorted.
func (f *ToolFlags) Disabled() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.disabled))
	for name := range f.disabled {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
