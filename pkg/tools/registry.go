// Package tools provides the static tool catalog and the proxy that
// routes abstract tool identifiers to remote invocations.
package tools

import (
	"sort"
	"sync"

	"github.com/acordeiro/cellbook/pkg/domain"
)

// Registry maps full tool identifiers to descriptors. It is populated
// once at startup and safe for concurrent reads.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]domain.ToolDescriptor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]domain.ToolDescriptor)}
}

// Register adds a descriptor, keyed by its full identifier. A descriptor
// with the same full name replaces the previous one.
func (r *Registry) Register(d domain.ToolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.FullName] = d
}

// Lookup returns the descriptor for the full identifier.
func (r *Registry) Lookup(fullName string) (domain.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[fullName]
	return d, ok
}

// Descriptors returns all descriptors ordered by app name then tool name.
func (r *Registry) Descriptors() []domain.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ToolDescriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppName != out[j].AppName {
			return out[i].AppName < out[j].AppName
		}
		return out[i].Name < out[j].Name
	})
	return out
}
