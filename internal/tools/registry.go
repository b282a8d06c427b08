package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind groups tools by what they operate on.
type Kind int

const (
	KindFile Kind = iota + 1
	KindText
	KindKeys
	KindAudit
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindText:
		return "text"
	case KindKeys:
		return "keys"
	case KindAudit:
		return "audit"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Tool is one registered capability.
type Tool interface {
	Name() string
	Kind() Kind
	Description() string

	// Commands lists the top-level kete commands this tool provides.
	Commands() []string
}

// Registry holds tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t. Names are case-insensitive and must be unique.
func (r *Registry) Register(t Tool) error {
	name := strings.ToLower(strings.TrimSpace(t.Name()))
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("tool %q is already registered", t.Name())
	}
	r.tools[name] = t
	return nil
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// All returns every tool ordered by kind, then name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	all := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		all = append(all, t)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Kind() != all[j].Kind() {
			return all[i].Kind() < all[j].Kind()
		}
		return all[i].Name() < all[j].Name()
	})
	return all
}

// ByKind returns the tools of one kind.
func (r *Registry) ByKind(k Kind) []Tool {
	var out []Tool
	for _, t := range r.All() {
		if t.Kind() == k {
			out = append(out, t)
		}
	}
	return out
}

var defaultRegistry = NewRegistry()

// Default is the registry the built-in tools register with.
func Default() *Registry {
	return defaultRegistry
}

// MustRegister adds t to the default registry and panics on a duplicate.
func MustRegister(t Tool) {
	if err := defaultRegistry.Register(t); err != nil {
		panic(err)
	}
}
