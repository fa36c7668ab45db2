// Package registry holds the two independent lookup tables NetHawk builds at
// startup: the service registry (protocol handlers keyed by service name) and
// the module registry (enumeration modules keyed by name and alias).
//
// Both registries follow last-registration-wins semantics: a concrete
// package's init() call to Register replaces any prior entry
// under the same key rather than erroring, matching the dynamic-subclass
// discovery the orchestrator used to rely on before registration became
// explicit.
package registry

import (
	"sort"
	"sync"

	"github.com/nethawk-io/nethawk/internal/nherrors"
)

// ServiceDescriptor describes one registered protocol handler.
type ServiceDescriptor struct {
	Name    string
	Aliases []string
	Ports   []int
	New     func() Service
}

// Service is implemented by every protocol handler package (see
// internal/service).
type Service interface {
	Name() string
}

// ModuleDescriptor describes one registered enumeration module.
type ModuleDescriptor struct {
	Name    string
	Aliases []string
	Path    string // fully-qualified "service.module" path, e.g. "http.dir"
	Service string // owning service name, "" if service-agnostic
	Factory func() Module
}

// Module is implemented by every enumeration module package (see
// internal/module).
type Module interface {
	Name() string
}

// ServiceRegistry is a concurrency-safe, name/alias-indexed table of
// ServiceDescriptors.
type ServiceRegistry struct {
	mu    sync.RWMutex
	byKey map[string]*ServiceDescriptor
	order []string
}

// NewServiceRegistry returns an empty ServiceRegistry.
func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{byKey: make(map[string]*ServiceDescriptor)}
}

// Register adds or replaces a ServiceDescriptor under its name and every
// alias. A later call with a colliding key silently wins over an earlier one.
func (r *ServiceRegistry) Register(d ServiceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := append([]string{d.Name}, d.Aliases...)
	for _, k := range keys {
		if _, exists := r.byKey[k]; !exists {
			r.order = append(r.order, k)
		}
		cp := d
		r.byKey[k] = &cp
	}
}

// Find looks up a ServiceDescriptor by name or alias, case-sensitively.
func (r *ServiceRegistry) Find(name string) (*ServiceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byKey[name]; ok {
		return d, nil
	}
	return nil, &nherrors.ServiceNotFound{Name: name}
}

// FindByPort returns every descriptor that declares the given port among its
// known default ports.
func (r *ServiceRegistry) FindByPort(port int) []*ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []*ServiceDescriptor
	for _, k := range r.order {
		d := r.byKey[k]
		if seen[d.Name] {
			continue
		}
		for _, p := range d.Ports {
			if p == port {
				out = append(out, d)
				seen[d.Name] = true
				break
			}
		}
	}
	return out
}

// List returns every distinct registered ServiceDescriptor, sorted by name.
func (r *ServiceRegistry) List() []*ServiceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []*ServiceDescriptor
	for _, k := range r.order {
		d := r.byKey[k]
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModuleRegistry is a concurrency-safe, name/alias/path-indexed table of
// ModuleDescriptors.
type ModuleRegistry struct {
	mu    sync.RWMutex
	byKey map[string]*ModuleDescriptor
	order []string
}

// NewModuleRegistry returns an empty ModuleRegistry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{byKey: make(map[string]*ModuleDescriptor)}
}

// Register adds or replaces a ModuleDescriptor under its name, every alias,
// and its fully-qualified path.
func (r *ModuleRegistry) Register(d ModuleDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := append([]string{d.Name, d.Path}, d.Aliases...)
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, exists := r.byKey[k]; !exists {
			r.order = append(r.order, k)
		}
		cp := d
		r.byKey[k] = &cp
	}
}

// Find looks up a ModuleDescriptor by name, alias, or fully-qualified path,
// case-sensitively.
func (r *ModuleRegistry) Find(name string) (*ModuleDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byKey[name]; ok {
		return d, nil
	}
	return nil, &nherrors.ModuleNotFound{Name: name}
}

// ForService returns every distinct module registered against the given
// service name, sorted by name.
func (r *ModuleRegistry) ForService(service string) []*ModuleDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []*ModuleDescriptor
	for _, k := range r.order {
		d := r.byKey[k]
		if seen[d.Name] || d.Service != service {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// List returns every distinct registered ModuleDescriptor, sorted by name.
func (r *ModuleRegistry) List() []*ModuleDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []*ModuleDescriptor
	for _, k := range r.order {
		d := r.byKey[k]
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default is the process-wide pair of registries concrete service/module
// packages register themselves against from their init() functions.
var Default = struct {
	Services *ServiceRegistry
	Modules  *ModuleRegistry
}{
	Services: NewServiceRegistry(),
	Modules:  NewModuleRegistry(),
}
