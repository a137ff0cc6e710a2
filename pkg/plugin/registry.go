// Package plugin provides a registry of named provider factories so that
// profiles and the CLI can choose a VAD classifier or speech recognizer by
// name from configuration. Provider packages register themselves from init().
package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Provider kinds.
const (
	KindVAD = "vad"
	KindSTT = "stt"
)

// Factory creates a new provider instance from configuration.
// The returned value should be cast to the provider type for its kind
// (vad.Classifier or stt.STT).
type Factory func(cfg map[string]any) (any, error)

// Downloader interface for plugins that need to download model files.
type Downloader interface {
	Download() error
}

// Plugin represents a registered plugin with its metadata.
type Plugin struct {
	Kind        string         // "vad" or "stt"
	Name        string         // Plugin name (e.g., "energy", "spokestack")
	Factory     Factory        // Factory function to create instances
	Description string         // Human-readable description
	Version     string         // Plugin version
	Config      map[string]any // Configuration keys and their defaults
	Downloader  Downloader     // Optional downloader for model files
}

// Registry manages plugin registration and lookup.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]map[string]*Plugin // [kind][name] -> Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]map[string]*Plugin)}
}

var globalRegistry = NewRegistry()

// Register adds a plugin to the global registry.
// Panics if a plugin with the same kind and name is already registered.
func Register(kind, name string, factory Factory) {
	globalRegistry.Register(kind, name, factory)
}

// RegisterWithMetadata adds a plugin with additional metadata to the global registry.
func RegisterWithMetadata(plugin *Plugin) {
	globalRegistry.RegisterWithMetadata(plugin)
}

// Get retrieves a plugin factory from the global registry.
func Get(kind, name string) (Factory, bool) {
	return globalRegistry.Get(kind, name)
}

// Lookup retrieves a plugin with its metadata from the global registry.
func Lookup(kind, name string) (*Plugin, bool) {
	return globalRegistry.Lookup(kind, name)
}

// List returns all registered plugins of a specific kind.
// If kind is empty, returns all plugins.
func List(kind string) []*Plugin {
	return globalRegistry.List(kind)
}

// ListKinds returns all registered plugin kinds.
func ListKinds() []string {
	return globalRegistry.ListKinds()
}

// Build creates a provider from the global registry and asserts its type.
func Build[T any](kind, name string, cfg map[string]any) (T, error) {
	return BuildFrom[T](globalRegistry, kind, name, cfg)
}

// BuildFrom creates a provider from r and asserts its type.
func BuildFrom[T any](r *Registry, kind, name string, cfg map[string]any) (T, error) {
	var zero T
	factory, ok := r.Get(kind, name)
	if !ok {
		return zero, fmt.Errorf("%s plugin %q not registered", kind, name)
	}
	if cfg == nil {
		cfg = map[string]any{}
	}
	instance, err := factory(cfg)
	if err != nil {
		return zero, fmt.Errorf("create %s/%s: %w", kind, name, err)
	}
	v, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%s/%s returned %T, which does not implement %T", kind, name, instance, (*T)(nil))
	}
	return v, nil
}

// Register adds a plugin to this registry instance.
// Panics if a plugin with the same kind and name is already registered.
func (r *Registry) Register(kind, name string, factory Factory) {
	r.RegisterWithMetadata(&Plugin{
		Kind:    kind,
		Name:    name,
		Factory: factory,
	})
}

// RegisterWithMetadata adds a plugin with metadata to this registry instance.
// Panics if a plugin with the same kind and name is already registered.
func (r *Registry) RegisterWithMetadata(plugin *Plugin) {
	if plugin.Kind == "" {
		panic("plugin kind cannot be empty")
	}
	if plugin.Name == "" {
		panic("plugin name cannot be empty")
	}
	if plugin.Factory == nil {
		panic("plugin factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.plugins[plugin.Kind] == nil {
		r.plugins[plugin.Kind] = make(map[string]*Plugin)
	}
	if existing, exists := r.plugins[plugin.Kind][plugin.Name]; exists {
		panic(fmt.Sprintf("plugin %s/%s already registered (existing version: %s, new version: %s)",
			plugin.Kind, plugin.Name, existing.Version, plugin.Version))
	}
	r.plugins[plugin.Kind][plugin.Name] = plugin
}

// Get retrieves a plugin factory from this registry instance.
func (r *Registry) Get(kind, name string) (Factory, bool) {
	p, ok := r.Lookup(kind, name)
	if !ok {
		return nil, false
	}
	return p.Factory, true
}

// Lookup retrieves a plugin with its metadata.
func (r *Registry) Lookup(kind, name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[kind][name]
	return p, ok
}

// List returns all registered plugins of a specific kind.
// If kind is empty, returns all plugins sorted by kind then name.
func (r *Registry) List(kind string) []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var plugins []*Plugin
	for k, kindMap := range r.plugins {
		if kind != "" && k != kind {
			continue
		}
		for _, plugin := range kindMap {
			plugins = append(plugins, plugin)
		}
	}

	sort.Slice(plugins, func(i, j int) bool {
		if plugins[i].Kind != plugins[j].Kind {
			return plugins[i].Kind < plugins[j].Kind
		}
		return plugins[i].Name < plugins[j].Name
	})
	return plugins
}

// ListKinds returns all registered plugin kinds in sorted order.
func (r *Registry) ListKinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.plugins))
	for kind := range r.plugins {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Clear removes all plugins from this registry instance.
// This is primarily useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = make(map[string]map[string]*Plugin)
}

// Global returns the process-wide registry that init() registrations use.
func Global() *Registry { return globalRegistry }
