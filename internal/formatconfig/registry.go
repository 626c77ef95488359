package formatconfig

import (
	"fmt"
	"sync"
)

// StoredConfig is one registered configuration pair. Both halves are immutable
// once stored, so the combined value is computed once and reused.
type StoredConfig struct {
	Global Global
	Plugin Plugin

	combineOnce sync.Once
	combined    Plugin
}

func NewStoredConfig(global Global, plugin Plugin) *StoredConfig {
	return &StoredConfig{Global: global, Plugin: plugin}
}

// Combined returns the translated global config overlaid by the plugin config.
func (s *StoredConfig) Combined() Plugin {
	s.combineOnce.Do(func() {
		s.combined = s.Global.Plugin().Combine(s.Plugin)
	})
	return s.combined
}

// Registry stores configuration pairs by host-assigned config id.
type Registry struct {
	mu      sync.RWMutex
	entries map[uint32]*StoredConfig
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uint32]*StoredConfig)}
}

// Register decodes both payloads and replaces any entry under id. Nothing is
// stored when either payload is malformed.
func (r *Registry) Register(id uint32, globalData, pluginData []byte) error {
	global, err := DecodeGlobal(globalData)
	if err != nil {
		return err
	}
	plugin, err := DecodePlugin(pluginData)
	if err != nil {
		return err
	}
	entry := NewStoredConfig(global, plugin)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry
	return nil
}

// Release removes id. Absent ids are ignored.
func (r *Registry) Release(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Lookup(id uint32) (*StoredConfig, error) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrConfigNotFound, id)
	}
	return entry, nil
}

// Get returns the combined config for id.
func (r *Registry) Get(id uint32) (Plugin, error) {
	entry, err := r.Lookup(id)
	if err != nil {
		return Plugin{}, err
	}
	return entry.Combined(), nil
}

func (r *Registry) Diagnostics(id uint32) ([]Diagnostic, error) {
	combined, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return combined.Diagnostics(), nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
