// Package flowmap provides an in-process implementation of the xdp.Map
// key-value interface, used as flow-counter storage when no kernel map
// is attached.
package flowmap

import "sync"

// FlowMap is a mutex-guarded byte-keyed table. Values are copied on
// the way in and out so callers cannot alias internal state.
type FlowMap struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// New returns an empty FlowMap.
func New() *FlowMap {
	return &FlowMap{m: make(map[string][]byte)}
}

// Lookup returns the value stored under key.
func (f *FlowMap) Lookup(key []byte) ([]byte, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.m[string(key)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

// Update stores value under key, replacing any previous value.
func (f *FlowMap) Update(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	f.mu.Lock()
	f.m[string(key)] = v
	f.mu.Unlock()
	return nil
}

// Delete removes key.
func (f *FlowMap) Delete(key []byte) error {
	f.mu.Lock()
	delete(f.m, string(key))
	f.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (f *FlowMap) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.m)
}
