package probe

import (
	"errors"

	"github.com/cilium/ebpf"
)

// KernelMap adapts an eBPF map to the xdp.Map interface so code
// written against the in-process flow table can read state shared
// with the probe.
type KernelMap struct {
	m *ebpf.Map
}

// NewKernelMap wraps m.
func NewKernelMap(m *ebpf.Map) *KernelMap {
	return &KernelMap{m: m}
}

// Lookup returns the value stored under key.
func (k *KernelMap) Lookup(key []byte) ([]byte, bool) {
	v, err := k.m.LookupBytes(key)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// Update stores value under key.
func (k *KernelMap) Update(key, value []byte) error {
	return k.m.Update(key, value, ebpf.UpdateAny)
}

// Delete removes key. Deleting an absent key is not an error.
func (k *KernelMap) Delete(key []byte) error {
	if err := k.m.Delete(key); err != nil && !errors.Is(err, ebpf.ErrKeyNotExist) {
		return err
	}
	return nil
}
