package xdp

// Map is the key-value interface through which packet handlers reach
// persistent state: flow tables, counters, config pushed from user
// space. Implementations range from an in-process table to a kernel
// eBPF map; handlers treat it as opaque.
type Map interface {
	// Lookup returns the value stored under key.
	Lookup(key []byte) ([]byte, bool)
	// Update stores value under key, replacing any previous value.
	Update(key, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error
}
