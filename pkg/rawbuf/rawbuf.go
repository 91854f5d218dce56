// Package rawbuf provides the bounds-checked raw buffer primitive that
// every higher packet layer builds on. A Region describes a borrowed
// memory range by its start and end addresses, the way an XDP hook
// receives frame data from the kernel. It owns no memory and is the
// only place in the module allowed to perform raw address arithmetic;
// every access is validated against [start, end] before a pointer or
// slice is handed out.
package rawbuf

import (
	"errors"
	"unsafe"
)

// Sentinel errors.
var (
	ErrOutOfBounds  = errors.New("strix: out of bounds")
	ErrInvalidRange = errors.New("strix: invalid buffer range")
)

// RawBuf is the read capability over a bounds-checked buffer region.
type RawBuf interface {
	// Start returns the address of the first byte of the region.
	Start() uintptr
	// End returns the address one past the last byte of the region.
	End() uintptr
	// Len returns the region size in bytes.
	Len() int
	// CheckBounds reports whether [lo, hi] lies within the region.
	CheckBounds(lo, hi uintptr) bool
	// PtrAt returns a pointer to size bytes at start+off.
	PtrAt(off, size int) (unsafe.Pointer, error)
	// PtrAfter returns a pointer to size bytes immediately following a
	// prevSize-byte object at prev.
	PtrAfter(prev unsafe.Pointer, prevSize, size int) (unsafe.Pointer, error)
	// Offset returns a pointer to size bytes at start+n.
	Offset(n, size int) (unsafe.Pointer, error)
	// Slice returns the n bytes starting at off.
	Slice(off, n int) ([]byte, error)
	// Bytes returns the whole region.
	Bytes() []byte
	// Ptr returns a pointer to the first byte of the region.
	Ptr() unsafe.Pointer
}

// RawBufMut extends RawBuf with mutable access. The accessors return
// the same addresses as their RawBuf counterparts; the split exists so
// that APIs can demand write capability explicitly.
type RawBufMut interface {
	RawBuf
	PtrAtMut(off, size int) (unsafe.Pointer, error)
	PtrAfterMut(prev unsafe.Pointer, prevSize, size int) (unsafe.Pointer, error)
	OffsetMut(n, size int) (unsafe.Pointer, error)
	SliceMut(off, n int) ([]byte, error)
	BytesMut() []byte
	PtrMut() unsafe.Pointer
}

// Region is the concrete buffer region. It holds only the two bounding
// addresses; the memory belongs to whoever supplied them and is valid
// for a single invocation only. Region implements RawBufMut; callers
// that should not write take it as a RawBuf.
type Region struct {
	start uintptr
	end   uintptr
}

var (
	_ RawBuf    = Region{}
	_ RawBufMut = Region{}
)

// FromSlice wraps an existing byte slice. The region aliases the slice
// and must not outlive it.
func FromSlice(b []byte) Region {
	if len(b) == 0 {
		return Region{}
	}
	start := uintptr(unsafe.Pointer(&b[0]))
	return Region{start: start, end: start + uintptr(len(b))}
}

// FromAddrs wraps a raw start/end address pair, such as the data and
// data_end fields of an xdp_md context.
func FromAddrs(start, end uintptr) (Region, error) {
	if start > end {
		return Region{}, ErrInvalidRange
	}
	return Region{start: start, end: end}, nil
}

// Start returns the address of the first byte of the region.
func (r Region) Start() uintptr { return r.start }

// End returns the address one past the last byte of the region.
func (r Region) End() uintptr { return r.end }

// Len returns the region size in bytes.
func (r Region) Len() int { return int(r.end - r.start) }

// CheckBounds reports whether the candidate range [lo, hi] lies within
// the region. This is the single safety gate for every accessor. The
// comparisons are inclusive and a range that wrapped the address space
// (hi < lo) is rejected.
func (r Region) CheckBounds(lo, hi uintptr) bool {
	return r.start <= lo && lo <= hi && hi <= r.end
}

func (r Region) ptr(off, size int) (unsafe.Pointer, error) {
	if off < 0 || size < 0 {
		return nil, ErrOutOfBounds
	}
	lo := r.start + uintptr(off)
	hi := lo + uintptr(size)
	// lo or hi wrapping past the top of the address space shows up as
	// a reversed range and fails CheckBounds.
	if lo < r.start || hi < lo || !r.CheckBounds(lo, hi) {
		return nil, ErrOutOfBounds
	}
	return unsafe.Pointer(lo), nil
}

// PtrAt returns a raw pointer to size bytes at start+off, or
// ErrOutOfBounds if the range does not fit the region. No alignment or
// validity checks are made on the pointed-to bytes.
func (r Region) PtrAt(off, size int) (unsafe.Pointer, error) {
	return r.ptr(off, size)
}

// PtrAtMut is PtrAt with write capability.
func (r Region) PtrAtMut(off, size int) (unsafe.Pointer, error) {
	return r.ptr(off, size)
}

// PtrAfter returns a pointer to size bytes immediately following a
// prevSize-byte object at prev. Used for end-exclusive walks where the
// caller holds a pointer to the previous header.
func (r Region) PtrAfter(prev unsafe.Pointer, prevSize, size int) (unsafe.Pointer, error) {
	if prev == nil || prevSize < 0 {
		return nil, ErrOutOfBounds
	}
	addr := uintptr(prev)
	if addr < r.start {
		return nil, ErrOutOfBounds
	}
	return r.ptr(int(addr-r.start)+prevSize, size)
}

// PtrAfterMut is PtrAfter with write capability.
func (r Region) PtrAfterMut(prev unsafe.Pointer, prevSize, size int) (unsafe.Pointer, error) {
	return r.PtrAfter(prev, prevSize, size)
}

// Offset returns a pointer to size bytes at start+n. It is PtrAt under
// its historical name; both are kept so call sites can say what they
// mean.
func (r Region) Offset(n, size int) (unsafe.Pointer, error) {
	return r.ptr(n, size)
}

// OffsetMut is Offset with write capability.
func (r Region) OffsetMut(n, size int) (unsafe.Pointer, error) {
	return r.ptr(n, size)
}

// Slice returns a view of exactly n bytes starting at off. The slice
// aliases the region; it is not a copy.
func (r Region) Slice(off, n int) ([]byte, error) {
	p, err := r.ptr(off, n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(p), n), nil
}

// SliceMut is Slice with write capability.
func (r Region) SliceMut(off, n int) ([]byte, error) {
	return r.Slice(off, n)
}

// Bytes returns the whole region as a slice. The region's own bounds
// are axiomatically valid, so this cannot fail.
func (r Region) Bytes() []byte {
	if r.Len() == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(r.start)), r.Len())
}

// BytesMut is Bytes with write capability.
func (r Region) BytesMut() []byte {
	return r.Bytes()
}

// Ptr returns a pointer to the first byte of the region. Like Bytes,
// the region's own bounds are axiomatically valid.
func (r Region) Ptr() unsafe.Pointer {
	return unsafe.Pointer(r.start)
}

// PtrMut is Ptr with write capability.
func (r Region) PtrMut() unsafe.Pointer {
	return unsafe.Pointer(r.start)
}
