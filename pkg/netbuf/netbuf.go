// Package netbuf layers a parse cursor on top of a rawbuf region for
// sequential consumption of network bytes. It knows nothing about
// protocol structure; it only tracks how far into the region the
// caller has read. Buffer extent lives in rawbuf, cursor position
// lives here, and the two are never conflated.
package netbuf

import (
	"errors"

	"firestige.xyz/strix/pkg/rawbuf"
)

// ErrUnderflow is returned when fewer bytes remain than a read needs.
var ErrUnderflow = errors.New("strix: buffer underflow")

// NetBuf is a read cursor over a borrowed buffer region. The cursor
// only ever moves forward, except through an explicit Reset. A failed
// read leaves the cursor untouched, so retrying is safe.
type NetBuf struct {
	raw rawbuf.RawBuf
	off int
}

// New returns a NetBuf positioned at the start of raw.
func New(raw rawbuf.RawBuf) *NetBuf {
	return &NetBuf{raw: raw}
}

// Read returns a view of exactly n bytes at the cursor and advances
// the cursor past them. On ErrUnderflow the cursor is unchanged.
func (b *NetBuf) Read(n int) ([]byte, error) {
	s, err := b.Peek(n)
	if err != nil {
		return nil, err
	}
	b.off += n
	return s, nil
}

// Peek returns the same view as Read without advancing the cursor.
func (b *NetBuf) Peek(n int) ([]byte, error) {
	if n < 0 || n > b.Remaining() {
		return nil, ErrUnderflow
	}
	s, err := b.raw.Slice(b.off, n)
	if err != nil {
		return nil, ErrUnderflow
	}
	return s, nil
}

// Skip advances the cursor by n bytes without materializing a view.
func (b *NetBuf) Skip(n int) error {
	if n < 0 || n > b.Remaining() {
		return ErrUnderflow
	}
	b.off += n
	return nil
}

// Remaining returns the number of unread bytes.
func (b *NetBuf) Remaining() int {
	return b.raw.Len() - b.off
}

// Offset returns the cursor position relative to the region start.
func (b *NetBuf) Offset() int {
	return b.off
}

// Reset moves the cursor back to the start of the region for
// re-parsing within the same invocation.
func (b *NetBuf) Reset() {
	b.off = 0
}

// Writable reports whether the underlying region carries the mutable
// capability, i.e. whether views handed out by this buffer may be
// written through.
func (b *NetBuf) Writable() bool {
	_, ok := b.raw.(rawbuf.RawBufMut)
	return ok
}

// Raw exposes the underlying region capability.
func (b *NetBuf) Raw() rawbuf.RawBuf {
	return b.raw
}
