package xdp

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// ErrTruncatedSample is returned when a perf sample is too short to
// hold the declared MapData layout.
var ErrTruncatedSample = errors.New("strix: truncated map data sample")

// MapData is the envelope a kernel program uses to pass an event plus
// an optional snippet of packet payload up through a perf map. The
// wire layout is the fixed-size record T, a payload offset, the
// payload size, then size payload bytes of which the interesting part
// starts at offset.
type MapData[T any] struct {
	// Data is the program-defined event record.
	Data T

	offset  uint32
	size    uint32
	payload []byte
}

// NewMapData wraps an event record with no payload attached.
func NewMapData[T any](data T) MapData[T] {
	return MapData[T]{Data: data}
}

// NewMapDataWithPayload wraps an event record plus size payload bytes
// whose interesting part starts at offset.
func NewMapDataWithPayload[T any](data T, offset, size uint32, payload []byte) MapData[T] {
	return MapData[T]{Data: data, offset: offset, size: size, payload: payload}
}

// Payload returns the interesting payload bytes, or an empty slice if
// the kernel side attached none.
func (m MapData[T]) Payload() []byte {
	if m.size == 0 || int(m.size) > len(m.payload) || m.offset > m.size {
		return nil
	}
	return m.payload[m.offset:m.size]
}

// DecodeMapData parses a raw perf sample emitted by the kernel side.
// T must be a fixed-size type.
func DecodeMapData[T any](raw []byte) (MapData[T], error) {
	var m MapData[T]
	sz := binary.Size(m.Data)
	if sz < 0 {
		return m, errors.New("strix: map data record is not fixed size")
	}
	if len(raw) < sz+8 {
		return m, ErrTruncatedSample
	}
	if err := binary.Read(bytes.NewReader(raw[:sz]), binary.LittleEndian, &m.Data); err != nil {
		return m, err
	}
	m.offset = binary.LittleEndian.Uint32(raw[sz:])
	m.size = binary.LittleEndian.Uint32(raw[sz+4:])
	rest := raw[sz+8:]
	if int(m.size) > len(rest) || m.offset > m.size {
		return m, ErrTruncatedSample
	}
	m.payload = rest
	return m, nil
}
