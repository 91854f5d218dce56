package packet

import "encoding/binary"

const (
	udpSrcPort  = 0
	udpDstPort  = 2
	udpLength   = 4
	udpChecksum = 6
)

// UDPMinimumSize is the size of a UDP header.
const UDPMinimumSize = 8

// UDP is a zero-copy view of a UDP header.
type UDP []byte

// UDPFromBytes interprets b as a UDP header. b must be exactly
// UDPMinimumSize bytes.
func UDPFromBytes(b []byte) (UDP, error) {
	if len(b) != UDPMinimumSize {
		return nil, ErrSizeMismatch
	}
	return UDP(b), nil
}

// SourcePort returns the source port field.
func (b UDP) SourcePort() uint16 {
	return binary.BigEndian.Uint16(b[udpSrcPort:])
}

// DestinationPort returns the destination port field.
func (b UDP) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(b[udpDstPort:])
}

// Length returns the length field: header plus payload.
func (b UDP) Length() uint16 {
	return binary.BigEndian.Uint16(b[udpLength:])
}

// Checksum returns the checksum field.
func (b UDP) Checksum() uint16 {
	return binary.BigEndian.Uint16(b[udpChecksum:])
}

// SetSourcePort sets the source port field.
func (b UDP) SetSourcePort(v uint16) {
	binary.BigEndian.PutUint16(b[udpSrcPort:], v)
}

// SetDestinationPort sets the destination port field.
func (b UDP) SetDestinationPort(v uint16) {
	binary.BigEndian.PutUint16(b[udpDstPort:], v)
}

// SetLength sets the length field.
func (b UDP) SetLength(v uint16) {
	binary.BigEndian.PutUint16(b[udpLength:], v)
}

// SetChecksum sets the checksum field.
func (b UDP) SetChecksum(v uint16) {
	binary.BigEndian.PutUint16(b[udpChecksum:], v)
}
