package packet

import (
	"encoding/binary"
	"net"
)

const (
	ethDstMAC = 0
	ethSrcMAC = 6
	ethType   = 12
)

const (
	// EthernetMinimumSize is the size of an untagged Ethernet header.
	EthernetMinimumSize = 14

	// EthernetAddressSize is the size of a MAC address.
	EthernetAddressSize = 6
)

// Ethernet is a zero-copy view of an Ethernet frame header. Accessors
// read, and setters write, directly through to the underlying buffer.
type Ethernet []byte

// EthernetFromBytes interprets b as an Ethernet header. b must be
// exactly EthernetMinimumSize bytes.
func EthernetFromBytes(b []byte) (Ethernet, error) {
	if len(b) != EthernetMinimumSize {
		return nil, ErrSizeMismatch
	}
	return Ethernet(b), nil
}

// SourceAddress returns the source MAC field.
func (b Ethernet) SourceAddress() net.HardwareAddr {
	return net.HardwareAddr(b[ethSrcMAC : ethSrcMAC+EthernetAddressSize])
}

// DestinationAddress returns the destination MAC field.
func (b Ethernet) DestinationAddress() net.HardwareAddr {
	return net.HardwareAddr(b[ethDstMAC : ethDstMAC+EthernetAddressSize])
}

// EtherType returns the ethertype field in host byte order.
func (b Ethernet) EtherType() EtherType {
	return EtherType(binary.BigEndian.Uint16(b[ethType:]))
}

// SetSourceAddress sets the source MAC field.
func (b Ethernet) SetSourceAddress(addr net.HardwareAddr) {
	copy(b[ethSrcMAC:][:EthernetAddressSize], addr)
}

// SetDestinationAddress sets the destination MAC field.
func (b Ethernet) SetDestinationAddress(addr net.HardwareAddr) {
	copy(b[ethDstMAC:][:EthernetAddressSize], addr)
}

// SetEtherType sets the ethertype field, converting to network byte
// order.
func (b Ethernet) SetEtherType(t EtherType) {
	binary.BigEndian.PutUint16(b[ethType:], uint16(t))
}
