package packet

import (
	"encoding/binary"
	"net/netip"
)

const (
	ipv6Version    = 0
	ipv6PayloadLen = 4
	ipv6NextHdr    = 6
	ipv6HopLimit   = 7
	ipv6SrcAddr    = 8
	ipv6DstAddr    = 24
)

const (
	// IPv6MinimumSize is the size of the fixed IPv6 header. Extension
	// headers are left in the payload for the caller; walking them is
	// out of scope here.
	IPv6MinimumSize = 40

	// IPv6AddressSize is the size of an IPv6 address.
	IPv6AddressSize = 16

	// IPv6Version is the value of the version field of an IPv6 header.
	IPv6Version = 6
)

// IPv6 is a zero-copy view of the fixed IPv6 header.
type IPv6 []byte

// IPv6FromBytes interprets b as an IPv6 fixed header. b must be
// exactly IPv6MinimumSize bytes.
func IPv6FromBytes(b []byte) (IPv6, error) {
	if len(b) != IPv6MinimumSize {
		return nil, ErrSizeMismatch
	}
	h := IPv6(b)
	if h.Version() != IPv6Version {
		return nil, ErrSizeMismatch
	}
	return h, nil
}

// Version returns the version field.
func (b IPv6) Version() uint8 {
	return b[ipv6Version] >> 4
}

// TrafficClass returns the 8-bit traffic class.
func (b IPv6) TrafficClass() uint8 {
	return b[0]<<4 | b[1]>>4
}

// FlowLabel returns the 20-bit flow label.
func (b IPv6) FlowLabel() uint32 {
	return binary.BigEndian.Uint32(b[0:4]) & 0x000FFFFF
}

// PayloadLength returns the payload length field: everything after the
// fixed header, extension headers included.
func (b IPv6) PayloadLength() uint16 {
	return binary.BigEndian.Uint16(b[ipv6PayloadLen:])
}

// NextHeader returns the next-header field.
func (b IPv6) NextHeader() IPProtocol {
	return IPProtocol(b[ipv6NextHdr])
}

// HopLimit returns the hop limit field.
func (b IPv6) HopLimit() uint8 {
	return b[ipv6HopLimit]
}

// SourceAddress returns the source address field.
func (b IPv6) SourceAddress() netip.Addr {
	return netip.AddrFrom16([16]byte(b[ipv6SrcAddr : ipv6SrcAddr+IPv6AddressSize]))
}

// DestinationAddress returns the destination address field.
func (b IPv6) DestinationAddress() netip.Addr {
	return netip.AddrFrom16([16]byte(b[ipv6DstAddr : ipv6DstAddr+IPv6AddressSize]))
}

// SetPayloadLength sets the payload length field.
func (b IPv6) SetPayloadLength(v uint16) {
	binary.BigEndian.PutUint16(b[ipv6PayloadLen:], v)
}

// SetNextHeader sets the next-header field.
func (b IPv6) SetNextHeader(p IPProtocol) {
	b[ipv6NextHdr] = uint8(p)
}

// SetHopLimit sets the hop limit field.
func (b IPv6) SetHopLimit(v uint8) {
	b[ipv6HopLimit] = v
}

// SetSourceAddress sets the source address field.
func (b IPv6) SetSourceAddress(a netip.Addr) {
	v := a.As16()
	copy(b[ipv6SrcAddr:][:IPv6AddressSize], v[:])
}

// SetDestinationAddress sets the destination address field.
func (b IPv6) SetDestinationAddress(a netip.Addr) {
	v := a.As16()
	copy(b[ipv6DstAddr:][:IPv6AddressSize], v[:])
}
