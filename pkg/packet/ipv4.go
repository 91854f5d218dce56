package packet

import (
	"encoding/binary"
	"net/netip"
)

const (
	ipv4VersionIHL = 0
	ipv4TOS        = 1
	ipv4TotalLen   = 2
	ipv4ID         = 4
	ipv4FlagsFO    = 6
	ipv4TTL        = 8
	ipv4Protocol   = 9
	ipv4Checksum   = 10
	ipv4SrcAddr    = 12
	ipv4DstAddr    = 16
)

const (
	// IPv4MinimumSize is the size of an IPv4 header with no options.
	IPv4MinimumSize = 20

	// IPv4MaximumHeaderSize is the largest header the 4-bit IHL field
	// can describe (15 words).
	IPv4MaximumHeaderSize = 60

	// IPv4Version is the value of the version field of an IPv4 header.
	IPv4Version = 4
)

// IPv4 fragmentation flag bits, as returned by Flags.
const (
	IPv4FlagMoreFragments = 1 << 0
	IPv4FlagDontFragment  = 1 << 1
)

// IPv4 is a zero-copy view of an IPv4 header including any options.
type IPv4 []byte

// IPv4FromBytes interprets b as an IPv4 header. The slice length must
// match the header's self-declared length exactly: the fixed 20 bytes
// plus options.
func IPv4FromBytes(b []byte) (IPv4, error) {
	if len(b) < IPv4MinimumSize {
		return nil, ErrSizeMismatch
	}
	h := IPv4(b)
	if h.Version() != IPv4Version || len(b) != h.HeaderLength() {
		return nil, ErrSizeMismatch
	}
	return h, nil
}

// Version returns the version field.
func (b IPv4) Version() uint8 {
	return b[ipv4VersionIHL] >> 4
}

// HeaderLength returns the header length in bytes (IHL * 4).
func (b IPv4) HeaderLength() int {
	return int(b[ipv4VersionIHL]&0x0F) * 4
}

// TOS returns the type-of-service field.
func (b IPv4) TOS() uint8 {
	return b[ipv4TOS]
}

// TotalLength returns the total length field: header plus payload.
func (b IPv4) TotalLength() uint16 {
	return binary.BigEndian.Uint16(b[ipv4TotalLen:])
}

// ID returns the identification field.
func (b IPv4) ID() uint16 {
	return binary.BigEndian.Uint16(b[ipv4ID:])
}

// Flags returns the 3-bit fragmentation flags.
func (b IPv4) Flags() uint8 {
	return uint8(binary.BigEndian.Uint16(b[ipv4FlagsFO:]) >> 13)
}

// FragmentOffset returns the fragment offset in bytes.
func (b IPv4) FragmentOffset() uint16 {
	return (binary.BigEndian.Uint16(b[ipv4FlagsFO:]) & 0x1FFF) * 8
}

// MoreFragments reports whether the MF flag is set.
func (b IPv4) MoreFragments() bool {
	return b.Flags()&IPv4FlagMoreFragments != 0
}

// DontFragment reports whether the DF flag is set.
func (b IPv4) DontFragment() bool {
	return b.Flags()&IPv4FlagDontFragment != 0
}

// IsFragment reports whether this packet is part of a fragmented
// datagram.
func (b IPv4) IsFragment() bool {
	return b.MoreFragments() || b.FragmentOffset() != 0
}

// TTL returns the time-to-live field.
func (b IPv4) TTL() uint8 {
	return b[ipv4TTL]
}

// Protocol returns the transport protocol field.
func (b IPv4) Protocol() IPProtocol {
	return IPProtocol(b[ipv4Protocol])
}

// Checksum returns the header checksum field.
func (b IPv4) Checksum() uint16 {
	return binary.BigEndian.Uint16(b[ipv4Checksum:])
}

// SourceAddress returns the source address field.
func (b IPv4) SourceAddress() netip.Addr {
	return netip.AddrFrom4([4]byte(b[ipv4SrcAddr : ipv4SrcAddr+4]))
}

// DestinationAddress returns the destination address field.
func (b IPv4) DestinationAddress() netip.Addr {
	return netip.AddrFrom4([4]byte(b[ipv4DstAddr : ipv4DstAddr+4]))
}

// SetTOS sets the type-of-service field.
func (b IPv4) SetTOS(v uint8) {
	b[ipv4TOS] = v
}

// SetTotalLength sets the total length field.
func (b IPv4) SetTotalLength(v uint16) {
	binary.BigEndian.PutUint16(b[ipv4TotalLen:], v)
}

// SetID sets the identification field.
func (b IPv4) SetID(v uint16) {
	binary.BigEndian.PutUint16(b[ipv4ID:], v)
}

// SetTTL sets the time-to-live field. The header checksum is not
// adjusted; call UpdateChecksum after the last field write.
func (b IPv4) SetTTL(v uint8) {
	b[ipv4TTL] = v
}

// SetProtocol sets the transport protocol field.
func (b IPv4) SetProtocol(p IPProtocol) {
	b[ipv4Protocol] = uint8(p)
}

// SetChecksum sets the header checksum field.
func (b IPv4) SetChecksum(v uint16) {
	binary.BigEndian.PutUint16(b[ipv4Checksum:], v)
}

// SetSourceAddress sets the source address field.
func (b IPv4) SetSourceAddress(a netip.Addr) {
	v := a.As4()
	copy(b[ipv4SrcAddr:][:4], v[:])
}

// SetDestinationAddress sets the destination address field.
func (b IPv4) SetDestinationAddress(a netip.Addr) {
	v := a.As4()
	copy(b[ipv4DstAddr:][:4], v[:])
}

// CalculateChecksum computes the header checksum over the current
// header bytes, treating the checksum field as zero.
func (b IPv4) CalculateChecksum() uint16 {
	sum := Checksum(b[:ipv4Checksum], 0)
	sum = Checksum(b[ipv4Checksum+2:b.HeaderLength()], sum)
	return ^sum
}

// UpdateChecksum recomputes and writes the header checksum. Must be
// called after mutating any header field.
func (b IPv4) UpdateChecksum() {
	b.SetChecksum(b.CalculateChecksum())
}
