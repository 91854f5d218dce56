package packet

import "encoding/binary"

const (
	vlanTCI  = 0
	vlanType = 2
)

// VLANSize is the size of an 802.1Q tag.
const VLANSize = 4

// VLAN is a zero-copy view of an 802.1Q tag: two bytes of tag control
// information followed by the encapsulated ethertype.
type VLAN []byte

// VLANFromBytes interprets b as a VLAN tag. b must be exactly VLANSize
// bytes.
func VLANFromBytes(b []byte) (VLAN, error) {
	if len(b) != VLANSize {
		return nil, ErrSizeMismatch
	}
	return VLAN(b), nil
}

// TCI returns the raw tag control information field.
func (b VLAN) TCI() uint16 {
	return binary.BigEndian.Uint16(b[vlanTCI:])
}

// ID returns the 12-bit VLAN identifier.
func (b VLAN) ID() uint16 {
	return b.TCI() & 0x0FFF
}

// Priority returns the 3-bit priority code point.
func (b VLAN) Priority() uint8 {
	return uint8(b.TCI() >> 13)
}

// EtherType returns the encapsulated ethertype in host byte order.
func (b VLAN) EtherType() EtherType {
	return EtherType(binary.BigEndian.Uint16(b[vlanType:]))
}

// SetTCI sets the tag control information field.
func (b VLAN) SetTCI(tci uint16) {
	binary.BigEndian.PutUint16(b[vlanTCI:], tci)
}

// SetID sets the 12-bit VLAN identifier, preserving priority bits.
func (b VLAN) SetID(id uint16) {
	b.SetTCI(b.TCI()&^0x0FFF | id&0x0FFF)
}

// SetEtherType sets the encapsulated ethertype.
func (b VLAN) SetEtherType(t EtherType) {
	binary.BigEndian.PutUint16(b[vlanType:], uint16(t))
}
