package packet

import "encoding/binary"

const (
	tcpSrcPort  = 0
	tcpDstPort  = 2
	tcpSeqNum   = 4
	tcpAckNum   = 8
	tcpDataOff  = 12
	tcpFlags    = 13
	tcpWinSize  = 14
	tcpChecksum = 16
	tcpUrgent   = 18
)

const (
	// TCPMinimumSize is the size of a TCP header with no options.
	TCPMinimumSize = 20

	// TCPMaximumHeaderSize is the largest header the 4-bit data offset
	// field can describe (15 words).
	TCPMaximumHeaderSize = 60
)

// TCP flag bits, as returned by Flags.
const (
	TCPFlagFin uint8 = 1 << 0
	TCPFlagSyn uint8 = 1 << 1
	TCPFlagRst uint8 = 1 << 2
	TCPFlagPsh uint8 = 1 << 3
	TCPFlagAck uint8 = 1 << 4
	TCPFlagUrg uint8 = 1 << 5
	TCPFlagEce uint8 = 1 << 6
	TCPFlagCwr uint8 = 1 << 7
)

// TCP is a zero-copy view of a TCP header including any options.
type TCP []byte

// TCPFromBytes interprets b as a TCP header. The slice length must
// match the header's self-declared data offset exactly.
func TCPFromBytes(b []byte) (TCP, error) {
	if len(b) < TCPMinimumSize {
		return nil, ErrSizeMismatch
	}
	h := TCP(b)
	if len(b) != h.DataOffset() {
		return nil, ErrSizeMismatch
	}
	return h, nil
}

// SourcePort returns the source port field.
func (b TCP) SourcePort() uint16 {
	return binary.BigEndian.Uint16(b[tcpSrcPort:])
}

// DestinationPort returns the destination port field.
func (b TCP) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(b[tcpDstPort:])
}

// SequenceNumber returns the sequence number field.
func (b TCP) SequenceNumber() uint32 {
	return binary.BigEndian.Uint32(b[tcpSeqNum:])
}

// AckNumber returns the acknowledgment number field.
func (b TCP) AckNumber() uint32 {
	return binary.BigEndian.Uint32(b[tcpAckNum:])
}

// DataOffset returns the header length in bytes (data offset * 4).
func (b TCP) DataOffset() int {
	return int(b[tcpDataOff]>>4) * 4
}

// Flags returns the flags byte (FIN through CWR).
func (b TCP) Flags() uint8 {
	return b[tcpFlags]
}

// FlagSet reports whether every bit of mask is set.
func (b TCP) FlagSet(mask uint8) bool {
	return b.Flags()&mask == mask
}

// WindowSize returns the window size field.
func (b TCP) WindowSize() uint16 {
	return binary.BigEndian.Uint16(b[tcpWinSize:])
}

// Checksum returns the checksum field.
func (b TCP) Checksum() uint16 {
	return binary.BigEndian.Uint16(b[tcpChecksum:])
}

// UrgentPointer returns the urgent pointer field.
func (b TCP) UrgentPointer() uint16 {
	return binary.BigEndian.Uint16(b[tcpUrgent:])
}

// Options returns the option bytes between the fixed header and the
// payload.
func (b TCP) Options() []byte {
	return b[TCPMinimumSize:b.DataOffset()]
}

// SetSourcePort sets the source port field.
func (b TCP) SetSourcePort(v uint16) {
	binary.BigEndian.PutUint16(b[tcpSrcPort:], v)
}

// SetDestinationPort sets the destination port field.
func (b TCP) SetDestinationPort(v uint16) {
	binary.BigEndian.PutUint16(b[tcpDstPort:], v)
}

// SetSequenceNumber sets the sequence number field.
func (b TCP) SetSequenceNumber(v uint32) {
	binary.BigEndian.PutUint32(b[tcpSeqNum:], v)
}

// SetAckNumber sets the acknowledgment number field.
func (b TCP) SetAckNumber(v uint32) {
	binary.BigEndian.PutUint32(b[tcpAckNum:], v)
}

// SetFlags sets the flags byte.
func (b TCP) SetFlags(v uint8) {
	b[tcpFlags] = v
}

// SetWindowSize sets the window size field.
func (b TCP) SetWindowSize(v uint16) {
	binary.BigEndian.PutUint16(b[tcpWinSize:], v)
}

// SetChecksum sets the checksum field.
func (b TCP) SetChecksum(v uint16) {
	binary.BigEndian.PutUint16(b[tcpChecksum:], v)
}
