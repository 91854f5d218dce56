package packet

import (
	"errors"

	"firestige.xyz/strix/pkg/netbuf"
)

// ErrSizeMismatch is returned when a header constructor receives a
// slice whose length does not match the header's declared size.
var ErrSizeMismatch = errors.New("strix: header size mismatch")

// maxVLANTags bounds the 802.1Q tag chain consumed during the link
// step. Two tags covers QinQ; a longer chain parks the walk in
// LayerUnrecognized.
const maxVLANTags = 2

// maxAdvances bounds Walk. Link, network and transport are the only
// non-terminal states, so three transitions always reach a terminal.
const maxAdvances = 3

// Packet walks a NetBuf through the protocol layers, materializing a
// zero-copy header view per recognized layer. One Packet serves one
// invocation; it holds no heap state beyond the views, which alias the
// buffer and die with it.
type Packet struct {
	buf   *netbuf.NetBuf
	layer Layer

	eth    Ethernet
	vlans  [maxVLANTags]VLAN
	nvlans int
	ip4    IPv4
	ip6    IPv6
	tcp    TCP
	udp    UDP

	netProto   EtherType
	transProto IPProtocol
}

// New returns a Packet positioned at the link layer of buf.
func New(buf *netbuf.NetBuf) *Packet {
	return &Packet{buf: buf}
}

// Layer returns the walker's current position.
func (p *Packet) Layer() Layer {
	return p.layer
}

// Done reports whether the walk reached a terminal state.
func (p *Packet) Done() bool {
	return p.layer == LayerPayload || p.layer == LayerUnrecognized
}

// Advance decodes the header expected at the current layer and
// transitions according to its next-protocol field. An unrecognized
// next protocol parks the walker in LayerUnrecognized with everything
// decoded so far retained; that is a terminal state, not an error.
// On ErrUnderflow or ErrSizeMismatch neither the state nor the cursor
// moves, so a retry observes the same result. Advancing a terminal
// packet is a no-op.
func (p *Packet) Advance() error {
	switch p.layer {
	case LayerLink:
		return p.advanceLink()
	case LayerNetwork:
		return p.advanceNetwork()
	case LayerTransport:
		return p.advanceTransport()
	default:
		return nil
	}
}

// Walk advances to a terminal state. The loop is bounded by the fixed
// layer count, never by input.
func (p *Packet) Walk() error {
	for i := 0; i < maxAdvances && !p.Done(); i++ {
		if err := p.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// advanceLink consumes the Ethernet header and up to maxVLANTags
// 802.1Q tags in one atomic step: sizes are resolved with Peek and the
// cursor moves once, so a truncated tag chain leaves it untouched.
func (p *Packet) advanceLink() error {
	b, err := p.buf.Peek(EthernetMinimumSize)
	if err != nil {
		return err
	}
	next := Ethernet(b).EtherType()

	linkLen := EthernetMinimumSize
	tags := 0
	for ; tags < maxVLANTags && (next == EtherTypeVLAN || next == EtherTypeQinQ); tags++ {
		t, err := p.buf.Peek(linkLen + VLANSize)
		if err != nil {
			return err
		}
		next = VLAN(t[linkLen:]).EtherType()
		linkLen += VLANSize
	}

	b, err = p.buf.Read(linkLen)
	if err != nil {
		return err
	}
	p.eth, _ = EthernetFromBytes(b[:EthernetMinimumSize])
	for i := 0; i < tags; i++ {
		off := EthernetMinimumSize + i*VLANSize
		p.vlans[i], _ = VLANFromBytes(b[off : off+VLANSize])
	}
	p.nvlans = tags

	p.netProto = next
	switch next {
	case EtherTypeIPv4, EtherTypeIPv6:
		p.layer = LayerNetwork
	default:
		p.layer = LayerUnrecognized
	}
	return nil
}

func (p *Packet) advanceNetwork() error {
	switch p.netProto {
	case EtherTypeIPv4:
		b, err := p.buf.Peek(IPv4MinimumSize)
		if err != nil {
			return err
		}
		if IPv4(b).Version() != IPv4Version {
			// The ethertype promised IPv4 but the bytes disagree.
			// Nothing is consumed; the caller keeps the link headers.
			p.layer = LayerUnrecognized
			return nil
		}
		hlen := IPv4(b).HeaderLength()
		if hlen < IPv4MinimumSize {
			return ErrSizeMismatch
		}
		b, err = p.buf.Read(hlen)
		if err != nil {
			return err
		}
		h, err := IPv4FromBytes(b)
		if err != nil {
			return err
		}
		p.ip4 = h
		p.transProto = h.Protocol()
	case EtherTypeIPv6:
		b, err := p.buf.Peek(IPv6MinimumSize)
		if err != nil {
			return err
		}
		if IPv6(b).Version() != IPv6Version {
			p.layer = LayerUnrecognized
			return nil
		}
		b, err = p.buf.Read(IPv6MinimumSize)
		if err != nil {
			return err
		}
		h, err := IPv6FromBytes(b)
		if err != nil {
			return err
		}
		p.ip6 = h
		p.transProto = h.NextHeader()
	}

	switch p.transProto {
	case IPProtocolTCP, IPProtocolUDP:
		p.layer = LayerTransport
	default:
		p.layer = LayerUnrecognized
	}
	return nil
}

func (p *Packet) advanceTransport() error {
	switch p.transProto {
	case IPProtocolTCP:
		b, err := p.buf.Peek(TCPMinimumSize)
		if err != nil {
			return err
		}
		doff := TCP(b).DataOffset()
		if doff < TCPMinimumSize {
			return ErrSizeMismatch
		}
		b, err = p.buf.Read(doff)
		if err != nil {
			return err
		}
		p.tcp, _ = TCPFromBytes(b)
	case IPProtocolUDP:
		b, err := p.buf.Read(UDPMinimumSize)
		if err != nil {
			return err
		}
		p.udp, _ = UDPFromBytes(b)
	}
	p.layer = LayerPayload
	return nil
}

// Ethernet returns the decoded Ethernet header, if the walk got that
// far.
func (p *Packet) Ethernet() (Ethernet, bool) {
	return p.eth, p.eth != nil
}

// VLANs returns the decoded 802.1Q tags in outer-to-inner order.
func (p *Packet) VLANs() []VLAN {
	return p.vlans[:p.nvlans]
}

// IPv4 returns the decoded IPv4 header, if present.
func (p *Packet) IPv4() (IPv4, bool) {
	return p.ip4, p.ip4 != nil
}

// IPv6 returns the decoded IPv6 header, if present.
func (p *Packet) IPv6() (IPv6, bool) {
	return p.ip6, p.ip6 != nil
}

// TCP returns the decoded TCP header, if present.
func (p *Packet) TCP() (TCP, bool) {
	return p.tcp, p.tcp != nil
}

// UDP returns the decoded UDP header, if present.
func (p *Packet) UDP() (UDP, bool) {
	return p.udp, p.udp != nil
}

// NetworkProtocol returns the ethertype observed after the link layer.
// Zero until the link step ran.
func (p *Packet) NetworkProtocol() EtherType {
	return p.netProto
}

// TransportProtocol returns the transport protocol observed after the
// network layer. Zero until the network step ran.
func (p *Packet) TransportProtocol() IPProtocol {
	return p.transProto
}

// Payload returns the bytes remaining past the decoded headers without
// consuming them.
func (p *Packet) Payload() ([]byte, error) {
	return p.buf.Peek(p.buf.Remaining())
}

// Offset returns the cursor position: the number of header bytes
// consumed so far.
func (p *Packet) Offset() int {
	return p.buf.Offset()
}
