// Package packet interprets the bytes of a netbuf as a nested sequence
// of protocol headers. Header types are zero-copy views over the
// underlying region in the style of struct-of-offsets accessors; the
// Packet walker advances through the layers using the next-protocol
// field embedded in each header.
package packet

import "fmt"

// EtherType identifies the protocol encapsulated by a link-layer
// frame. Values outside the recognized set are carried as-is; an
// unknown EtherType is data, not an error.
type EtherType uint16

// Recognized EtherType values.
const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
	EtherTypeVLAN EtherType = 0x8100
	EtherTypeIPv6 EtherType = 0x86DD
	EtherTypeQinQ EtherType = 0x88A8
)

func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "ipv4"
	case EtherTypeARP:
		return "arp"
	case EtherTypeVLAN:
		return "vlan"
	case EtherTypeIPv6:
		return "ipv6"
	case EtherTypeQinQ:
		return "qinq"
	default:
		return fmt.Sprintf("ethertype(0x%04x)", uint16(t))
	}
}

// IPProtocol identifies the transport protocol carried by an IP
// packet (the IPv4 protocol field / IPv6 next-header field).
type IPProtocol uint8

// Recognized IPProtocol values.
const (
	IPProtocolICMP   IPProtocol = 1
	IPProtocolTCP    IPProtocol = 6
	IPProtocolUDP    IPProtocol = 17
	IPProtocolICMPv6 IPProtocol = 58
)

func (p IPProtocol) String() string {
	switch p {
	case IPProtocolICMP:
		return "icmp"
	case IPProtocolTCP:
		return "tcp"
	case IPProtocolUDP:
		return "udp"
	case IPProtocolICMPv6:
		return "icmpv6"
	default:
		return fmt.Sprintf("ipproto(%d)", uint8(p))
	}
}

// Layer is the position of a Packet in the protocol walk.
type Layer int

const (
	// LayerLink expects a link-layer header next.
	LayerLink Layer = iota
	// LayerNetwork expects a network-layer header next.
	LayerNetwork
	// LayerTransport expects a transport-layer header next.
	LayerTransport
	// LayerPayload is terminal: every expected header was decoded and
	// the cursor sits at the application payload.
	LayerPayload
	// LayerUnrecognized is terminal: a next-protocol field named a
	// protocol outside the recognized set. The headers decoded before
	// it remain available. Not an error.
	LayerUnrecognized
)

func (l Layer) String() string {
	switch l {
	case LayerLink:
		return "link"
	case LayerNetwork:
		return "network"
	case LayerTransport:
		return "transport"
	case LayerPayload:
		return "payload"
	case LayerUnrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}
