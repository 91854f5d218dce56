package packet

import (
	"bytes"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/strix/pkg/netbuf"
	"firestige.xyz/strix/pkg/rawbuf"
)

// ---------------------------------------------------------------------------
// Frame builders
// ---------------------------------------------------------------------------

func ethFrame(ethertype EtherType, payload []byte) []byte {
	b := make([]byte, EthernetMinimumSize, EthernetMinimumSize+len(payload))
	eth := Ethernet(b)
	src, _ := net.ParseMAC("02:00:00:00:00:01")
	dst, _ := net.ParseMAC("02:00:00:00:00:02")
	eth.SetSourceAddress(src)
	eth.SetDestinationAddress(dst)
	eth.SetEtherType(ethertype)
	return append(b, payload...)
}

func vlanTag(id uint16, inner EtherType) []byte {
	b := make([]byte, VLANSize)
	v := VLAN(b)
	v.SetTCI(id & 0x0FFF)
	v.SetEtherType(inner)
	return b
}

func ipv4Packet(proto IPProtocol, payload []byte) []byte {
	b := make([]byte, IPv4MinimumSize, IPv4MinimumSize+len(payload))
	b[0] = 0x45
	h := IPv4(b)
	h.SetTotalLength(uint16(IPv4MinimumSize + len(payload)))
	h.SetTTL(64)
	h.SetProtocol(proto)
	h.SetSourceAddress(netip.MustParseAddr("192.0.2.1"))
	h.SetDestinationAddress(netip.MustParseAddr("192.0.2.2"))
	h.UpdateChecksum()
	return append(b, payload...)
}

func ipv6Packet(next IPProtocol, payload []byte) []byte {
	b := make([]byte, IPv6MinimumSize, IPv6MinimumSize+len(payload))
	b[0] = 0x60
	h := IPv6(b)
	h.SetPayloadLength(uint16(len(payload)))
	h.SetNextHeader(next)
	h.SetHopLimit(64)
	h.SetSourceAddress(netip.MustParseAddr("2001:db8::1"))
	h.SetDestinationAddress(netip.MustParseAddr("2001:db8::2"))
	return append(b, payload...)
}

func tcpSegment(srcPort, dstPort uint16, payload []byte) []byte {
	b := make([]byte, TCPMinimumSize, TCPMinimumSize+len(payload))
	b[tcpDataOff] = 5 << 4
	h := TCP(b)
	h.SetSourcePort(srcPort)
	h.SetDestinationPort(dstPort)
	h.SetSequenceNumber(1000)
	h.SetFlags(TCPFlagAck)
	return append(b, payload...)
}

func udpDatagram(srcPort, dstPort uint16, payload []byte) []byte {
	b := make([]byte, UDPMinimumSize, UDPMinimumSize+len(payload))
	h := UDP(b)
	h.SetSourcePort(srcPort)
	h.SetDestinationPort(dstPort)
	h.SetLength(uint16(UDPMinimumSize + len(payload)))
	return append(b, payload...)
}

func newPacket(frame []byte) *Packet {
	return New(netbuf.New(rawbuf.FromSlice(frame)))
}

// ---------------------------------------------------------------------------
// Walker
// ---------------------------------------------------------------------------

func TestWalkEthIPv4TCP(t *testing.T) {
	appData := []byte("GET / HTTP/1.1\r\n")
	frame := ethFrame(EtherTypeIPv4, ipv4Packet(IPProtocolTCP, tcpSegment(49152, 80, appData)))

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerPayload {
		t.Fatalf("layer = %v, want payload", p.Layer())
	}
	if p.Offset() != 54 {
		t.Errorf("offset = %d, want 54", p.Offset())
	}

	eth, ok := p.Ethernet()
	if !ok {
		t.Fatal("no ethernet header")
	}
	if eth.EtherType() != EtherTypeIPv4 {
		t.Errorf("ethertype = %v, want ipv4", eth.EtherType())
	}

	ip, ok := p.IPv4()
	if !ok {
		t.Fatal("no ipv4 header")
	}
	if ip.SourceAddress() != netip.MustParseAddr("192.0.2.1") {
		t.Errorf("ip src = %v", ip.SourceAddress())
	}
	if p.NetworkProtocol() != EtherTypeIPv4 || p.TransportProtocol() != IPProtocolTCP {
		t.Errorf("protocols = %v/%v, want ipv4/tcp",
			p.NetworkProtocol(), p.TransportProtocol())
	}

	tcp, ok := p.TCP()
	if !ok {
		t.Fatal("no tcp header")
	}
	if tcp.SourcePort() != 49152 || tcp.DestinationPort() != 80 {
		t.Errorf("ports = %d/%d, want 49152/80",
			tcp.SourcePort(), tcp.DestinationPort())
	}
	if _, ok := p.UDP(); ok {
		t.Error("udp header reported on a tcp packet")
	}

	payload, err := p.Payload()
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if !bytes.Equal(payload, appData) {
		t.Errorf("payload = %q, want %q", payload, appData)
	}
}

func TestWalkEthVLANIPv6UDP(t *testing.T) {
	frame := ethFrame(EtherTypeVLAN, nil)
	frame = append(frame, vlanTag(42, EtherTypeIPv6)...)
	frame = append(frame, ipv6Packet(IPProtocolUDP, udpDatagram(5353, 5353, []byte{0xCA, 0xFE}))...)

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerPayload {
		t.Fatalf("layer = %v, want payload", p.Layer())
	}
	// 14 eth + 4 vlan + 40 ipv6 + 8 udp
	if p.Offset() != 66 {
		t.Errorf("offset = %d, want 66", p.Offset())
	}

	vlans := p.VLANs()
	if len(vlans) != 1 {
		t.Fatalf("got %d vlan tags, want 1", len(vlans))
	}
	if vlans[0].ID() != 42 {
		t.Errorf("vlan id = %d, want 42", vlans[0].ID())
	}

	ip, ok := p.IPv6()
	if !ok {
		t.Fatal("no ipv6 header")
	}
	if ip.NextHeader() != IPProtocolUDP {
		t.Errorf("next header = %v, want udp", ip.NextHeader())
	}

	udp, ok := p.UDP()
	if !ok {
		t.Fatal("no udp header")
	}
	if udp.SourcePort() != 5353 {
		t.Errorf("udp src port = %d, want 5353", udp.SourcePort())
	}
}

func TestWalkQinQ(t *testing.T) {
	frame := ethFrame(EtherTypeQinQ, nil)
	frame = append(frame, vlanTag(100, EtherTypeVLAN)...)
	frame = append(frame, vlanTag(200, EtherTypeIPv4)...)
	frame = append(frame, ipv4Packet(IPProtocolUDP, udpDatagram(1, 2, nil))...)

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerPayload {
		t.Fatalf("layer = %v, want payload", p.Layer())
	}

	vlans := p.VLANs()
	if len(vlans) != 2 {
		t.Fatalf("got %d vlan tags, want 2", len(vlans))
	}
	if vlans[0].ID() != 100 || vlans[1].ID() != 200 {
		t.Errorf("vlan ids = %d, %d, want 100, 200", vlans[0].ID(), vlans[1].ID())
	}
}

func TestWalkUnknownEtherType(t *testing.T) {
	// Bare 14-byte frame with an unrecognized ethertype: terminal
	// Unrecognized with the link header consumed.
	frame := ethFrame(EtherTypeARP, nil)

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerUnrecognized {
		t.Fatalf("layer = %v, want unrecognized", p.Layer())
	}
	if p.Offset() != 14 {
		t.Errorf("offset = %d, want 14", p.Offset())
	}
	if _, ok := p.Ethernet(); !ok {
		t.Error("link header should remain available")
	}
	if p.NetworkProtocol() != EtherTypeARP {
		t.Errorf("network protocol = %v, want arp", p.NetworkProtocol())
	}
}

func TestWalkTruncatedLink(t *testing.T) {
	// 13 bytes cannot hold an Ethernet header: underflow, nothing
	// consumed, state unchanged.
	frame := ethFrame(EtherTypeIPv4, nil)[:13]

	p := newPacket(frame)
	err := p.Walk()
	if !errors.Is(err, netbuf.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if p.Layer() != LayerLink {
		t.Errorf("layer = %v, want link", p.Layer())
	}
	if p.Offset() != 0 {
		t.Errorf("offset = %d, want 0", p.Offset())
	}

	// A retry observes the exact same failure.
	if err := p.Advance(); !errors.Is(err, netbuf.ErrUnderflow) {
		t.Errorf("retry: expected ErrUnderflow, got %v", err)
	}
	if p.Offset() != 0 {
		t.Errorf("retry moved the cursor to %d", p.Offset())
	}
}

func TestWalkTruncatedVLANChain(t *testing.T) {
	// Ethernet promises a VLAN tag but only 2 of its 4 bytes follow.
	frame := ethFrame(EtherTypeVLAN, []byte{0x00, 0x2A})

	p := newPacket(frame)
	if err := p.Walk(); !errors.Is(err, netbuf.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	// The link step is atomic: not even the Ethernet header was
	// consumed.
	if p.Offset() != 0 {
		t.Errorf("offset = %d, want 0", p.Offset())
	}
	if _, ok := p.Ethernet(); ok {
		t.Error("no header should be retained after a failed link step")
	}
}

func TestMinimumLinkThenUnderflow(t *testing.T) {
	// Exactly one link header with a recognized next protocol: the
	// first step commits, the second finds nothing to read.
	frame := ethFrame(EtherTypeIPv4, nil)

	p := newPacket(frame)
	if err := p.Advance(); err != nil {
		t.Fatalf("first Advance failed: %v", err)
	}
	if p.Layer() != LayerNetwork || p.Offset() != 14 {
		t.Fatalf("after link step: layer=%v offset=%d", p.Layer(), p.Offset())
	}
	if err := p.Advance(); !errors.Is(err, netbuf.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if p.Offset() != 14 {
		t.Errorf("failed step moved the cursor to %d", p.Offset())
	}
}

func TestWalkTruncatedIPv4(t *testing.T) {
	frame := ethFrame(EtherTypeIPv4, ipv4Packet(IPProtocolTCP, nil)[:10])

	p := newPacket(frame)
	if err := p.Walk(); !errors.Is(err, netbuf.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	// The link step committed; the network step did not.
	if p.Layer() != LayerNetwork {
		t.Errorf("layer = %v, want network", p.Layer())
	}
	if p.Offset() != 14 {
		t.Errorf("offset = %d, want 14", p.Offset())
	}
}

func TestWalkIPVersionMismatch(t *testing.T) {
	// Ethertype says IPv4 but the bytes carry version 6. Terminal
	// Unrecognized, nothing consumed past the link header.
	inner := ipv4Packet(IPProtocolTCP, nil)
	inner[0] = 0x65
	frame := ethFrame(EtherTypeIPv4, inner)

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerUnrecognized {
		t.Fatalf("layer = %v, want unrecognized", p.Layer())
	}
	if p.Offset() != 14 {
		t.Errorf("offset = %d, want 14", p.Offset())
	}
	if _, ok := p.IPv4(); ok {
		t.Error("ipv4 header reported despite version mismatch")
	}
}

func TestWalkBadIHL(t *testing.T) {
	inner := ipv4Packet(IPProtocolTCP, nil)
	inner[0] = 0x43 // version 4, IHL 3 words: below the minimum
	frame := ethFrame(EtherTypeIPv4, inner)

	p := newPacket(frame)
	if err := p.Walk(); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
	if p.Layer() != LayerNetwork {
		t.Errorf("layer = %v, want network", p.Layer())
	}
	if p.Offset() != 14 {
		t.Errorf("offset = %d, want 14", p.Offset())
	}
}

func TestWalkUnknownTransport(t *testing.T) {
	frame := ethFrame(EtherTypeIPv4, ipv4Packet(IPProtocolICMP, []byte{8, 0, 0, 0}))

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerUnrecognized {
		t.Fatalf("layer = %v, want unrecognized", p.Layer())
	}
	if _, ok := p.IPv4(); !ok {
		t.Error("network header should remain available")
	}
	if p.TransportProtocol() != IPProtocolICMP {
		t.Errorf("transport protocol = %v, want icmp", p.TransportProtocol())
	}
	// The ICMP bytes sit untouched in the payload.
	payload, err := p.Payload()
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if len(payload) != 4 || payload[0] != 8 {
		t.Errorf("payload = %v, want the 4 icmp bytes", payload)
	}
}

func TestTerminalAdvanceIsNoop(t *testing.T) {
	frame := ethFrame(EtherTypeARP, nil)
	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if !p.Done() {
		t.Fatal("expected a terminal state")
	}

	layer, off := p.Layer(), p.Offset()
	for i := 0; i < 3; i++ {
		if err := p.Advance(); err != nil {
			t.Fatalf("terminal Advance returned %v", err)
		}
	}
	if p.Layer() != layer || p.Offset() != off {
		t.Errorf("terminal Advance changed state: %v/%d -> %v/%d",
			layer, off, p.Layer(), p.Offset())
	}
}

func TestHeaderMutationRoundTrip(t *testing.T) {
	frame := ethFrame(EtherTypeIPv4, ipv4Packet(IPProtocolTCP, tcpSegment(1, 2, nil)))

	p := newPacket(frame)
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	ip, _ := p.IPv4()
	ip.SetTTL(ip.TTL() - 1)
	ip.UpdateChecksum()

	// Header views alias the frame: the mutation is visible to a fresh
	// walk over the same bytes.
	q := newPacket(frame)
	if err := q.Walk(); err != nil {
		t.Fatalf("second Walk failed: %v", err)
	}
	ip2, _ := q.IPv4()
	if ip2.TTL() != 63 {
		t.Errorf("ttl after mutation = %d, want 63", ip2.TTL())
	}
	if ip2.CalculateChecksum() != ip2.Checksum() {
		t.Errorf("checksum stale after UpdateChecksum")
	}
}

// The walker must agree with an independent decoder on a frame built
// by one.
func TestWalkAgainstGopacket(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IPv4(198, 51, 100, 7).To4(),
		DstIP:    net.IPv4(198, 51, 100, 9).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: 33000,
		DstPort: 443,
		Seq:     0x1020304,
		SYN:     true,
		Window:  64240,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum failed: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp,
		gopacket.Payload([]byte("hello"))); err != nil {
		t.Fatalf("SerializeLayers failed: %v", err)
	}

	p := newPacket(buf.Bytes())
	if err := p.Walk(); err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if p.Layer() != LayerPayload {
		t.Fatalf("layer = %v, want payload", p.Layer())
	}

	gotIP, ok := p.IPv4()
	if !ok {
		t.Fatal("no ipv4 header")
	}
	if gotIP.SourceAddress().String() != ip.SrcIP.String() {
		t.Errorf("ip src = %v, want %v", gotIP.SourceAddress(), ip.SrcIP)
	}
	if gotIP.CalculateChecksum() != gotIP.Checksum() {
		t.Errorf("walker disagrees with gopacket on the ip checksum")
	}

	gotTCP, ok := p.TCP()
	if !ok {
		t.Fatal("no tcp header")
	}
	if gotTCP.SourcePort() != uint16(tcp.SrcPort) ||
		gotTCP.DestinationPort() != uint16(tcp.DstPort) {
		t.Errorf("tcp ports = %d/%d, want %d/%d",
			gotTCP.SourcePort(), gotTCP.DestinationPort(), tcp.SrcPort, tcp.DstPort)
	}
	if !gotTCP.FlagSet(TCPFlagSyn) {
		t.Error("SYN flag lost")
	}

	payload, err := p.Payload()
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}
	if !bytes.Equal(payload, []byte("hello")) {
		t.Errorf("payload = %q, want hello", payload)
	}
}

func TestWalkEmptyFrame(t *testing.T) {
	p := newPacket(nil)
	if err := p.Walk(); !errors.Is(err, netbuf.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if p.Layer() != LayerLink {
		t.Errorf("layer = %v, want link", p.Layer())
	}
}
