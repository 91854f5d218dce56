// Package filter implements the userspace verdict engine: a rule set
// compiled from configuration that walks each frame's headers and
// produces an XDP action, the same contract a kernel program would
// fulfil.
package filter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/xdp"
)

// rule is a compiled match clause.
type rule struct {
	name     string
	proto    packet.IPProtocol // 0 matches any
	srcNets  []netip.Prefix
	dstNets  []netip.Prefix
	srcPorts []uint16
	dstPorts []uint16
	action   xdp.Action
}

// Engine matches frames against rules, first match wins.
type Engine struct {
	defaultAction xdp.Action
	rules         []rule
	flows         xdp.Map
}

// New compiles cfg into an Engine. flows may be nil to disable flow
// accounting.
func New(cfg config.FilterConfig, flows xdp.Map) (*Engine, error) {
	def, err := ParseAction(cfg.DefaultAction)
	if err != nil {
		return nil, err
	}
	e := &Engine{defaultAction: def, flows: flows}

	for _, rc := range cfg.Rules {
		r := rule{name: rc.Name}
		if r.action, err = ParseAction(rc.Action); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.Name, err)
		}
		switch strings.ToLower(rc.Protocol) {
		case "":
		case "tcp":
			r.proto = packet.IPProtocolTCP
		case "udp":
			r.proto = packet.IPProtocolUDP
		default:
			return nil, fmt.Errorf("rule %q: unknown protocol %q", rc.Name, rc.Protocol)
		}
		if r.srcNets, err = parsePrefixes(rc.SrcCIDRs); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.Name, err)
		}
		if r.dstNets, err = parsePrefixes(rc.DstCIDRs); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.Name, err)
		}
		r.srcPorts = rc.SrcPorts
		r.dstPorts = rc.DstPorts
		e.rules = append(e.rules, r)
	}
	return e, nil
}

// Handle is the xdp.Handler for one frame. Parse failures are
// recoverable by contract: a malformed frame is dropped, never
// escalated.
func (e *Engine) Handle(ctx *xdp.Context) (xdp.Action, error) {
	pkt := ctx.Packet()
	if err := pkt.Walk(); err != nil {
		return xdp.ActionDrop, err
	}

	tuple, ok := extractTuple(pkt)
	if !ok {
		// Non-IP or unrecognized traffic follows the default action.
		return e.defaultAction, nil
	}

	action := e.defaultAction
	for i := range e.rules {
		if e.rules[i].match(tuple) {
			action = e.rules[i].action
			break
		}
	}

	if e.flows != nil {
		e.countFlow(tuple)
	}
	if action == xdp.ActionTx {
		bounce(pkt)
	}
	return action, nil
}

// tuple is the flow 5-tuple pulled out of a walked packet.
type tuple struct {
	src, dst         netip.Addr
	srcPort, dstPort uint16
	proto            packet.IPProtocol
}

func extractTuple(pkt *packet.Packet) (tuple, bool) {
	var t tuple
	if ip4, ok := pkt.IPv4(); ok {
		t.src, t.dst = ip4.SourceAddress(), ip4.DestinationAddress()
	} else if ip6, ok := pkt.IPv6(); ok {
		t.src, t.dst = ip6.SourceAddress(), ip6.DestinationAddress()
	} else {
		return t, false
	}
	t.proto = pkt.TransportProtocol()
	if tcp, ok := pkt.TCP(); ok {
		t.srcPort, t.dstPort = tcp.SourcePort(), tcp.DestinationPort()
	} else if udp, ok := pkt.UDP(); ok {
		t.srcPort, t.dstPort = udp.SourcePort(), udp.DestinationPort()
	}
	return t, true
}

func (r *rule) match(t tuple) bool {
	if r.proto != 0 && r.proto != t.proto {
		return false
	}
	if !matchNets(r.srcNets, t.src) || !matchNets(r.dstNets, t.dst) {
		return false
	}
	return matchPorts(r.srcPorts, t.srcPort) && matchPorts(r.dstPorts, t.dstPort)
}

func matchNets(nets []netip.Prefix, a netip.Addr) bool {
	if len(nets) == 0 {
		return true
	}
	for _, n := range nets {
		if n.Contains(a) {
			return true
		}
	}
	return false
}

func matchPorts(ports []uint16, p uint16) bool {
	if len(ports) == 0 {
		return true
	}
	for _, want := range ports {
		if want == p {
			return true
		}
	}
	return false
}

// bounce prepares a frame for ActionTx: the IPv4 TTL is decremented
// and the header checksum fixed up, writing through the frame bytes.
func bounce(pkt *packet.Packet) {
	ip4, ok := pkt.IPv4()
	if !ok {
		if ip6, ok := pkt.IPv6(); ok && ip6.HopLimit() > 0 {
			ip6.SetHopLimit(ip6.HopLimit() - 1)
		}
		return
	}
	if ttl := ip4.TTL(); ttl > 0 {
		ip4.SetTTL(ttl - 1)
		ip4.UpdateChecksum()
	}
}

func (e *Engine) countFlow(t tuple) {
	key := flowKey(t)
	var count uint64
	if v, ok := e.flows.Lookup(key); ok && len(v) == 8 {
		count = binary.LittleEndian.Uint64(v)
	}
	count++
	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], count)
	_ = e.flows.Update(key, v[:])
}

// flowKey encodes the tuple as addr|addr|port|port|proto.
func flowKey(t tuple) []byte {
	key := make([]byte, 0, 2*16+5)
	key = append(key, t.src.AsSlice()...)
	key = append(key, t.dst.AsSlice()...)
	key = append(key, byte(t.srcPort>>8), byte(t.srcPort),
		byte(t.dstPort>>8), byte(t.dstPort), byte(t.proto))
	return key
}

// ParseAction maps a config string to an XDP action.
func ParseAction(s string) (xdp.Action, error) {
	switch strings.ToLower(s) {
	case "aborted":
		return xdp.ActionAborted, nil
	case "drop":
		return xdp.ActionDrop, nil
	case "pass", "":
		return xdp.ActionPass, nil
	case "tx":
		return xdp.ActionTx, nil
	case "redirect":
		return xdp.ActionRedirect, nil
	}
	return xdp.ActionPass, errors.New("strix: unknown action " + s)
}

func parsePrefixes(cidrs []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
