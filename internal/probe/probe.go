// Package probe loads a compiled XDP object into the kernel and
// attaches it to an interface. It is the kernel-side counterpart of
// the userspace filter engine: the packet walking happens in the
// probe's bytecode, and this package only manages its lifecycle and
// the maps it exports.
package probe

import (
	"fmt"
	"net"
	"strings"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
)

// AttachMode selects how the XDP program hooks into the driver path.
type AttachMode int

const (
	// ModeGeneric runs the program in the generic kernel path.
	// Works everywhere, slowest.
	ModeGeneric AttachMode = iota
	// ModeDriver runs the program in the NIC driver's native hook.
	ModeDriver
	// ModeOffload pushes the program onto supported hardware.
	ModeOffload
)

// ParseAttachMode maps a config string to an AttachMode.
func ParseAttachMode(s string) (AttachMode, error) {
	switch strings.ToLower(s) {
	case "generic", "":
		return ModeGeneric, nil
	case "driver", "native":
		return ModeDriver, nil
	case "offload", "hw":
		return ModeOffload, nil
	}
	return ModeGeneric, fmt.Errorf("unknown attach mode %q", s)
}

func (m AttachMode) xdpFlags() link.XDPAttachFlags {
	switch m {
	case ModeDriver:
		return link.XDPDriverMode
	case ModeOffload:
		return link.XDPOffloadMode
	default:
		return link.XDPGenericMode
	}
}

// Probe is a loaded XDP collection, optionally attached to an
// interface.
type Probe struct {
	coll *ebpf.Collection
	lnk  link.Link
}

// Load reads and verifies the compiled object at path.
func Load(path string) (*Probe, error) {
	coll, err := ebpf.LoadCollection(path)
	if err != nil {
		return nil, fmt.Errorf("load xdp object: %w", err)
	}
	return &Probe{coll: coll}, nil
}

// Attach hooks the named program to the given interface.
func (p *Probe) Attach(program, device string, mode AttachMode) error {
	prog, ok := p.coll.Programs[program]
	if !ok {
		return fmt.Errorf("program %q not found in object", program)
	}
	iface, err := net.InterfaceByName(device)
	if err != nil {
		return fmt.Errorf("resolve interface %s: %w", device, err)
	}
	lnk, err := link.AttachXDP(link.XDPOptions{
		Program:   prog,
		Interface: iface.Index,
		Flags:     mode.xdpFlags(),
	})
	if err != nil {
		return fmt.Errorf("attach xdp to %s: %w", device, err)
	}
	p.lnk = lnk
	return nil
}

// Map returns the named map exported by the object.
func (p *Probe) Map(name string) (*ebpf.Map, bool) {
	m, ok := p.coll.Maps[name]
	return m, ok
}

// Close detaches the program and releases the collection.
func (p *Probe) Close() error {
	var err error
	if p.lnk != nil {
		err = p.lnk.Close()
		p.lnk = nil
	}
	p.coll.Close()
	return err
}
