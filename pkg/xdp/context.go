package xdp

import (
	"firestige.xyz/strix/pkg/netbuf"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/rawbuf"
)

// Context describes one frame handed to a handler: the buffer region
// plus receive metadata, mirroring the kernel's xdp_md. The region is
// borrowed and valid only for the duration of the handler call; a
// Context must not be retained across invocations.
type Context struct {
	region rawbuf.Region

	// IfIndex is the index of the interface the frame arrived on, or
	// zero when the source carries no interface metadata.
	IfIndex int
}

// NewContext wraps a frame already held as a byte slice, the userspace
// equivalent of receiving data/data_end from the kernel.
func NewContext(frame []byte) *Context {
	return &Context{region: rawbuf.FromSlice(frame)}
}

// ContextFromAddrs wraps a raw address pair.
func ContextFromAddrs(start, end uintptr) (*Context, error) {
	r, err := rawbuf.FromAddrs(start, end)
	if err != nil {
		return nil, err
	}
	return &Context{region: r}, nil
}

// Region returns the frame's buffer region with write capability.
func (c *Context) Region() rawbuf.RawBufMut {
	return c.region
}

// Data returns a fresh parse cursor over the frame, positioned at
// byte zero.
func (c *Context) Data() *netbuf.NetBuf {
	return netbuf.New(c.region)
}

// Packet returns a fresh protocol walker over the frame.
func (c *Context) Packet() *packet.Packet {
	return packet.New(c.Data())
}

// Len returns the frame length in bytes.
func (c *Context) Len() int {
	return c.region.Len()
}
