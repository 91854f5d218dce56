// Package source provides frame sources for the agent: offline pcap
// files and live AF_PACKET capture. A source hands out raw Ethernet
// frames; the caller wraps each one in a per-invocation xdp.Context.
package source

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/mitchellh/mapstructure"
)

// Source yields raw frames until exhausted or closed.
type Source interface {
	// ReadFrame returns the next frame. It returns io.EOF when the
	// source is exhausted.
	ReadFrame() ([]byte, gopacket.CaptureInfo, error)
	// Name identifies the source kind for logs and metrics.
	Name() string
	// Close releases the underlying handle.
	Close() error
}

// Options is the raw per-kind configuration, decoded with mapstructure
// into the kind's own config struct.
type Options map[string]any

// New builds a source of the given kind.
func New(kind string, opts Options) (Source, error) {
	switch kind {
	case "pcap":
		var cfg FileConfig
		if err := mapstructure.Decode(opts, &cfg); err != nil {
			return nil, fmt.Errorf("pcap source config: %w", err)
		}
		return NewFileSource(cfg)
	case "afpacket":
		var cfg AFPacketConfig
		if err := mapstructure.Decode(opts, &cfg); err != nil {
			return nil, fmt.Errorf("afpacket source config: %w", err)
		}
		return NewAFPacketSource(cfg)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}
