package source

import (
	"fmt"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

// FileConfig configures the offline pcap source.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// FileSource replays frames from a pcap file.
type FileSource struct {
	f *os.File
	r *pcapgo.Reader
}

// NewFileSource opens the pcap file at cfg.Path.
func NewFileSource(cfg FileConfig) (*FileSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open pcap file: %w", err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read pcap header: %w", err)
	}
	return &FileSource{f: f, r: r}, nil
}

// ReadFrame returns the next frame, or io.EOF at end of file.
func (s *FileSource) ReadFrame() ([]byte, gopacket.CaptureInfo, error) {
	return s.r.ReadPacketData()
}

// Name identifies the source kind.
func (s *FileSource) Name() string { return "pcap" }

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}
