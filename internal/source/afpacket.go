package source

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"
)

// AFPacketConfig configures the live AF_PACKET source.
type AFPacketConfig struct {
	Device       string `mapstructure:"device"`
	SnapLen      int    `mapstructure:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	FanoutID     uint16 `mapstructure:"fanout_id"`
	BPFFilter    string `mapstructure:"bpf_filter"`
}

// AFPacketSource captures live frames through a TPacket v3 ring.
type AFPacketSource struct {
	handle *afpacket.TPacket
	device string
}

// NewAFPacketSource opens the capture ring on cfg.Device.
func NewAFPacketSource(cfg AFPacketConfig) (*AFPacketSource, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("device is required")
	}
	if cfg.SnapLen == 0 {
		cfg.SnapLen = 65535
	}
	if cfg.BufferSizeMB == 0 {
		cfg.BufferSizeMB = 8
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = 100
	}

	frameSize, blockSize, numBlocks, err := ringLayout(cfg.BufferSizeMB, cfg.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Device),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(pollTimeout(cfg.TimeoutMs)),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("open af_packet ring: %w", err)
	}

	if cfg.FanoutID > 0 {
		if err := tp.SetFanout(afpacket.FanoutHashWithDefrag, cfg.FanoutID); err != nil {
			tp.Close()
			return nil, fmt.Errorf("set fanout: %w", err)
		}
	}

	if cfg.BPFFilter != "" {
		pcapBPF, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, cfg.SnapLen, cfg.BPFFilter)
		if err != nil {
			tp.Close()
			return nil, fmt.Errorf("compile bpf filter: %w", err)
		}
		rawBPF := make([]bpf.RawInstruction, len(pcapBPF))
		for i, inst := range pcapBPF {
			rawBPF[i] = bpf.RawInstruction{
				Op: inst.Code,
				Jt: inst.Jt,
				Jf: inst.Jf,
				K:  inst.K,
			}
		}
		if err := tp.SetBPF(rawBPF); err != nil {
			tp.Close()
			return nil, fmt.Errorf("set bpf filter: %w", err)
		}
	}

	return &AFPacketSource{handle: tp, device: cfg.Device}, nil
}

// ReadFrame returns the next captured frame.
func (s *AFPacketSource) ReadFrame() ([]byte, gopacket.CaptureInfo, error) {
	return s.handle.ReadPacketData()
}

// Name identifies the source kind.
func (s *AFPacketSource) Name() string { return "afpacket" }

// Close closes the capture ring.
func (s *AFPacketSource) Close() error {
	s.handle.Close()
	return nil
}

// pollTimeout converts the configured millisecond value into the
// duration the ring option expects.
func pollTimeout(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// ringLayout computes a PACKET_MMAP geometry for the target memory
// budget. frameSize must be 16-byte aligned, blockSize page-aligned
// and a multiple of frameSize.
func ringLayout(bufferSizeMB, snapLen, pageSize int) (frameSize, blockSize, numBlocks int, err error) {
	const tpacketAlignment = 16
	const tpacketHdrLen = 52

	if bufferSizeMB <= 0 || snapLen <= 0 || pageSize <= 0 {
		return 0, 0, 0, fmt.Errorf("invalid ring parameters: %dMB snap=%d page=%d",
			bufferSizeMB, snapLen, pageSize)
	}

	raw := tpacketHdrLen + snapLen
	frameSize = (raw + tpacketAlignment - 1) / tpacketAlignment * tpacketAlignment

	// blockSize must be a multiple of both pageSize and frameSize. For
	// sane snap lengths the lcm stays within a few MB; grow it toward
	// 1MB blocks when it is small to keep the block count reasonable.
	blockSize = lcm(pageSize, frameSize)
	const targetBlockSize = 1 * 1024 * 1024
	for blockSize*2 <= targetBlockSize {
		blockSize *= 2
	}

	numBlocks = bufferSizeMB * 1024 * 1024 / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	return frameSize, blockSize, numBlocks, nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}
