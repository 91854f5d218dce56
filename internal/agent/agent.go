// Package agent wires the frame source, the verdict engine and the
// observability stack into the processing loop.
package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/gopacket"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/filter"
	"firestige.xyz/strix/internal/flowmap"
	"firestige.xyz/strix/internal/metrics"
	"firestige.xyz/strix/internal/source"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/xdp"
)

// Stats accumulates per-run totals, mirrored into Prometheus as the
// run progresses.
type Stats struct {
	Frames     uint64
	Actions    map[xdp.Action]uint64
	ParseFails uint64
	Flows      int
}

// Agent runs the per-frame loop over one source.
type Agent struct {
	src    source.Source
	engine *filter.Engine
	flows  *flowmap.FlowMap
}

// New builds an agent from configuration.
func New(cfg *config.Config) (*Agent, error) {
	src, err := source.New(cfg.Source.Kind, sourceOptions(cfg.Source))
	if err != nil {
		return nil, err
	}
	flows := flowmap.New()
	engine, err := filter.New(cfg.Filter, flows)
	if err != nil {
		src.Close()
		return nil, err
	}
	return &Agent{src: src, engine: engine, flows: flows}, nil
}

func sourceOptions(sc config.SourceConfig) source.Options {
	return source.Options{
		"path":           sc.Path,
		"device":         sc.Device,
		"snap_len":       sc.SnapLen,
		"buffer_size_mb": sc.BufferSizeMB,
		"timeout_ms":     sc.TimeoutMs,
		"fanout_id":      sc.FanoutID,
		"bpf_filter":     sc.BPFFilter,
	}
}

// Run processes frames until the source is exhausted or ctx is
// canceled. Each frame gets its own xdp.Context; nothing from one
// invocation survives into the next.
func (a *Agent) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{Actions: make(map[xdp.Action]uint64)}
	defer a.src.Close()

	for {
		select {
		case <-ctx.Done():
			stats.Flows = a.flows.Len()
			return stats, ctx.Err()
		default:
		}

		frame, ci, err := a.src.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				stats.Flows = a.flows.Len()
				return stats, nil
			}
			return stats, err
		}

		stats.Frames++
		metrics.FramesTotal.WithLabelValues(a.src.Name()).Inc()

		start := time.Now()
		action := a.handle(frame, ci, stats)
		metrics.HandleSeconds.Observe(time.Since(start).Seconds())

		stats.Actions[action]++
		metrics.ActionsTotal.WithLabelValues(action.String()).Inc()
	}
}

func (a *Agent) handle(frame []byte, ci gopacket.CaptureInfo, stats *Stats) xdp.Action {
	action, err := a.engine.Handle(frameContext(frame, ci))
	if err != nil {
		stats.ParseFails++
		metrics.ParseErrorsTotal.WithLabelValues(errReason(err)).Inc()
		slog.Debug("frame dropped", "len", len(frame), "error", err)
	}
	return action
}

// frameContext wraps one captured frame, carrying over the interface
// index when the source provides it.
func frameContext(frame []byte, ci gopacket.CaptureInfo) *xdp.Context {
	ctx := xdp.NewContext(frame)
	ctx.IfIndex = ci.InterfaceIndex
	return ctx
}

func errReason(err error) string {
	switch {
	case errors.Is(err, packet.ErrSizeMismatch):
		return "size_mismatch"
	default:
		return "underflow"
	}
}

// Observe records the decoded protocols of one walked packet into the
// per-layer counters.
func Observe(pkt *packet.Packet) {
	if _, ok := pkt.Ethernet(); ok {
		metrics.ProtocolsTotal.WithLabelValues("link", "ethernet").Inc()
	}
	if pkt.NetworkProtocol() != 0 {
		metrics.ProtocolsTotal.WithLabelValues("network", pkt.NetworkProtocol().String()).Inc()
	}
	if pkt.TransportProtocol() != 0 {
		metrics.ProtocolsTotal.WithLabelValues("transport", pkt.TransportProtocol().String()).Inc()
	}
}
