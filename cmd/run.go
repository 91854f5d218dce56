package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/agent"
	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/metrics"
	"firestige.xyz/strix/internal/probe"
	"firestige.xyz/strix/pkg/xdp"
)

var kernelMode bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the packet filter",
	Long: `Run the packet filter until interrupted.

In the default userspace mode frames are read from the configured
source (af_packet or pcap) and pushed through the rule engine. With
--kernel the compiled XDP object from the probe section is attached
instead, and strix only drains its event map.

Examples:
  strix run -c config.yml            # userspace rule engine
  strix run -c config.yml --kernel   # attach the XDP object`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configFile)
		if err != nil {
			exitWithError("load config", err)
		}
		if err := log.Init(cfg.Log); err != nil {
			exitWithError("init logging", err)
		}

		var srv *metrics.Server
		if cfg.Metrics.Enabled {
			srv = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path)
			srv.Start()
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		if kernelMode {
			err = runKernel(ctx, cfg)
		} else {
			err = runUserspace(ctx, cfg)
		}

		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			srv.Stop(shutdownCtx)
			cancel()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			exitWithError("run", err)
		}
	},
}

func init() {
	runCmd.Flags().BoolVar(&kernelMode, "kernel", false,
		"attach the configured XDP object instead of filtering in userspace")
}

func runUserspace(ctx context.Context, cfg *config.Config) error {
	a, err := agent.New(cfg)
	if err != nil {
		return err
	}
	stats, err := a.Run(ctx)
	if stats != nil {
		slog.Info("run finished",
			"frames", stats.Frames,
			"parse_failures", stats.ParseFails,
			"flows", stats.Flows,
			"dropped", stats.Actions[xdp.ActionDrop],
			"passed", stats.Actions[xdp.ActionPass])
	}
	return err
}

func runKernel(ctx context.Context, cfg *config.Config) error {
	p, err := probe.Load(cfg.Probe.ELFPath)
	if err != nil {
		return err
	}
	defer p.Close()

	mode, err := probe.ParseAttachMode(cfg.Probe.Mode)
	if err != nil {
		return err
	}
	if err := p.Attach(cfg.Probe.Program, cfg.Probe.Device, mode); err != nil {
		return err
	}
	slog.Info("xdp program attached",
		"program", cfg.Probe.Program, "device", cfg.Probe.Device)

	events, ok := p.Map(cfg.Probe.EventsMap)
	if !ok {
		// No event map exported; just hold the attachment.
		<-ctx.Done()
		return ctx.Err()
	}
	rd, err := probe.NewEventReader(events)
	if err != nil {
		return err
	}
	defer rd.Close()

	go func() {
		<-ctx.Done()
		rd.Close()
	}()

	for {
		sample, lost, err := rd.Read()
		if err != nil {
			if errors.Is(err, os.ErrClosed) {
				return ctx.Err()
			}
			return err
		}
		if lost > 0 {
			slog.Warn("perf samples lost", "count", lost)
		}
		handleSample(sample)
	}
}

// flowEvent is the fixed-size record the reference probe emits per
// tracked flow.
type flowEvent struct {
	SrcAddr uint32
	DstAddr uint32
	SrcPort uint16
	DstPort uint16
	Proto   uint8
	Verdict uint8
	_       uint16
}

func handleSample(sample []byte) {
	ev, err := xdp.DecodeMapData[flowEvent](sample)
	if err != nil {
		slog.Debug("undecodable event sample", "len", len(sample), "error", err)
		return
	}
	metrics.ActionsTotal.WithLabelValues(xdp.Action(ev.Data.Verdict).String()).Inc()
	slog.Debug("flow event",
		"proto", ev.Data.Proto,
		"src_port", ev.Data.SrcPort,
		"dst_port", ev.Data.DstPort,
		"payload_len", len(ev.Payload()))
}
