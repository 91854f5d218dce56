package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/agent"
	"firestige.xyz/strix/internal/source"
	"firestige.xyz/strix/pkg/packet"
	"firestige.xyz/strix/pkg/xdp"
)

var inspectVerbose bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.pcap>",
	Short: "Walk the frames of a pcap file and print what was decoded",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := inspect(args[0]); err != nil {
			exitWithError("inspect", err)
		}
	},
}

func init() {
	inspectCmd.Flags().BoolVarP(&inspectVerbose, "verbose", "v", false,
		"print one line per frame")
}

func inspect(path string) error {
	src, err := source.New("pcap", source.Options{"path": path})
	if err != nil {
		return err
	}
	defer src.Close()

	var frames, failures int
	layers := make(map[string]int)

	for n := 1; ; n++ {
		frame, _, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		frames++

		pkt := xdp.NewContext(frame).Packet()
		if err := pkt.Walk(); err != nil {
			failures++
			if inspectVerbose {
				fmt.Printf("#%d len=%d error=%v\n", n, len(frame), err)
			}
			continue
		}
		agent.Observe(pkt)
		layers[pkt.Layer().String()]++
		if inspectVerbose {
			fmt.Printf("#%d %s\n", n, summarize(pkt))
		}
	}

	fmt.Printf("frames=%d failures=%d", frames, failures)
	for l, c := range layers {
		fmt.Printf(" %s=%d", l, c)
	}
	fmt.Println()
	return nil
}

func summarize(pkt *packet.Packet) string {
	s := fmt.Sprintf("hdr=%d", pkt.Offset())
	if eth, ok := pkt.Ethernet(); ok {
		s += fmt.Sprintf(" eth %s > %s %s",
			eth.SourceAddress(), eth.DestinationAddress(), pkt.NetworkProtocol())
	}
	if ip4, ok := pkt.IPv4(); ok {
		s += fmt.Sprintf(" | %s > %s ttl=%d",
			ip4.SourceAddress(), ip4.DestinationAddress(), ip4.TTL())
	}
	if ip6, ok := pkt.IPv6(); ok {
		s += fmt.Sprintf(" | %s > %s hops=%d",
			ip6.SourceAddress(), ip6.DestinationAddress(), ip6.HopLimit())
	}
	if tcp, ok := pkt.TCP(); ok {
		s += fmt.Sprintf(" | tcp %d > %d seq=%d",
			tcp.SourcePort(), tcp.DestinationPort(), tcp.SequenceNumber())
	}
	if udp, ok := pkt.UDP(); ok {
		s += fmt.Sprintf(" | udp %d > %d len=%d",
			udp.SourcePort(), udp.DestinationPort(), udp.Length())
	}
	if pkt.Layer() == packet.LayerUnrecognized {
		s += " | unrecognized"
	}
	return s
}
