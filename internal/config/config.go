// Package config handles agent configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level static configuration, mapping to the root of
// the yaml file.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	// Kind is "pcap" for offline files or "afpacket" for live capture.
	Kind         string `mapstructure:"kind"`
	Path         string `mapstructure:"path"`   // pcap file path
	Device       string `mapstructure:"device"` // live capture interface
	SnapLen      int    `mapstructure:"snap_len"`
	BufferSizeMB int    `mapstructure:"buffer_size_mb"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	FanoutID     uint16 `mapstructure:"fanout_id"`
	BPFFilter    string `mapstructure:"bpf_filter"`
}

// FilterConfig drives the userspace verdict engine.
type FilterConfig struct {
	// DefaultAction applies when no rule matches: pass, drop, tx,
	// redirect or aborted.
	DefaultAction string       `mapstructure:"default_action"`
	Rules         []RuleConfig `mapstructure:"rules"`
}

// RuleConfig is one match clause. Empty fields match everything.
type RuleConfig struct {
	Name     string   `mapstructure:"name"`
	Protocol string   `mapstructure:"protocol"` // tcp | udp
	SrcCIDRs []string `mapstructure:"src_cidrs"`
	DstCIDRs []string `mapstructure:"dst_cidrs"`
	SrcPorts []uint16 `mapstructure:"src_ports"`
	DstPorts []uint16 `mapstructure:"dst_ports"`
	Action   string   `mapstructure:"action"`
}

// ProbeConfig points at a compiled XDP object for kernel-mode runs.
type ProbeConfig struct {
	ELFPath   string `mapstructure:"elf_path"`
	Program   string `mapstructure:"program"`
	EventsMap string `mapstructure:"events_map"`
	Device    string `mapstructure:"device"`
	Mode      string `mapstructure:"mode"` // generic | driver | offload
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"` // json | text
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures the rotated file output.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads, decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", "afpacket")
	v.SetDefault("source.snap_len", 65535)
	v.SetDefault("source.buffer_size_mb", 8)
	v.SetDefault("source.timeout_ms", 100)
	v.SetDefault("filter.default_action", "pass")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9143")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "pcap":
		if c.Source.Path == "" {
			return fmt.Errorf("source.path is required for pcap source")
		}
	case "afpacket":
		if c.Source.Device == "" {
			return fmt.Errorf("source.device is required for afpacket source")
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	if !validAction(c.Filter.DefaultAction) {
		return fmt.Errorf("invalid filter.default_action %q", c.Filter.DefaultAction)
	}
	for _, r := range c.Filter.Rules {
		if !validAction(r.Action) {
			return fmt.Errorf("rule %q: invalid action %q", r.Name, r.Action)
		}
		switch strings.ToLower(r.Protocol) {
		case "", "tcp", "udp":
		default:
			return fmt.Errorf("rule %q: unknown protocol %q", r.Name, r.Protocol)
		}
	}
	return nil
}

func validAction(s string) bool {
	switch strings.ToLower(s) {
	case "aborted", "drop", "pass", "tx", "redirect":
		return true
	}
	return false
}
