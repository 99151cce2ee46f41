package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Quiet     bool              `toml:"quiet"`
	Logging   LoggingConfig     `toml:"logging"`
	Status    StatusConfig      `toml:"status"`
	Pipelines []PipelineConfig  `toml:"pipelines"`
}

// PipelineConfig describes one source-to-collector flow
type PipelineConfig struct {
	Name      string           `toml:"name"`
	Sources   []SourceConfig   `toml:"sources"`
	RateLimit *RateLimitConfig `toml:"rate_limit"`
	Format    FormatConfig     `toml:"format"`
	Sinks     []SinkConfig     `toml:"sinks"`
}

type SourceConfig struct {
	Type  string             `toml:"type"` // "stdin" or "tcp"
	Stdin *StdinSourceConfig `toml:"stdin"`
	TCP   *TCPSourceConfig   `toml:"tcp"`
}

type StdinSourceConfig struct {
	BufferSize int64 `toml:"buffer_size"`
}

type TCPSourceConfig struct {
	Host       string `toml:"host"`
	Port       int64  `toml:"port"`
	BufferSize int64  `toml:"buffer_size"`
}

type SinkConfig struct {
	Type    string             `toml:"type"` // "gelf", "stdout", "stderr"
	GELF    *GELFSinkConfig    `toml:"gelf"`
	Console *ConsoleSinkConfig `toml:"console"`
}

// GELFSinkConfig is the collector session configuration. It is immutable
// for the lifetime of the sink; reconfiguration replaces the sink
// wholesale after the old connection is closed.
type GELFSinkConfig struct {
	Host             string         `toml:"host"`
	Port             int64          `toml:"port"`
	Protocol         string         `toml:"protocol"`           // "tcp" or "udp"
	ConnectTimeoutMs int64          `toml:"connect_timeout_ms"`
	WriteTimeoutMs   int64          `toml:"write_timeout_ms"`
	Compression      string         `toml:"compression"` // "none", "gzip", "zlib"
	Hostname         string         `toml:"hostname"`    // static "host" field; default: machine hostname
	MinSeverity      string         `toml:"min_severity"` // empty: accept all
	StaticFields     map[string]any `toml:"static_fields"`

	// Backpressure: backlog is capped at 10x this threshold, after which
	// new records are discarded until the backlog drains below the cap
	DiscardThreshold int64 `toml:"discard_threshold"`

	// Retry timer settings
	RetryIntervalMs    int64   `toml:"retry_interval_ms"`
	MaxRetryIntervalMs int64   `toml:"max_retry_interval_ms"`
	RetryBackoff       float64 `toml:"retry_backoff"`

	// MaxDatagramSize overrides the UDP chunk threshold; zero queries the
	// socket send-buffer size
	MaxDatagramSize int64 `toml:"max_datagram_size"`

	// TimestampOffsetMs is subtracted from every record timestamp.
	// Default off; only for collectors with a known fixed clock skew.
	TimestampOffsetMs int64 `toml:"timestamp_offset_ms"`

	BufferSize int64 `toml:"buffer_size"`
}

type ConsoleSinkConfig struct {
	Target     string `toml:"target"` // "stdout" or "stderr"
	BufferSize int64  `toml:"buffer_size"`
}

type FormatConfig struct {
	// Spec is a text/template over Timestamp, Level, Source, Message and
	// Fields. Empty means message text only.
	Spec            string `toml:"spec"`
	TimestampFormat string `toml:"timestamp_format"`
}

type RateLimitConfig struct {
	Rate              float64 `toml:"rate"`  // entries per second, 0 disables
	Burst             int64   `toml:"burst"` // defaults to rate
	MaxEntrySizeBytes int64   `toml:"max_entry_size_bytes"`
}

type StatusConfig struct {
	Enabled bool  `toml:"enabled"`
	Port    int64 `toml:"port"`
}

type LoggingConfig struct {
	Output string             `toml:"output"` // "stdout", "stderr", "file", "none"
	Level  string             `toml:"level"`
	File   *FileLoggingConfig `toml:"file"`
}

type FileLoggingConfig struct {
	Directory      string `toml:"directory"`
	Name           string `toml:"name"`
	MaxSizeMB      int64  `toml:"max_size_mb"`
	MaxTotalSizeMB int64  `toml:"max_total_size_mb"`
}

func (c *Config) validate() error {
	if len(c.Pipelines) == 0 {
		return fmt.Errorf("no pipelines configured")
	}

	seen := make(map[string]bool)
	for i, p := range c.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("pipeline %d: empty name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate pipeline name: %s", p.Name)
		}
		seen[p.Name] = true

		if len(p.Sources) == 0 {
			return fmt.Errorf("pipeline '%s': no sources", p.Name)
		}
		if len(p.Sinks) == 0 {
			return fmt.Errorf("pipeline '%s': no sinks", p.Name)
		}

		for j, sinkCfg := range p.Sinks {
			if sinkCfg.Type != "gelf" {
				continue
			}
			if sinkCfg.GELF == nil {
				return fmt.Errorf("pipeline '%s': sink %d missing gelf configuration", p.Name, j)
			}
			if err := sinkCfg.GELF.validate(); err != nil {
				return fmt.Errorf("pipeline '%s': sink %d: %w", p.Name, j, err)
			}
		}
	}

	if c.Status.Enabled && (c.Status.Port < 1 || c.Status.Port > 65535) {
		return fmt.Errorf("invalid status port: %d", c.Status.Port)
	}

	return nil
}

func (g *GELFSinkConfig) validate() error {
	if g.Port < 1 || g.Port > 65535 {
		return fmt.Errorf("invalid collector port: %d", g.Port)
	}

	switch g.Protocol {
	case "tcp", "udp":
	default:
		return fmt.Errorf("protocol must be 'tcp' or 'udp': %s", g.Protocol)
	}

	switch g.Compression {
	case "", "none", "gzip", "zlib":
	default:
		return fmt.Errorf("compression must be 'none', 'gzip' or 'zlib': %s", g.Compression)
	}

	if g.MinSeverity != "" && !knownSeverity(g.MinSeverity) {
		return fmt.Errorf("unknown min_severity: %s", g.MinSeverity)
	}

	if g.DiscardThreshold < 0 {
		return fmt.Errorf("discard_threshold must not be negative: %d", g.DiscardThreshold)
	}

	if g.RetryBackoff != 0 && g.RetryBackoff < 1.0 {
		return fmt.Errorf("retry_backoff must be >= 1.0: %f", g.RetryBackoff)
	}

	return nil
}

func knownSeverity(level string) bool {
	switch strings.ToLower(level) {
	case "emerg", "emergency", "panic", "alert", "crit", "critical", "fatal",
		"error", "err", "warn", "warning", "notice", "info", "debug", "trace":
		return true
	default:
		return false
	}
}
