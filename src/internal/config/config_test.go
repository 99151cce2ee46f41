package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Pipelines: []PipelineConfig{
			{
				Name: "main",
				Sources: []SourceConfig{
					{Type: "stdin", Stdin: &StdinSourceConfig{BufferSize: 100}},
				},
				Sinks: []SinkConfig{
					{Type: "gelf", GELF: DefaultGELFSinkConfig()},
				},
			},
		},
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, validConfig().validate())
	})

	t.Run("DefaultsAreValid", func(t *testing.T) {
		assert.NoError(t, defaults().validate())
	})

	t.Run("NoPipelines", func(t *testing.T) {
		cfg := &Config{}
		assert.Error(t, cfg.validate())
	})

	t.Run("EmptyPipelineName", func(t *testing.T) {
		cfg := validConfig()
		cfg.Pipelines[0].Name = ""
		assert.Error(t, cfg.validate())
	})

	t.Run("DuplicatePipelineName", func(t *testing.T) {
		cfg := validConfig()
		cfg.Pipelines = append(cfg.Pipelines, cfg.Pipelines[0])
		assert.Error(t, cfg.validate())
	})

	t.Run("NoSources", func(t *testing.T) {
		cfg := validConfig()
		cfg.Pipelines[0].Sources = nil
		assert.Error(t, cfg.validate())
	})

	t.Run("NoSinks", func(t *testing.T) {
		cfg := validConfig()
		cfg.Pipelines[0].Sinks = nil
		assert.Error(t, cfg.validate())
	})

	t.Run("GELFSinkWithoutSettings", func(t *testing.T) {
		cfg := validConfig()
		cfg.Pipelines[0].Sinks[0].GELF = nil
		assert.Error(t, cfg.validate())
	})

	t.Run("StatusPortOutOfRange", func(t *testing.T) {
		cfg := validConfig()
		cfg.Status = StatusConfig{Enabled: true, Port: 70000}
		assert.Error(t, cfg.validate())
	})
}

func TestGELFSinkConfigValidate(t *testing.T) {
	base := func() *GELFSinkConfig {
		return DefaultGELFSinkConfig()
	}

	t.Run("Defaults", func(t *testing.T) {
		require.NoError(t, base().validate())
	})

	testCases := []struct {
		name   string
		mutate func(*GELFSinkConfig)
	}{
		{"PortZero", func(g *GELFSinkConfig) { g.Port = 0 }},
		{"PortTooHigh", func(g *GELFSinkConfig) { g.Port = 70000 }},
		{"BadProtocol", func(g *GELFSinkConfig) { g.Protocol = "sctp" }},
		{"BadCompression", func(g *GELFSinkConfig) { g.Compression = "lz4" }},
		{"UnknownSeverity", func(g *GELFSinkConfig) { g.MinSeverity = "sev9" }},
		{"NegativeDiscardThreshold", func(g *GELFSinkConfig) { g.DiscardThreshold = -1 }},
		{"BackoffBelowOne", func(g *GELFSinkConfig) { g.RetryBackoff = 0.5 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}

	t.Run("SeverityAliases", func(t *testing.T) {
		for _, level := range []string{"emerg", "panic", "fatal", "err", "warning", "trace"} {
			cfg := base()
			cfg.MinSeverity = level
			assert.NoError(t, cfg.validate(), "severity %q", level)
		}
	})
}
