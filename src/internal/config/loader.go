package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lconfig "github.com/lixenwraith/config"

	"gelfship/src/internal/core"
)

func defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Output: "stderr",
			Level:  "info",
		},
		Status: StatusConfig{
			Enabled: false,
			Port:    8081,
		},
		Pipelines: []PipelineConfig{
			{
				Name: "default",
				Sources: []SourceConfig{
					{Type: "stdin", Stdin: &StdinSourceConfig{BufferSize: core.DefaultChannelBufferSize}},
				},
				Sinks: []SinkConfig{
					{Type: "gelf", GELF: DefaultGELFSinkConfig()},
				},
			},
		},
	}
}

// DefaultGELFSinkConfig returns the collector session defaults
func DefaultGELFSinkConfig() *GELFSinkConfig {
	return &GELFSinkConfig{
		Host:               core.DefaultGELFHost,
		Port:               core.DefaultGELFPort,
		Protocol:           "udp",
		ConnectTimeoutMs:   5000,
		WriteTimeoutMs:     30000,
		Compression:        "none",
		DiscardThreshold:   1000,
		RetryIntervalMs:    1000,
		MaxRetryIntervalMs: 30000,
		RetryBackoff:       1.5,
		BufferSize:         core.DefaultChannelBufferSize,
	}
}

// LoadWithCLI builds the effective configuration from defaults, config
// file, GELFSHIP_* environment variables and CLI arguments, in
// ascending precedence.
func LoadWithCLI(cliArgs []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("GELFSHIP_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.validate()
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	return "GELFSHIP_" + env
}

func GetConfigPath() string {
	if configFile := os.Getenv("GELFSHIP_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("GELFSHIP_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("GELFSHIP_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "gelfship.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "gelfship.toml")
	}

	return "gelfship.toml"
}
