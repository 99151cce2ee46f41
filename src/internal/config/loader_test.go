package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithCLI_Defaults(t *testing.T) {
	// Point config resolution at an empty directory so only defaults apply
	t.Setenv("GELFSHIP_CONFIG_DIR", t.TempDir())

	cfg, err := LoadWithCLI(nil)
	require.NoError(t, err)

	require.Len(t, cfg.Pipelines, 1)
	assert.Equal(t, "default", cfg.Pipelines[0].Name)
	require.Len(t, cfg.Pipelines[0].Sinks, 1)

	gelf := cfg.Pipelines[0].Sinks[0].GELF
	require.NotNil(t, gelf)
	assert.Equal(t, int64(12201), gelf.Port)
	assert.Equal(t, "udp", gelf.Protocol)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}
